package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/validate"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

// #region main

func main() {
	dbPath := pflag.String("db", "", "path to the index artifact")
	last := pflag.Int("last", 20, "show N most recent builds or verdicts")
	build := pflag.String("build", "", "show a single build with its chunks ('active' for the active build)")
	chunks := pflag.Int("chunks", 10, "chunks to print in build detail, 0 for all")
	verdicts := pflag.Bool("verdicts", false, "show recent verdict_log rows instead of builds")
	jsonOut := pflag.Bool("json", false, "output as JSON instead of table")
	pflag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/index.db [--last N] [--build id|active] [--verdicts] [--json]")
		os.Exit(2)
	}
	if *jsonOut {
		color.NoColor = true
	}

	store, err := artifact.OpenExisting(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *verdicts:
		err = runVerdictMode(store, *last, *jsonOut)
	case *build != "":
		err = runBuildMode(store, *build, *chunks, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	BuildID   string `json:"build_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Source    string `json:"source"`
	Encoder   string `json:"encoder,omitempty"`
	Dimension int    `json:"dimension"`
	Chunks    int    `json:"chunks"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func runListMode(store *artifact.Store, last int, jsonOut bool) error {
	infos, err := store.ListBuilds(last)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stderr, "no builds found")
		return nil
	}

	rows := make([]listRow, len(infos))
	for i, info := range infos {
		rows[i] = listRow{
			BuildID:   info.BuildID,
			ParentID:  info.ParentID,
			Source:    info.Source,
			Encoder:   info.Encoder,
			Dimension: info.Dimension,
			Chunks:    info.ChunkCount,
			Active:    info.Active,
			CreatedAt: info.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%s\n", bold(fmt.Sprintf("%-10s  %-10s  %-8s  %6s  %5s  %-20s  %s",
		"Build", "Parent", "Encoder", "Chunks", "Dim", "Time", "Source")))
	for _, r := range rows {
		marker := " "
		if r.Active {
			marker = green("*")
		}
		fmt.Printf("%s%-9s  %-10s  %-8s  %6d  %5d  %-20s  %s\n",
			marker, shortID(r.BuildID), orDash(shortID(r.ParentID)), orDash(r.Encoder),
			r.Chunks, r.Dimension, r.CreatedAt, r.Source)
	}
	return nil
}

// #endregion list-mode

// #region build-mode

type buildOutput struct {
	listRow
	Validation validate.Result `json:"validation"`
	Texts      []string        `json:"texts"`
}

func runBuildMode(store *artifact.Store, id string, limit int, jsonOut bool) error {
	var b artifact.Build
	var err error
	if id == "active" {
		b, err = store.GetActive()
	} else {
		b, err = store.GetBuild(id)
	}
	if err != nil {
		return err
	}
	activeID, _ := store.ActiveID()

	out := buildOutput{
		listRow: listRow{
			BuildID:   b.BuildID,
			ParentID:  b.ParentID,
			Source:    b.Source,
			Encoder:   b.Encoder,
			Dimension: b.Dimension,
			Chunks:    len(b.Chunks),
			Active:    b.BuildID == activeID,
			CreatedAt: b.CreatedAt.Format("2006-01-02T15:04:05Z"),
		},
		Validation: validate.NewHarness(validate.DefaultConfig()).Run(b),
		Texts:      b.Chunks,
	}
	if limit > 0 && len(out.Texts) > limit {
		out.Texts = out.Texts[:limit]
	}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Build:      %s\n", out.BuildID)
	fmt.Printf("Parent:     %s\n", orDash(out.ParentID))
	fmt.Printf("Active:     %v\n", out.Active)
	fmt.Printf("Created:    %s\n", out.CreatedAt)
	fmt.Printf("Source:     %s\n", out.Source)
	fmt.Printf("Encoder:    %s\n", orDash(out.Encoder))
	fmt.Printf("Dimension:  %d\n", out.Dimension)
	fmt.Printf("Chunks:     %d\n", out.Chunks)

	fmt.Printf("\n%s\n", bold("Validation:"))
	for _, m := range out.Validation.Metrics {
		status := green("ok")
		if !m.Pass {
			status = red("FAIL")
		}
		fmt.Printf("  %-20s %8.0f  %s\n", m.Name, m.Value, status)
	}
	fmt.Printf("  %s\n", out.Validation.Reason)

	fmt.Printf("\n%s\n", bold("Chunks:"))
	for i, t := range out.Texts {
		fmt.Printf("  %s %s\n", cyan(fmt.Sprintf("[%d]", i)), preview(t, 100))
	}
	if len(out.Texts) < out.Chunks {
		fmt.Printf("  ... %d more\n", out.Chunks-len(out.Texts))
	}
	return nil
}

// #endregion build-mode

// #region verdict-mode

func runVerdictMode(store *artifact.Store, last int, jsonOut bool) error {
	entries, err := logging.ListVerdicts(context.Background(), store.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no verdicts logged")
		return nil
	}
	if jsonOut {
		return printJSON(entries)
	}

	fmt.Printf("%s\n", bold(fmt.Sprintf("%-20s  %-13s  %5s  %5s  %-7s  %-6s  %8s  %s",
		"Time", "Kind", "Chunk", "Conf", "Mode", "Cached", "ms", "Question")))
	// newest first from the store; print oldest first
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		chunk := "-"
		if e.ChunkID >= 0 {
			chunk = fmt.Sprintf("%d", e.ChunkID)
		}
		fmt.Printf("%-20s  %-13s  %5s  %5.3f  %-7s  %-6v  %8.2f  %s\n",
			e.CreatedAt.Format("2006-01-02T15:04:05Z"), kindColor(e.Kind), chunk, e.Confidence,
			orDash(e.Mode), e.Cached, e.LatencyMS, preview(e.Question, 60))
	}
	return nil
}

func kindColor(kind string) string {
	padded := fmt.Sprintf("%-13s", kind)
	switch kind {
	case "answer":
		return green(padded)
	case "fallback":
		return red(padded)
	default:
		return cyan(padded)
	}
}

// #endregion verdict-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// #endregion output
