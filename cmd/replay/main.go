package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/options"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/replay"
)

var (
	pass = color.New(color.FgGreen, color.Bold).SprintFunc()
	fail = color.New(color.FgRed, color.Bold).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

// #region main

func main() {
	dbPath := pflag.String("db", "", "path to the index artifact (DB mode)")
	fixturePath := pflag.String("fixture", "", "path to fixture JSON (fixture mode)")
	last := pflag.Int("last", 100, "DB mode: most recent verdict_log rows to replay")
	allBuilds := pflag.Bool("all-builds", false, "DB mode: include verdicts logged against other builds")
	encCfg := embedding.DefaultConfig()
	options.AddEncoderFlags(pflag.CommandLine, &encCfg)
	pflag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/index.db [--last N] [--all-builds] [--encoder.kind ...]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	ctx := context.Background()
	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(ctx, *fixturePath)
	} else {
		exitCode = runDBMode(ctx, *dbPath, *last, *allBuilds, encCfg)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(ctx context.Context, path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	engine, err := replay.NewEngine(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	cases := make([]replay.Case, len(f.Cases))
	for i, fc := range f.Cases {
		cases[i] = fc.ToCase()
	}

	fmt.Printf("Fixture: %s\n", path)
	if f.Description != "" {
		fmt.Printf("  %s\n", f.Description)
	}
	return report(engine, replay.Replay(ctx, engine, cases))
}

// #endregion fixture-mode

// #region db-mode

// runDBMode replays logged questions against the active build and reports
// drift from the logged verdicts.
func runDBMode(ctx context.Context, dbPath string, last int, allBuilds bool, encCfg embedding.Config) int {
	store, err := artifact.OpenExisting(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 1
	}
	defer store.Close()

	build, err := store.GetActive()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	entries, err := logging.ListVerdicts(ctx, store.DB(), last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if !allBuilds {
		entries = filterBuild(entries, build.BuildID)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no logged verdicts to replay")
		return 0
	}

	enc, err := embedding.New(encCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoder unavailable, replaying lexically: %v\n", err)
		enc = nil
	}
	engine, err := engineFor(ctx, build, enc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("DB: %s | Build: %s | Verdicts: %d\n", dbPath, build.BuildID, len(entries))
	// oldest first
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return report(engine, replay.Replay(ctx, engine, replay.CasesFromLog(entries)))
}

// engineFor builds an engine with the default gate for whichever mode the
// index ends up in.
func engineFor(ctx context.Context, build artifact.Build, enc embedding.Encoder) (*pipeline.Engine, error) {
	engine, err := replay.EngineForBuild(ctx, build, enc, gate.DefaultGateConfig(), 0)
	if err != nil {
		return nil, err
	}
	if gc := gate.DefaultFor(engine.Mode()); gc != engine.Gate().Config() {
		return replay.EngineForBuild(ctx, build, enc, gc, 0)
	}
	return engine, nil
}

func filterBuild(entries []logging.VerdictEntry, buildID string) []logging.VerdictEntry {
	var out []logging.VerdictEntry
	for _, e := range entries {
		if e.BuildID == buildID {
			out = append(out, e)
		}
	}
	return out
}

// #endregion db-mode

// #region output

func report(engine *pipeline.Engine, results []replay.CaseResult) int {
	gc := engine.Gate().Config()
	fmt.Printf("Mode: %s | thresholds %.2f/%.2f (<%d words)\n\n",
		engine.Mode(), gc.BaseThreshold, gc.StrictThreshold, gc.ShortQueryWords)

	for _, r := range results {
		status := pass("PASS")
		if !r.Match {
			status = fail("FAIL")
		}
		fmt.Printf("  %s  %-10s %-40s %s\n", status, shortID(r.ID), preview(r.Question, 40), dim(r.Reason))
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d matched, %d mismatched, %d errors\n",
		s.Total, s.Matched, s.Mismatched, s.Errors)
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-14s %d\n", k, s.ByKind[pipeline.Kind(k)])
	}

	if s.Mismatched > 0 || s.Errors > 0 {
		return 1
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// #endregion output
