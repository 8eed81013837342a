package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/replay"
)

// #region main

func main() {
	dbPath := pflag.String("db", "", "path to the index artifact")
	last := pflag.Int("last", 20, "number of most recent verdict_log rows to export")
	outPath := pflag.String("out", "", "output fixture JSON path")
	desc := pflag.String("description", "", "fixture description")
	pflag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/index.db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	f, err := export(context.Background(), *dbPath, *last, *desc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := replay.WriteFixture(*outPath, f); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d cases over %d chunks to %s\n", len(f.Cases), len(f.Chunks), *outPath)
}

// #endregion main

// #region export

// export reads the active build and its most recent logged verdicts.
func export(ctx context.Context, dbPath string, last int, desc string) (*replay.Fixture, error) {
	store, err := artifact.OpenExisting(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	build, err := store.GetActive()
	if err != nil {
		return nil, err
	}
	entries, err := logging.ListVerdicts(ctx, store.DB(), last)
	if err != nil {
		return nil, err
	}
	var own []logging.VerdictEntry
	for _, e := range entries {
		if e.BuildID == build.BuildID {
			own = append(own, e)
		}
	}
	if len(own) == 0 {
		return nil, fmt.Errorf("no verdicts logged for build %s", build.BuildID)
	}

	if desc == "" {
		desc = fmt.Sprintf("exported from build %s (%s)", build.BuildID, build.Source)
	}
	f := replay.ExportFixture(build, own, desc)
	// hashing vectors can be recomputed offline; model encoders replay lexically
	if build.Encoder == string(embedding.KindHashing) {
		f.Config.Encoder = build.Encoder
		f.Config.Dimension = build.Dimension
	}
	return f, nil
}

// #endregion export
