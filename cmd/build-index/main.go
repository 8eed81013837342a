// Command build-index chunks a knowledge-base source, optionally embeds it,
// and saves the result as a new build in the SQLite artifact.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunker"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/options"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/validate"
)

// #region main
func main() {
	dbPath := pflag.String("db", "data/index.db", "path to the index artifact")
	source := pflag.String("source", "", "knowledge base source (.txt or .pdf)")
	activate := pflag.String("activate", "", "make an existing build active and exit")
	inactive := pflag.Bool("no-activate", false, "save the build without activating it")
	chunkCfg := chunker.DefaultConfig()
	pflag.IntVar(&chunkCfg.MinLines, "min-lines", chunkCfg.MinLines, "split by line when at least this many non-empty lines exist")
	pflag.IntVar(&chunkCfg.Size, "window", chunkCfg.Size, "window size in runes for unstructured text")
	pflag.IntVar(&chunkCfg.Overlap, "overlap", chunkCfg.Overlap, "window overlap in runes")
	encCfg := embedding.DefaultConfig()
	options.AddEncoderFlags(pflag.CommandLine, &encCfg)
	pflag.Parse()

	store, err := artifact.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *activate != "" {
		if err := store.Activate(*activate); err != nil {
			fmt.Fprintf(os.Stderr, "activate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Active build: %s\n", *activate)
		return
	}

	if *source == "" {
		fmt.Fprintln(os.Stderr, "usage: build-index --source kb.txt [--db data/index.db] [--encoder.kind none|hashing|ollama|openai] [--no-activate]")
		fmt.Fprintln(os.Stderr, "       build-index --activate <build-id> [--db data/index.db]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("=== Index Builder ===")
	fmt.Printf("  DB: %s | Source: %s | Encoder: %s\n", *dbPath, *source, encCfg.Kind)

	b, err := buildIndex(ctx, store, *source, chunkCfg, encCfg, !*inactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build: %v\n", err)
		os.Exit(1)
	}

	state := "saved"
	if !*inactive {
		state = "saved and activated"
	}
	fmt.Printf("Build %s %s: %d chunks", b.BuildID, state, len(b.Chunks))
	if b.HasVectors() {
		fmt.Printf(", %d-dim vectors from %s", b.Dimension, b.Encoder)
	}
	fmt.Println()
}

// #endregion main

// #region build
// buildIndex reads and splits source, embeds the chunks when an encoder is
// configured, validates the result and saves it.
func buildIndex(ctx context.Context, store *artifact.Store, source string, chunkCfg chunker.Config, encCfg embedding.Config, activate bool) (artifact.Build, error) {
	text, err := chunker.ReadSource(source)
	if err != nil {
		return artifact.Build{}, err
	}
	chunks := chunker.Split(text, chunkCfg)
	fmt.Printf("Split into %d chunks.\n", len(chunks))

	b := artifact.Build{Source: source, Chunks: chunks}

	enc, err := embedding.New(encCfg)
	if err != nil {
		return artifact.Build{}, fmt.Errorf("encoder: %w", err)
	}
	if enc != nil && len(chunks) > 0 {
		fmt.Printf("Embedding with %s... ", enc.Name())
		vectors, err := enc.EmbedDocuments(ctx, chunks)
		if err != nil {
			return artifact.Build{}, fmt.Errorf("embed chunks: %w", err)
		}
		fmt.Println("done.")
		b.Encoder = enc.Name()
		b.Vectors = vectors
		b.Dimension = len(vectors[0])
	}

	if err := validate.NewHarness(validate.DefaultConfig()).Run(b).Err(); err != nil {
		return artifact.Build{}, err
	}
	return store.SaveBuild(b, activate)
}

// #endregion build
