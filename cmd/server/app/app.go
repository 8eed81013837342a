// Package app wires the answer server from its options.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/cache"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunkstore"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/metrics"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/options"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/server"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/uiconfig"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/validate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/workerpool"
)

const (
	// Name is the name of the application.
	Name = "nova-server"

	commandDesc = `Nova knowledge-base answer server.

Answers questions from the active build of a SQLite index artifact:
  - greeting and off-topic short-circuits
  - dense (embedding) or lexical retrieval, chosen at startup
  - confidence gate with a stricter threshold for short questions
  - memoized verdicts, bounded worker pool, Prometheus metrics

Every flag can also be set through a config file (--config) or a
NOVA_ environment variable, e.g. NOVA_RETRIEVAL_TOP_K=8.`
)

// NewCommand returns the root cobra command.
func NewCommand() *cobra.Command {
	opts := options.NewServerOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          Name,
		Short:        "Serve knowledge-base answers",
		Long:         commandDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Load(viper.New(), cmd.Flags(), configFile); err != nil {
				return err
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}
			return run(setupSignalContext(), opts)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (yaml, json or toml)")
	opts.AddFlags(cmd.Flags())
	return cmd
}

// #region run
// run performs the one-shot startup, then serves until ctx ends. Any
// startup failure is returned before a listener opens.
func run(ctx context.Context, opts *options.ServerOptions) error {
	log, err := logging.NewLogger(opts.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store, err := artifact.OpenExisting(opts.ArtifactPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer store.Close()

	build, err := store.GetActive()
	if err != nil {
		return fmt.Errorf("load artifact %s: %w", opts.ArtifactPath, err)
	}
	check := validate.NewHarness(validate.DefaultConfig()).Run(build)
	if err := check.Err(); err != nil {
		return err
	}
	log.Info("artifact loaded",
		zap.String("path", opts.ArtifactPath),
		zap.String("build", build.BuildID),
		zap.Int("chunks", len(build.Chunks)),
		zap.Bool("vectors", build.HasVectors()),
	)

	engine, m, release, err := newEngine(ctx, opts, store, build, log)
	if err != nil {
		return err
	}
	defer release()

	ui, err := uiconfig.Load(opts.UIConfigPath, log)
	if err != nil {
		return err
	}
	if opts.WatchUIConfig {
		go func() {
			if err := ui.Watch(ctx); err != nil {
				log.Warn("ui config watch stopped", zap.Error(err))
			}
		}()
	}

	srv := server.New(server.Config{
		HTTPAddr:        opts.HTTPAddr,
		GRPCAddr:        opts.GRPCAddr,
		ShutdownTimeout: opts.ShutdownTimeout,
		RequestTimeout:  opts.RequestTimeout,
	}, engine, ui, m, log)
	return srv.Run(ctx)
}

// newEngine builds retrieval, gate, cache, pool, metrics and the verdict
// recorder around the loaded build. release closes the worker pool.
func newEngine(ctx context.Context, opts *options.ServerOptions, store *artifact.Store, build artifact.Build, log *zap.Logger) (*pipeline.Engine, *metrics.Metrics, func(), error) {
	enc, err := embedding.New(opts.Encoder)
	if err != nil {
		// unavailable encoder degrades to lexical retrieval
		log.Warn("encoder unavailable", zap.String("kind", string(opts.Encoder.Kind)), zap.Error(err))
		enc = nil
	}
	index := retrieval.New(ctx, build, chunkstore.New(build.Chunks), enc, retrieval.DefaultLexicalConfig(), log)

	gc := opts.GateConfig(index.Mode())
	if err := gc.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("gate config: %w", err)
	}

	c, err := cache.New[pipeline.Verdict](opts.Cache)
	if err != nil {
		return nil, nil, nil, err
	}
	pool, err := workerpool.New(opts.Pool, log)
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		if err := pool.Release(opts.ShutdownTimeout); err != nil {
			log.Warn("worker pool release", zap.Error(err))
		}
	}

	m := metrics.New(c.Stats)
	var rec pipeline.Recorder
	if opts.VerdictLog {
		rec = logging.NewRecorder(store.DB(), build.BuildID)
	}

	cfg := pipeline.DefaultConfig()
	cfg.TopK = opts.Retrieval.TopK
	engine, err := pipeline.New(cfg, pipeline.Deps{
		Index:    index,
		Gate:     gate.NewGate(gc),
		Cache:    c,
		Pool:     pool,
		Recorder: rec,
		Observer: m,
		Log:      log,
	})
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	log.Info("engine ready",
		zap.String("mode", string(index.Mode())),
		zap.Int("top_k", cfg.TopK),
		zap.Float64("base_threshold", gc.BaseThreshold),
		zap.Float64("strict_threshold", gc.StrictThreshold),
		zap.Int("workers", pool.Cap()),
	)
	return engine, m, release, nil
}

// #endregion run

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
