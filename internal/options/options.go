// Package options holds the answer server's flags and configuration.
package options

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/cache"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/workerpool"
)

// EnvPrefix prefixes environment overrides, e.g. NOVA_HTTP_ADDR.
const EnvPrefix = "NOVA"

// #region server-options
// ServerOptions contains the configuration options for the answer server.
type ServerOptions struct {
	HTTPAddr        string        `mapstructure:"http-addr"`
	GRPCAddr        string        `mapstructure:"grpc-addr"` // empty disables the health server
	ArtifactPath    string        `mapstructure:"artifact"`
	UIConfigPath    string        `mapstructure:"ui-config"`
	WatchUIConfig   bool          `mapstructure:"watch-ui-config"`
	VerdictLog      bool          `mapstructure:"verdict-log"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	RequestTimeout  time.Duration `mapstructure:"request-timeout"`

	Retrieval RetrievalOptions  `mapstructure:"retrieval"`
	Log       logging.Config    `mapstructure:"log"`
	Cache     cache.Config      `mapstructure:"cache"`
	Pool      workerpool.Config `mapstructure:"pool"`
	Encoder   embedding.Config  `mapstructure:"encoder"`
}

// RetrievalOptions tunes top-k and the gate. Zero thresholds use the
// defaults of the mode chosen at startup.
type RetrievalOptions struct {
	TopK            int     `mapstructure:"top-k"`
	BaseThreshold   float64 `mapstructure:"base-threshold"`
	StrictThreshold float64 `mapstructure:"strict-threshold"`
	ShortQueryWords int     `mapstructure:"short-query-words"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPAddr:        ":8000",
		GRPCAddr:        ":9000",
		ArtifactPath:    "data/index.db",
		UIConfigPath:    "data/config.json",
		WatchUIConfig:   false,
		VerdictLog:      true,
		ShutdownTimeout: 15 * time.Second,
		RequestTimeout:  10 * time.Second,
		Retrieval: RetrievalOptions{
			TopK:            5,
			ShortQueryWords: 3,
		},
		Log:     logging.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		Pool:    workerpool.DefaultConfig(),
		Encoder: embedding.DefaultConfig(),
	}
}

// #endregion server-options

// #region flags
// AddFlags registers every option on fs. Flag names double as viper keys.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.HTTPAddr, "http-addr", o.HTTPAddr, "HTTP listen address")
	fs.StringVar(&o.GRPCAddr, "grpc-addr", o.GRPCAddr, "gRPC health listen address, empty to disable")
	fs.StringVar(&o.ArtifactPath, "artifact", o.ArtifactPath, "SQLite index artifact")
	fs.StringVar(&o.UIConfigPath, "ui-config", o.UIConfigPath, "UI configuration JSON served at /config")
	fs.BoolVar(&o.WatchUIConfig, "watch-ui-config", o.WatchUIConfig, "Reload the UI configuration when the file changes")
	fs.BoolVar(&o.VerdictLog, "verdict-log", o.VerdictLog, "Record every answer in the artifact's verdict_log table")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")
	fs.DurationVar(&o.RequestTimeout, "request-timeout", o.RequestTimeout, "Per-request answer timeout")

	fs.IntVar(&o.Retrieval.TopK, "retrieval.top-k", o.Retrieval.TopK, "Candidates retrieved per query")
	fs.Float64Var(&o.Retrieval.BaseThreshold, "retrieval.base-threshold", o.Retrieval.BaseThreshold, "Confidence threshold, 0 for the mode default")
	fs.Float64Var(&o.Retrieval.StrictThreshold, "retrieval.strict-threshold", o.Retrieval.StrictThreshold, "Threshold for short queries, 0 for the mode default")
	fs.IntVar(&o.Retrieval.ShortQueryWords, "retrieval.short-query-words", o.Retrieval.ShortQueryWords, "Queries with fewer words use the strict threshold")

	fs.StringVar(&o.Log.Level, "log.level", o.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&o.Log.Format, "log.format", o.Log.Format, "Log format: json or console")

	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Memoize verdicts by normalized question")
	fs.IntVar(&o.Cache.Capacity, "cache.capacity", o.Cache.Capacity, "Maximum cached verdicts")

	fs.IntVar(&o.Pool.MinWorkers, "pool.min-workers", o.Pool.MinWorkers, "Minimum answer workers")
	fs.IntVar(&o.Pool.MaxWorkers, "pool.max-workers", o.Pool.MaxWorkers, "Maximum answer workers")
	fs.Uint64Var(&o.Pool.BytesPerWorker, "pool.bytes-per-worker", o.Pool.BytesPerWorker, "Available memory budgeted per worker")
	fs.DurationVar(&o.Pool.ExpiryDuration, "pool.expiry", o.Pool.ExpiryDuration, "Idle worker expiry")

	AddEncoderFlags(fs, &o.Encoder)
}

// AddEncoderFlags registers encoder flags; shared with the index builder.
func AddEncoderFlags(fs *pflag.FlagSet, e *embedding.Config) {
	fs.StringVar((*string)(&e.Kind), "encoder.kind", string(e.Kind), "Encoder: none, hashing, ollama, openai")
	fs.StringVar(&e.Model, "encoder.model", e.Model, "Embedding model name")
	fs.StringVar(&e.URL, "encoder.url", e.URL, "Encoder base URL")
	fs.StringVar(&e.APIKey, "encoder.api-key", e.APIKey, "Encoder API key (openai)")
	fs.IntVar(&e.Dimension, "encoder.dimension", e.Dimension, "Vector dimension (hashing)")
	fs.DurationVar(&e.Timeout, "encoder.timeout", e.Timeout, "Encoder request timeout")
}

// #endregion flags

// #region load
// Load layers flags, NOVA_* environment variables and an optional config
// file (yaml, json or toml) into o. Explicit flags win over the file.
func (o *ServerOptions) Load(v *viper.Viper, fs *pflag.FlagSet, configFile string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if err := v.Unmarshal(o); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// #endregion load

// #region complete-validate
// Complete fills derived defaults.
func (o *ServerOptions) Complete() error {
	o.Encoder.Kind = embedding.Kind(strings.ToLower(string(o.Encoder.Kind)))
	if o.Encoder.Kind == "" {
		o.Encoder.Kind = embedding.KindNone
	}
	o.Log.Level = strings.ToLower(o.Log.Level)
	return nil
}

// Validate checks whether the options are valid.
func (o *ServerOptions) Validate() error {
	var errs []error
	if o.HTTPAddr == "" {
		errs = append(errs, errors.New("http-addr is required"))
	}
	if o.ArtifactPath == "" {
		errs = append(errs, errors.New("artifact is required"))
	}
	if o.UIConfigPath == "" {
		errs = append(errs, errors.New("ui-config is required"))
	}
	if o.Retrieval.TopK < 1 {
		errs = append(errs, fmt.Errorf("retrieval.top-k must be positive, got %d", o.Retrieval.TopK))
	}
	if o.Retrieval.BaseThreshold < 0 || o.Retrieval.StrictThreshold < 0 {
		errs = append(errs, errors.New("retrieval thresholds must not be negative"))
	}
	if o.Retrieval.BaseThreshold > 0 && o.Retrieval.StrictThreshold > 0 &&
		o.Retrieval.StrictThreshold <= o.Retrieval.BaseThreshold {
		errs = append(errs, fmt.Errorf("retrieval.strict-threshold %.3f must exceed base-threshold %.3f",
			o.Retrieval.StrictThreshold, o.Retrieval.BaseThreshold))
	}
	if o.Cache.Enabled && o.Cache.Capacity < 1 {
		errs = append(errs, fmt.Errorf("cache.capacity must be positive, got %d", o.Cache.Capacity))
	}
	if o.Pool.MinWorkers < 1 || o.Pool.MaxWorkers < o.Pool.MinWorkers {
		errs = append(errs, fmt.Errorf("pool workers must satisfy 1 <= min <= max, got [%d,%d]",
			o.Pool.MinWorkers, o.Pool.MaxWorkers))
	}
	switch o.Encoder.Kind {
	case embedding.KindNone, embedding.KindHashing, embedding.KindOllama, embedding.KindOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown encoder.kind %q", o.Encoder.Kind))
	}
	if o.Encoder.Kind == embedding.KindOpenAI && o.Encoder.APIKey == "" {
		errs = append(errs, errors.New("encoder.api-key is required for openai"))
	}
	return errors.Join(errs...)
}

// GateConfig resolves the gate thresholds for the chosen retrieval mode.
func (o *ServerOptions) GateConfig(mode retrieval.Mode) gate.GateConfig {
	cfg := gate.DefaultFor(mode)
	if o.Retrieval.BaseThreshold > 0 {
		cfg.BaseThreshold = o.Retrieval.BaseThreshold
	}
	if o.Retrieval.StrictThreshold > 0 {
		cfg.StrictThreshold = o.Retrieval.StrictThreshold
	}
	if o.Retrieval.ShortQueryWords > 0 {
		cfg.ShortQueryWords = o.Retrieval.ShortQueryWords
	}
	return cfg
}

// #endregion complete-validate
