package logging

import "time"

// #region logger-config
// Config selects the zap encoder and level.
type Config struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | console
}

// DefaultConfig returns info-level JSON logging.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// #endregion logger-config

// #region verdict-entry
// VerdictEntry is a single row in the verdict_log table.
type VerdictEntry struct {
	ID         int64
	RequestID  string
	BuildID    string
	Question   string
	Intent     string
	Kind       string // "greeting" | "fallback" | "clarification" | "answer"
	ChunkID    int    // -1 when no chunk was served
	Confidence float64
	Confident  bool
	Mode       string
	Cached     bool
	LatencyMS  float64
	CreatedAt  time.Time
}

// #endregion verdict-entry
