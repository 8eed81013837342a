package validate

import "errors"

// ErrInvalidArtifact is returned by Result.Err for a failed validation.
var ErrInvalidArtifact = errors.New("invalid index artifact")

// #region validate-config
// Config holds thresholds for post-load artifact validation.
type Config struct {
	MinChunks   int // fail below this many chunks
	MaxChunkLen int // informational: chunks longer than this (runes) are counted
}

// DefaultConfig requires at least one chunk.
func DefaultConfig() Config {
	return Config{
		MinChunks:   1,
		MaxChunkLen: 2000,
	}
}

// #endregion validate-config

// #region metric
// Metric captures a single validation check result.
type Metric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion metric

// #region result
// Result is the output of artifact validation.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// #endregion result
