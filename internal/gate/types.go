package gate

import "github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"

// #region gate-config
// GateConfig holds the confidence thresholds for one retrieval mode.
type GateConfig struct {
	BaseThreshold   float64 `mapstructure:"base-threshold"`   // queries of ShortQueryWords words or more
	StrictThreshold float64 `mapstructure:"strict-threshold"` // shorter queries, must exceed BaseThreshold
	ShortQueryWords int     `mapstructure:"short-query-words"`
}

// DefaultGateConfig returns thresholds calibrated for cosine scores.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		BaseThreshold:   0.20,
		StrictThreshold: 0.22,
		ShortQueryWords: 3,
	}
}

// DefaultLexicalGateConfig returns thresholds calibrated for overlap ratios.
func DefaultLexicalGateConfig() GateConfig {
	return GateConfig{
		BaseThreshold:   0.30,
		StrictThreshold: 0.50,
		ShortQueryWords: 3,
	}
}

// DefaultFor picks the default thresholds for a retrieval mode.
func DefaultFor(mode retrieval.Mode) GateConfig {
	if mode == retrieval.ModeLexical {
		return DefaultLexicalGateConfig()
	}
	return DefaultGateConfig()
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the confidence check.
type GateDecision struct {
	Confident bool
	Top       *retrieval.Candidate // nil unless Confident
	TopScore  float64              // best score seen, 0 when no candidates
	Threshold float64              // threshold that was applied
	WordCount int
	Reason    string
}

// #endregion gate-decision
