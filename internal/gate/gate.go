package gate

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
)

// #region gate
// Gate decides whether the best candidate is good enough to answer with.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the gate's thresholds.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Validate checks that the strict threshold is above the base threshold.
func (c GateConfig) Validate() error {
	if c.StrictThreshold <= c.BaseThreshold {
		return fmt.Errorf("strict threshold %.3f must exceed base threshold %.3f", c.StrictThreshold, c.BaseThreshold)
	}
	if c.ShortQueryWords < 1 {
		return fmt.Errorf("short query words must be positive, got %d", c.ShortQueryWords)
	}
	return nil
}

// Threshold returns the threshold for a query: strict below ShortQueryWords words.
func (g *Gate) Threshold(query string) (float64, int) {
	words := len(strings.Fields(query))
	if words < g.config.ShortQueryWords {
		return g.config.StrictThreshold, words
	}
	return g.config.BaseThreshold, words
}

// Decide applies the threshold to the top candidate. Candidates must be in
// descending score order. This is a hard gate: no candidate below the
// threshold is ever confident.
func (g *Gate) Decide(cands []retrieval.Candidate, query string) GateDecision {
	threshold, words := g.Threshold(query)
	d := GateDecision{Threshold: threshold, WordCount: words}

	if len(cands) == 0 {
		d.Reason = "no candidates"
		return d
	}
	top := cands[0]
	d.TopScore = top.Score
	if top.Score < threshold {
		d.Reason = fmt.Sprintf("top score %.4f below threshold %.4f (%d words)", top.Score, threshold, words)
		return d
	}

	d.Confident = true
	d.Top = &top
	d.Reason = fmt.Sprintf("top score %.4f passed threshold %.4f (%d words)", top.Score, threshold, words)
	return d
}

// #endregion gate
