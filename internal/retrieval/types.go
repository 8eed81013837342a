package retrieval

import (
	"context"
	"errors"
)

// ErrEncoding wraps dense-mode query encoder failures.
var ErrEncoding = errors.New("query encoding failed")

// #region mode
// Mode names the scoring strategy an Index uses.
type Mode string

const (
	ModeDense   Mode = "dense"   // cosine over unit vectors, scores in [-1,1]
	ModeLexical Mode = "lexical" // token overlap ratio, scores in [0,1]
)

// #endregion mode

// #region index
// Index ranks chunks against a query. Implementations are immutable after
// construction and safe for concurrent use.
type Index interface {
	Mode() Mode
	TopK(ctx context.Context, query string, k int) ([]Candidate, error)
}

// #endregion index

// #region candidate
// Candidate is one scored chunk. Matches is the secondary ranking signal
// (overlapping tokens in lexical mode, zero in dense mode).
type Candidate struct {
	ChunkID int
	Text    string
	Score   float64
	Matches int
}

// #endregion candidate

// #region config
// LexicalConfig tunes token-overlap scoring.
type LexicalConfig struct {
	LongChunkLen int     // chunks longer than this (runes) get LongBonus
	LongBonus    float64 // added to the overlap ratio, result capped at 1
}

// DefaultLexicalConfig returns the standard completeness bonus.
func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{LongChunkLen: 100, LongBonus: 0.05}
}

// #endregion config
