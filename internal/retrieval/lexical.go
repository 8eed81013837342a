package retrieval

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunkstore"
)

// #region lexical-index
// LexicalIndex scores chunks by the share of query tokens they contain.
type LexicalIndex struct {
	chunks []chunkstore.Chunk
	tokens []map[string]bool
	long   []bool
	config LexicalConfig
}

// NewLexical pre-tokenizes every chunk in the store.
func NewLexical(store *chunkstore.Store, config LexicalConfig) *LexicalIndex {
	chunks := store.All()
	idx := &LexicalIndex{
		chunks: chunks,
		tokens: make([]map[string]bool, len(chunks)),
		long:   make([]bool, len(chunks)),
		config: config,
	}
	for i, c := range chunks {
		set := make(map[string]bool)
		for _, t := range tokenize(c.Text) {
			set[t] = true
		}
		idx.tokens[i] = set
		idx.long[i] = utf8.RuneCountInString(c.Text) > config.LongChunkLen
	}
	return idx
}

func (l *LexicalIndex) Mode() Mode { return ModeLexical }

// #endregion lexical-index

// #region lexical-topk
// TopK returns up to k chunks sharing at least one token with the query.
// A query with no tokens after stop-word removal yields no candidates.
func (l *LexicalIndex) TopK(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	q := tokenize(query)
	if len(q) == 0 {
		return nil, nil
	}

	var cands []Candidate
	for i, c := range l.chunks {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		shared := sharedKeywords(l.tokens[i], q)
		if shared == 0 {
			continue
		}
		score := float64(shared) / float64(len(q))
		if l.long[i] {
			score = min(score+l.config.LongBonus, 1.0)
		}
		cands = append(cands, Candidate{ChunkID: c.ID, Text: c.Text, Score: score, Matches: shared})
	}

	sortCandidates(cands)
	if len(cands) > k {
		cands = cands[:k]
	}
	return cands, nil
}

// #endregion lexical-topk

// #region ordering
// sortCandidates orders by score desc, then matches desc, then chunk id asc.
func sortCandidates(cands []Candidate) {
	slices.SortFunc(cands, func(a, b Candidate) int {
		switch {
		case a.Score != b.Score:
			if a.Score > b.Score {
				return -1
			}
			return 1
		case a.Matches != b.Matches:
			return b.Matches - a.Matches
		default:
			return a.ChunkID - b.ChunkID
		}
	})
}

// #endregion ordering
