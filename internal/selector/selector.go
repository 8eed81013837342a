package selector

// #region imports
import (
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
)

// #endregion

// #region explanatory-words

// explanatoryWords mark a chunk that explains rather than lists. Matched as
// substrings of the lowercased chunk.
var explanatoryWords = []string{
	"is", "are", "helps", "provides", "supports",
	"includes", "offers", "designed", "can", "allows",
}

// #endregion

// #region selector

// Selector re-ranks near-tied candidates by answer quality.
type Selector struct {
	config Config
}

// New creates a selector with the given configuration.
func New(config Config) *Selector {
	return &Selector{config: config}
}

// Select returns the highest-quality candidate among those scoring at least
// threshold*BandFactor. Candidates must be in descending score order; on equal
// quality the earlier candidate wins. An empty band returns the top candidate.
func (s *Selector) Select(cands []retrieval.Candidate, threshold float64) retrieval.Candidate {
	if len(cands) == 0 {
		return retrieval.Candidate{ChunkID: -1}
	}
	floor := threshold * s.config.BandFactor

	best := -1
	bestQuality := 0.0
	for i, c := range cands {
		if c.Score < floor {
			continue
		}
		q := s.Quality(c)
		if best < 0 || q > bestQuality {
			best, bestQuality = i, q
		}
	}
	if best < 0 {
		return cands[0]
	}
	return cands[best]
}

// Quality scores one candidate: its similarity plus length and wording adjustments.
func (s *Selector) Quality(c retrieval.Candidate) float64 {
	q := c.Score
	n := utf8.RuneCountInString(c.Text)
	if n > s.config.MediumLen {
		q += s.config.MediumBonus
		if n > s.config.LongLen {
			q += s.config.LongBonus
		}
	}

	lower := strings.ToLower(c.Text)
	for _, w := range explanatoryWords {
		if strings.Contains(lower, w) {
			q += s.config.ExplanatoryBonus
			break
		}
	}

	if strings.HasSuffix(strings.TrimSpace(c.Text), ":") {
		q -= s.config.ColonPenalty
	}
	if len(strings.Fields(c.Text)) < s.config.MinWords {
		q -= s.config.FragmentPenalty
	}
	return q
}

// #endregion selector
