package validate

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
)

// #region harness
// Harness checks a loaded build before it is allowed to serve traffic.
type Harness struct {
	config Config
}

// NewHarness creates a harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run validates chunk texts and, when present, the vector rows.
func (h *Harness) Run(b artifact.Build) Result {
	var metrics []Metric
	var failReasons []string
	check := func(name string, value float64, pass bool, reason string) {
		metrics = append(metrics, Metric{Name: name, Value: value, Pass: pass})
		if !pass {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Chunk count
	n := len(b.Chunks)
	check("chunk_count", float64(n), n >= h.config.MinChunks,
		fmt.Sprintf("chunk count %d below minimum %d", n, h.config.MinChunks))

	// 2. Blank chunks can never answer a question
	blank, long := 0, 0
	for _, c := range b.Chunks {
		if strings.TrimSpace(c) == "" {
			blank++
		}
		if h.config.MaxChunkLen > 0 && utf8.RuneCountInString(c) > h.config.MaxChunkLen {
			long++
		}
	}
	check("blank_chunks", float64(blank), blank == 0, fmt.Sprintf("%d blank chunks", blank))

	// 3. Overlong chunks: informational only
	metrics = append(metrics, Metric{Name: "long_chunks", Value: float64(long), Pass: long == 0})

	// 4. Vectors, when the build carries them
	if len(b.Vectors) > 0 {
		rows := len(b.Vectors)
		check("vector_rows", float64(rows), rows == n,
			fmt.Sprintf("vector rows %d != chunks %d", rows, n))

		ragged, bad, zero := 0, 0, 0
		for _, v := range b.Vectors {
			if len(v) != b.Dimension {
				ragged++
				continue
			}
			norm, finite := vectorNorm(v)
			if !finite {
				bad++
			} else if norm == 0 {
				zero++
			}
		}
		check("dimension_mismatch", float64(ragged), ragged == 0 && b.Dimension > 0,
			fmt.Sprintf("%d vectors differ from dimension %d", ragged, b.Dimension))
		check("non_finite_vectors", float64(bad), bad == 0, fmt.Sprintf("%d vectors contain NaN or Inf", bad))
		check("zero_vectors", float64(zero), zero == 0, fmt.Sprintf("%d zero vectors", zero))
	}

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("validation failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("validation failed: %d checks: %s", len(failReasons), failReasons[0])
	}
	return Result{Passed: len(failReasons) == 0, Metrics: metrics, Reason: reason}
}

// Err returns nil for a passing result, otherwise ErrInvalidArtifact with the reason.
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidArtifact, r.Reason)
}

// #endregion harness

// #region helpers
func vectorNorm(v []float32) (float64, bool) {
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		sum += f * f
	}
	return math.Sqrt(sum), true
}

// #endregion helpers
