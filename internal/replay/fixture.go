package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Chunks      []string      `json:"chunks"`
	Config      FixtureConfig `json:"config"`
	Cases       []FixtureCase `json:"cases"`
}

// FixtureConfig selects the retrieval mode and thresholds for a replay run.
// An empty Encoder replays in lexical mode.
type FixtureConfig struct {
	Encoder         string  `json:"encoder,omitempty"` // "" | "hashing"
	Dimension       int     `json:"dimension,omitempty"`
	TopK            int     `json:"top_k"`
	BaseThreshold   float64 `json:"base_threshold"`
	StrictThreshold float64 `json:"strict_threshold"`
	ShortQueryWords int     `json:"short_query_words"`
}

// FixtureCase is one question with its expected verdict.
type FixtureCase struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	ExpectKind  string `json:"expect_kind"`
	ExpectChunk *int   `json:"expect_chunk,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToGateConfig converts the fixture thresholds, falling back to the lexical
// defaults for zero fields.
func (fc FixtureConfig) ToGateConfig() gate.GateConfig {
	cfg := gate.DefaultLexicalGateConfig()
	if fc.Encoder != "" {
		cfg = gate.DefaultGateConfig()
	}
	if fc.BaseThreshold > 0 {
		cfg.BaseThreshold = fc.BaseThreshold
	}
	if fc.StrictThreshold > 0 {
		cfg.StrictThreshold = fc.StrictThreshold
	}
	if fc.ShortQueryWords > 0 {
		cfg.ShortQueryWords = fc.ShortQueryWords
	}
	return cfg
}

// ToEncoderConfig returns the encoder settings for the fixture.
func (fc FixtureConfig) ToEncoderConfig() embedding.Config {
	cfg := embedding.DefaultConfig()
	switch fc.Encoder {
	case "":
		cfg.Kind = embedding.KindNone
	default:
		cfg.Kind = embedding.Kind(fc.Encoder)
	}
	if fc.Dimension > 0 {
		cfg.Dimension = fc.Dimension
	}
	return cfg
}

// ToCase converts a FixtureCase to a domain Case.
func (fc FixtureCase) ToCase() Case {
	c := Case{ID: fc.ID, Question: fc.Question, ExpectKind: pipeline.Kind(fc.ExpectKind), ExpectChunk: -1}
	if fc.ExpectChunk != nil {
		c.ExpectChunk = *fc.ExpectChunk
		c.CheckChunk = true
	}
	return c
}

// #endregion fixture-loader

// #region export

// ExportFixture turns logged verdicts into a fixture against the given build.
// Each logged verdict becomes the expectation for its question; duplicate
// questions keep the most recent entry.
func ExportFixture(b artifact.Build, entries []logging.VerdictEntry, description string) *Fixture {
	f := &Fixture{
		Description: description,
		Chunks:      b.Chunks,
		Config:      FixtureConfig{TopK: pipeline.DefaultConfig().TopK},
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.Question] {
			continue
		}
		seen[e.Question] = true
		fc := FixtureCase{ID: e.RequestID, Question: e.Question, ExpectKind: e.Kind}
		if e.Kind == string(pipeline.KindAnswer) && e.ChunkID >= 0 {
			chunk := e.ChunkID
			fc.ExpectChunk = &chunk
		}
		f.Cases = append(f.Cases, fc)
	}
	return f
}

// #endregion export
