package embedding

import (
	"context"
	"time"
)

// #region encoder
// Encoder turns text into dense vectors. Implementations must be safe for
// concurrent use.
type Encoder interface {
	Name() string
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// #endregion encoder

// #region config
// Kind selects an encoder backend.
type Kind string

const (
	KindNone    Kind = "none" // lexical-only
	KindHashing Kind = "hashing"
	KindOllama  Kind = "ollama"
	KindOpenAI  Kind = "openai"
)

// Config holds encoder settings.
type Config struct {
	Kind      Kind          `mapstructure:"kind"`
	Model     string        `mapstructure:"model"`
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api-key"`
	Dimension int           `mapstructure:"dimension"` // hashing only
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a lexical-only setup.
func DefaultConfig() Config {
	return Config{
		Kind:      KindNone,
		Model:     "nomic-embed-text",
		URL:       "http://localhost:11434",
		Dimension: 256,
		Timeout:   30 * time.Second,
	}
}

// #endregion config
