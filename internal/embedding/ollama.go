package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Ollama encodes text through a local Ollama server.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama-backed encoder. No request is made until the
// first Embed call.
func NewOllama(cfg Config) (*Ollama, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Ollama{client: api.NewClient(u, httpClient), model: cfg.Model}, nil
}

func (o *Ollama) Name() string { return string(KindOllama) + ":" + o.model }

// EmbedDocuments encodes documents one request at a time.
func (o *Ollama) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, d := range docs {
		v, err := o.EmbedQuery(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// EmbedQuery encodes one text and normalizes it.
func (o *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  o.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding")
	}
	return Normalize(toFloat32(resp.Embedding)), nil
}
