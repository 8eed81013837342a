package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingIsDeterministicAndNormalized(t *testing.T) {
	h, err := NewHashing(64)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := h.EmbedQuery(ctx, "Nova mentors students")
	require.NoError(t, err)
	b, err := h.EmbedQuery(ctx, "nova MENTORS students!")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-5)
}

func TestHashingSimilarity(t *testing.T) {
	h, err := NewHashing(256)
	require.NoError(t, err)
	docs, err := h.EmbedDocuments(context.Background(), []string{
		"nova offers live mentoring sessions",
		"payment refunds are processed weekly",
	})
	require.NoError(t, err)
	q, err := h.EmbedQuery(context.Background(), "live mentoring sessions")
	require.NoError(t, err)

	assert.Greater(t, dot(q, docs[0]), dot(q, docs[1]))
}

func TestHashingEmptyText(t *testing.T) {
	h, err := NewHashing(8)
	require.NoError(t, err)
	v, err := h.EmbedQuery(context.Background(), "...")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v)
}

func TestHashingCanceledContext(t *testing.T) {
	h, err := NewHashing(8)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.EmbedQuery(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewByKind(t *testing.T) {
	enc, err := New(Config{Kind: KindNone})
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = New(Config{Kind: KindHashing, Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, "hashing", enc.Name())

	enc, err = New(Config{Kind: KindOllama, URL: "http://localhost:11434", Model: "nomic-embed-text"})
	require.NoError(t, err)
	assert.Equal(t, "ollama:nomic-embed-text", enc.Name())

	_, err = New(Config{Kind: KindOpenAI, Model: "text-embedding-3-small"})
	assert.Error(t, err)

	_, err = New(Config{Kind: "bogus"})
	assert.Error(t, err)

	_, err = NewHashing(0)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}
