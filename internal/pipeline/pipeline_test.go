package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/cache"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunkstore"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/intent"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/workerpool"
)

// #region fakes
type stubIndex struct {
	mu    sync.Mutex
	cands []retrieval.Candidate
	err   error
	calls int
}

func (s *stubIndex) Mode() retrieval.Mode { return retrieval.ModeDense }

func (s *stubIndex) TopK(_ context.Context, _ string, k int) ([]retrieval.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.cands[:min(k, len(s.cands))], nil
}

type memRecorder struct {
	mu      sync.Mutex
	results []Result
}

func (m *memRecorder) RecordVerdict(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

func (m *memRecorder) ObserveResult(r Result) {}

type panicIndex struct{}

func (panicIndex) Mode() retrieval.Mode { return retrieval.ModeLexical }

func (panicIndex) TopK(context.Context, string, int) ([]retrieval.Candidate, error) {
	panic("index corrupted")
}

// #endregion

var novaChunks = []string{
	"Nova provides personalized mentoring for students.",
	"Contact support at help@nova.example.",
}

func newLexicalEngine(t *testing.T) *Engine {
	t.Helper()
	c, err := cache.New[Verdict](cache.DefaultConfig())
	require.NoError(t, err)
	e, err := New(DefaultConfig(), Deps{
		Index: retrieval.NewLexical(chunkstore.New(novaChunks), retrieval.DefaultLexicalConfig()),
		Gate:  gate.NewGate(gate.DefaultLexicalGateConfig()),
		Cache: c,
	})
	require.NoError(t, err)
	return e
}

func TestNovaScenario(t *testing.T) {
	e := newLexicalEngine(t)
	ctx := context.Background()
	resp := DefaultResponses()

	tests := []struct {
		name       string
		query      string
		kind       Kind
		text       string
		chunk      int
		confidence float64
		confident  bool
	}{
		{"greeting", "hi", KindGreeting, resp.Greeting, -1, 1.0, true},
		{"answer", "what is nova", KindAnswer, novaChunks[0], 0, 1.0, true},
		{"unrelated", "tell me a joke", KindFallback, resp.Fallback, -1, 0, false},
		{"too-short", "?", KindClarification, resp.Clarification, -1, 0, false},
		{"low-overlap", "nova refund policy details", KindFallback, resp.Fallback, -1, 0.25, false},
		{"no-tokens", "what is it about", KindFallback, resp.Fallback, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Answer(ctx, tt.query)
			require.NoError(t, err)
			v := res.Verdict
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.text, v.Text)
			assert.Equal(t, tt.chunk, v.ChunkID)
			assert.InDelta(t, tt.confidence, v.Confidence, 1e-9)
			assert.Equal(t, tt.confident, v.Confident)
			assert.Equal(t, retrieval.ModeLexical, res.Mode)
		})
	}
}

func TestAnswerIsIdempotentAndCached(t *testing.T) {
	e := newLexicalEngine(t)
	ctx := context.Background()

	first, err := e.Answer(ctx, "What is Nova")
	require.NoError(t, err)
	second, err := e.Answer(ctx, "  what is nova ")
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.Question, "What is Nova")

	s := e.CacheStats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)

	e.ClearCache()
	third, err := e.Answer(ctx, "what is nova")
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestEncodingFailureFallsBackUncached(t *testing.T) {
	idx := &stubIndex{err: errors.Join(retrieval.ErrEncoding, errors.New("model offline"))}
	c, err := cache.New[Verdict](cache.DefaultConfig())
	require.NoError(t, err)
	e, err := New(DefaultConfig(), Deps{Index: idx, Gate: gate.NewGate(gate.DefaultGateConfig()), Cache: c})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := e.Answer(context.Background(), "how do mentors help students")
		require.NoError(t, err)
		assert.Equal(t, KindFallback, res.Verdict.Kind)
		assert.Equal(t, 0.0, res.Verdict.Confidence)
		assert.False(t, res.Cached)
	}
	assert.Equal(t, 2, idx.calls)
	assert.Equal(t, 0, e.CacheStats().Size)
}

func TestShortQueryUsesStrictThreshold(t *testing.T) {
	idx := &stubIndex{cands: []retrieval.Candidate{{ChunkID: 2, Text: "Nova offers weekly mentoring sessions for all learners.", Score: 0.21}}}
	e, err := New(DefaultConfig(), Deps{Index: idx, Gate: gate.NewGate(gate.DefaultGateConfig())})
	require.NoError(t, err)
	ctx := context.Background()

	short, err := e.Answer(ctx, "mentoring sessions")
	require.NoError(t, err)
	assert.Equal(t, KindFallback, short.Verdict.Kind)
	assert.InDelta(t, 0.21, short.Verdict.Confidence, 1e-9)

	long, err := e.Answer(ctx, "weekly mentoring sessions")
	require.NoError(t, err)
	assert.Equal(t, KindAnswer, long.Verdict.Kind)
	assert.Equal(t, 2, long.Verdict.ChunkID)
}

func TestConfidenceMonotonicUnderScaling(t *testing.T) {
	text := "Nova offers weekly mentoring sessions for all learners."
	query := "tell me about weekly mentoring"
	wasConfident := false
	for _, s := range []float64{0.05, 0.15, 0.2, 0.4, 0.9} {
		idx := &stubIndex{cands: []retrieval.Candidate{{ChunkID: 0, Text: text, Score: s}}}
		e, err := New(DefaultConfig(), Deps{Index: idx, Gate: gate.NewGate(gate.DefaultGateConfig())})
		require.NoError(t, err)

		res, err := e.Answer(context.Background(), query)
		require.NoError(t, err)
		if wasConfident {
			assert.True(t, res.Verdict.Confident, "score %.2f lost confidence", s)
		}
		wasConfident = res.Verdict.Confident
	}
	assert.True(t, wasConfident)
}

func TestSelectorPicksWithinBand(t *testing.T) {
	idx := &stubIndex{cands: []retrieval.Candidate{
		{ChunkID: 0, Text: "Programs:", Score: 0.50},
		{ChunkID: 1, Text: "Nova offers guided programs with a personal mentor for each learner.", Score: 0.49},
	}}
	e, err := New(DefaultConfig(), Deps{Index: idx, Gate: gate.NewGate(gate.DefaultGateConfig())})
	require.NoError(t, err)

	res, err := e.Answer(context.Background(), "which programs exist here")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Verdict.ChunkID)
	// confidence stays the top similarity, not the winner's
	assert.InDelta(t, 0.50, res.Verdict.Confidence, 1e-9)
}

func TestAnswerRunsOnPoolAndRecords(t *testing.T) {
	pool, err := workerpool.NewSized(2, time.Second, nil)
	require.NoError(t, err)
	rec := &memRecorder{}
	c, err := cache.New[Verdict](cache.DefaultConfig())
	require.NoError(t, err)
	e, err := New(DefaultConfig(), Deps{
		Index:    retrieval.NewLexical(chunkstore.New(novaChunks), retrieval.DefaultLexicalConfig()),
		Gate:     gate.NewGate(gate.DefaultLexicalGateConfig()),
		Cache:    c,
		Pool:     pool,
		Recorder: rec,
		Observer: rec,
	})
	require.NoError(t, err)

	res, err := e.Answer(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, KindGreeting, res.Verdict.Kind)
	assert.Equal(t, intent.Greeting, res.Verdict.Intent)
	assert.NotEmpty(t, res.RequestID)
	require.Len(t, rec.results, 1)
	assert.Equal(t, res.RequestID, rec.results[0].RequestID)
	assert.Equal(t, int64(1), e.PoolStats().Executed)

	require.NoError(t, pool.Release(time.Second))
	_, err = e.Answer(context.Background(), "hello")
	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{Gate: gate.NewGate(gate.DefaultGateConfig())})
	assert.Error(t, err)
	_, err = New(DefaultConfig(), Deps{Index: &stubIndex{}})
	assert.Error(t, err)
	cfg := DefaultConfig()
	cfg.TopK = 0
	_, err = New(cfg, Deps{Index: &stubIndex{}, Gate: gate.NewGate(gate.DefaultGateConfig())})
	assert.Error(t, err)
}

func TestAnswerRecoversPanicAsFallback(t *testing.T) {
	pool, err := workerpool.NewSized(1, 0, nil)
	require.NoError(t, err)
	defer pool.Release(time.Second)

	c, err := cache.New[Verdict](cache.DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		pool *workerpool.Pool
	}{
		{"inline", nil},
		{"pooled", pool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(DefaultConfig(), Deps{
				Index: panicIndex{},
				Gate:  gate.NewGate(gate.DefaultLexicalGateConfig()),
				Cache: c,
				Pool:  tt.pool,
			})
			require.NoError(t, err)

			res, err := e.Answer(context.Background(), "what is nova")
			require.NoError(t, err)
			assert.Equal(t, KindFallback, res.Verdict.Kind)
			assert.Equal(t, DefaultResponses().Fallback, res.Verdict.Text)
			assert.Equal(t, -1, res.Verdict.ChunkID)
			assert.False(t, res.Cached)
			assert.Zero(t, e.CacheStats().Size)
		})
	}
}
