package logging

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/intent"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
)

// #region helpers
func setupStore(t *testing.T) *artifact.Store {
	t.Helper()
	s, err := artifact.NewStore(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// #endregion helpers

func TestLogAndListVerdicts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, LogVerdict(ctx, s.DB(), VerdictEntry{
		RequestID:  "r1",
		Question:   "hi",
		Intent:     "greeting",
		Kind:       "greeting",
		ChunkID:    -1,
		Confidence: 1,
		Confident:  true,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, LogVerdict(ctx, s.DB(), VerdictEntry{
		RequestID:  "r2",
		BuildID:    "b1",
		Question:   "what is nova",
		Intent:     "candidate",
		Kind:       "answer",
		ChunkID:    0,
		Confidence: 0.8,
		Confident:  true,
		Mode:       "lexical",
		Cached:     true,
		LatencyMS:  1.5,
	}))

	entries, err := ListVerdicts(ctx, s.DB(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "r2", entries[0].RequestID)
	assert.Equal(t, 0, entries[0].ChunkID)
	assert.True(t, entries[0].Cached)
	assert.Equal(t, "b1", entries[0].BuildID)
	assert.Equal(t, "lexical", entries[0].Mode)

	assert.Equal(t, "r1", entries[1].RequestID)
	assert.Equal(t, -1, entries[1].ChunkID)
	assert.Empty(t, entries[1].BuildID)
	assert.Equal(t, 2026, entries[1].CreatedAt.Year())
}

func TestRecorderFlattensResult(t *testing.T) {
	s := setupStore(t)
	rec := NewRecorder(s.DB(), "build-7")

	res := pipeline.Result{
		RequestID: "req",
		Question:  "What is Nova",
		Verdict: pipeline.Verdict{
			Kind:       pipeline.KindAnswer,
			Text:       "Nova provides mentoring.",
			ChunkID:    3,
			Confidence: 0.42,
			Confident:  true,
			Intent:     intent.Candidate,
		},
		Mode:    retrieval.ModeDense,
		Elapsed: 2500 * time.Microsecond,
	}
	require.NoError(t, rec.RecordVerdict(context.Background(), res))

	entries, err := ListVerdicts(context.Background(), s.DB(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "build-7", e.BuildID)
	assert.Equal(t, "answer", e.Kind)
	assert.Equal(t, "candidate", e.Intent)
	assert.Equal(t, 3, e.ChunkID)
	assert.Equal(t, "dense", e.Mode)
	assert.InDelta(t, 2.5, e.LatencyMS, 1e-9)
}

func TestRecorderConcurrentWrites(t *testing.T) {
	s := setupStore(t)
	rec := NewRecorder(s.DB(), "build-1")
	ctx := context.Background()

	const workers, perWorker = 8, 100
	var wg sync.WaitGroup
	var failed atomic.Int64
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				res := pipeline.Result{
					RequestID: fmt.Sprintf("w%d-%d", w, i),
					Question:  "what is nova",
					Verdict:   pipeline.Verdict{Kind: pipeline.KindFallback, ChunkID: -1},
					Mode:      retrieval.ModeLexical,
				}
				if err := rec.RecordVerdict(ctx, res); err != nil {
					failed.Add(1)
					t.Errorf("record %s: %v", res.RequestID, err)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM verdict_log`).Scan(&n))
	assert.Equal(t, workers*perWorker, n)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)

	_, err = NewLogger(Config{Level: "loud", Format: "json"})
	assert.Error(t, err)
	_, err = NewLogger(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
