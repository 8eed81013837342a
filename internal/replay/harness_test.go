package replay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
)

func loadCases(f *Fixture) []Case {
	cases := make([]Case, len(f.Cases))
	for i, fc := range f.Cases {
		cases[i] = fc.ToCase()
	}
	return cases
}

// TestFixture_NovaSession is the regression baseline for classifier, gate
// and selector behaviour in lexical mode.
func TestFixture_NovaSession(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "nova_session.json"))
	require.NoError(t, err)

	ctx := context.Background()
	engine, err := NewEngine(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, retrieval.ModeLexical, engine.Mode())

	results := Replay(ctx, engine, loadCases(f))
	require.Len(t, results, len(f.Cases))
	for _, r := range results {
		assert.True(t, r.Match, "case %s (%q): %s", r.ID, r.Question, r.Reason)
	}

	s := Summarize(results)
	assert.Equal(t, len(f.Cases), s.Matched)
	assert.Zero(t, s.Mismatched)
	assert.Equal(t, 3, s.ByKind[pipeline.KindAnswer])
}

func TestFixture_HashingModeRunsDense(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "nova_session.json"))
	require.NoError(t, err)
	f.Config = FixtureConfig{Encoder: "hashing", Dimension: 512, TopK: 5}

	ctx := context.Background()
	engine, err := NewEngine(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, retrieval.ModeDense, engine.Mode())

	// short-circuit intents do not depend on the retrieval mode
	results := Replay(ctx, engine, []Case{
		{ID: "g", Question: "hello", ExpectKind: pipeline.KindGreeting},
		{ID: "u", Question: "any cricket news", ExpectKind: pipeline.KindFallback},
		{ID: "c", Question: "x", ExpectKind: pipeline.KindClarification},
	})
	for _, r := range results {
		assert.True(t, r.Match, r.Reason)
	}
}

func TestReplayReportsMismatch(t *testing.T) {
	f := &Fixture{Chunks: []string{"Nova provides personalized mentoring for students."}}
	ctx := context.Background()
	engine, err := NewEngine(ctx, f)
	require.NoError(t, err)

	results := Replay(ctx, engine, []Case{
		{ID: "a", Question: "what is nova", ExpectKind: pipeline.KindFallback},
		{ID: "b", Question: "what is nova", ExpectKind: pipeline.KindAnswer, ExpectChunk: 5, CheckChunk: true},
	})
	require.Len(t, results, 2)
	assert.False(t, results[0].Match)
	assert.Contains(t, results[0].Reason, "expected fallback")
	assert.False(t, results[1].Match)
	assert.Contains(t, results[1].Reason, "expected chunk 5")
	assert.Equal(t, 2, Summarize(results).Mismatched)
}

func TestExportFixtureRoundTrip(t *testing.T) {
	build := artifact.Build{Chunks: []string{"Nova provides personalized mentoring for students."}}
	entries := []logging.VerdictEntry{
		{RequestID: "r3", Question: "what is nova", Kind: "answer", ChunkID: 0},
		{RequestID: "r2", Question: "hi", Kind: "greeting", ChunkID: -1},
		{RequestID: "r1", Question: "what is nova", Kind: "fallback", ChunkID: -1},
	}
	f := ExportFixture(build, entries, "exported")
	require.Len(t, f.Cases, 2)
	require.NotNil(t, f.Cases[0].ExpectChunk)
	assert.Equal(t, 0, *f.Cases[0].ExpectChunk)
	assert.Nil(t, f.Cases[1].ExpectChunk)

	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, WriteFixture(path, f))
	loaded, err := LoadFixture(path)
	require.NoError(t, err)

	ctx := context.Background()
	engine, err := NewEngine(ctx, loaded)
	require.NoError(t, err)
	s := Summarize(Replay(ctx, engine, loadCases(loaded)))
	assert.Equal(t, 2, s.Matched)
}

func TestCasesFromLog(t *testing.T) {
	cases := CasesFromLog([]logging.VerdictEntry{
		{RequestID: "a", Question: "q1", Kind: "answer", ChunkID: 4},
		{RequestID: "b", Question: "q2", Kind: "fallback", ChunkID: -1},
	})
	require.Len(t, cases, 2)
	assert.True(t, cases[0].CheckChunk)
	assert.Equal(t, 4, cases[0].ExpectChunk)
	assert.False(t, cases[1].CheckChunk)
}

type failingIndex struct{}

func (failingIndex) Mode() retrieval.Mode { return retrieval.ModeDense }

func (failingIndex) TopK(context.Context, string, int) ([]retrieval.Candidate, error) {
	return nil, retrieval.ErrEncoding
}

func TestReplayCountsEvaluationErrors(t *testing.T) {
	engine, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Deps{
		Index: failingIndex{},
		Gate:  gate.NewGate(gate.DefaultGateConfig()),
	})
	require.NoError(t, err)

	results := Replay(context.Background(), engine, []Case{
		{ID: "g", Question: "hello", ExpectKind: pipeline.KindGreeting},
		{ID: "e", Question: "what is nova", ExpectKind: pipeline.KindAnswer},
	})
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, retrieval.ErrEncoding)

	s := Summarize(results)
	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 1, s.Errors)
	assert.Zero(t, s.Mismatched)
}

func TestSummarizeUsesErrNotReasonText(t *testing.T) {
	s := Summarize([]CaseResult{
		{ID: "a", Reason: "error: looks like an error but is a mismatch"},
		{ID: "b", Reason: "expected answer, got fallback", Err: errors.New("boom")},
	})
	assert.Equal(t, 1, s.Mismatched)
	assert.Equal(t, 1, s.Errors)
}
