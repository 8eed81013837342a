package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/artifact"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/chunkstore"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/embedding"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/logging"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/pipeline"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
)

// #region types
// Case is one question to replay.
type Case struct {
	ID          string
	Question    string
	ExpectKind  pipeline.Kind
	ExpectChunk int
	CheckChunk  bool
}

// CaseResult is the outcome of replaying one case.
type CaseResult struct {
	ID       string
	Question string
	Expected pipeline.Kind
	Verdict  pipeline.Verdict
	Match    bool
	Reason   string
	Err      error // evaluation error, nil when the case ran
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total      int
	Matched    int
	Mismatched int
	Errors     int
	ByKind     map[pipeline.Kind]int
}

// #endregion types

// #region engine

// NewEngine builds an uncached engine over the fixture's chunks.
func NewEngine(ctx context.Context, f *Fixture) (*pipeline.Engine, error) {
	enc, err := embedding.New(f.Config.ToEncoderConfig())
	if err != nil {
		return nil, fmt.Errorf("fixture encoder: %w", err)
	}
	build := artifact.Build{Chunks: f.Chunks}
	if enc != nil {
		vecs, err := enc.EmbedDocuments(ctx, f.Chunks)
		if err != nil {
			return nil, fmt.Errorf("embed fixture chunks: %w", err)
		}
		build.Vectors = vecs
		build.Encoder = enc.Name()
		if len(vecs) > 0 {
			build.Dimension = len(vecs[0])
		}
	}
	return EngineForBuild(ctx, build, enc, f.Config.ToGateConfig(), f.Config.TopK)
}

// EngineForBuild wires an uncached engine for an existing build.
func EngineForBuild(ctx context.Context, b artifact.Build, enc embedding.Encoder, gc gate.GateConfig, topK int) (*pipeline.Engine, error) {
	if err := gc.Validate(); err != nil {
		return nil, err
	}
	store := chunkstore.New(b.Chunks)
	idx := retrieval.New(ctx, b, store, enc, retrieval.DefaultLexicalConfig(), nil)
	cfg := pipeline.DefaultConfig()
	if topK > 0 {
		cfg.TopK = topK
	}
	return pipeline.New(cfg, pipeline.Deps{Index: idx, Gate: gate.NewGate(gc)})
}

// #endregion engine

// #region replay

// Replay evaluates every case without the cache and compares the verdict
// kind, and the chunk when the case names one.
func Replay(ctx context.Context, engine *pipeline.Engine, cases []Case) []CaseResult {
	results := make([]CaseResult, 0, len(cases))
	for _, c := range cases {
		r := CaseResult{ID: c.ID, Question: c.Question, Expected: c.ExpectKind}
		v, err := engine.Evaluate(ctx, c.Question)
		r.Verdict = v
		switch {
		case err != nil:
			r.Err = err
			r.Reason = fmt.Sprintf("error: %v", err)
		case v.Kind != c.ExpectKind:
			r.Reason = fmt.Sprintf("expected %s, got %s", c.ExpectKind, v.Kind)
		case c.CheckChunk && v.ChunkID != c.ExpectChunk:
			r.Reason = fmt.Sprintf("expected chunk %d, got %d", c.ExpectChunk, v.ChunkID)
		default:
			r.Match = true
			r.Reason = fmt.Sprintf("%s confidence=%.3f", v.Kind, v.Confidence)
		}
		results = append(results, r)
	}
	return results
}

// CasesFromLog turns logged verdicts into cases expecting the same kind and chunk.
func CasesFromLog(entries []logging.VerdictEntry) []Case {
	cases := make([]Case, 0, len(entries))
	for _, e := range entries {
		c := Case{ID: e.RequestID, Question: e.Question, ExpectKind: pipeline.Kind(e.Kind), ExpectChunk: e.ChunkID}
		c.CheckChunk = e.Kind == string(pipeline.KindAnswer)
		cases = append(cases, c)
	}
	return cases
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []CaseResult) Summary {
	s := Summary{Total: len(results), ByKind: make(map[pipeline.Kind]int)}
	for _, r := range results {
		s.ByKind[r.Verdict.Kind]++
		switch {
		case r.Err != nil:
			s.Errors++
		case r.Match:
			s.Matched++
		default:
			s.Mismatched++
		}
	}
	return s
}

// #endregion replay
