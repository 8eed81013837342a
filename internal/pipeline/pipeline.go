package pipeline

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/cache"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/gate"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/intent"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/selector"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/workerpool"
)

// #endregion

// #region engine-struct

// Engine runs classify → retrieve → gate → select for each question and
// memoizes verdicts by normalized query.
type Engine struct {
	config   Config
	index    retrieval.Index
	gate     *gate.Gate
	selector *selector.Selector
	cache    *cache.Cache[Verdict]
	pool     *workerpool.Pool
	recorder Recorder
	observer Observer
	log      *zap.Logger
}

// Deps are the collaborators an Engine is wired with. Pool, Recorder,
// Observer and Log are optional.
type Deps struct {
	Index    retrieval.Index
	Gate     *gate.Gate
	Cache    *cache.Cache[Verdict]
	Pool     *workerpool.Pool
	Recorder Recorder
	Observer Observer
	Log      *zap.Logger
}

// #endregion

// #region constructor

// New wires an engine.
func New(config Config, deps Deps) (*Engine, error) {
	if deps.Index == nil {
		return nil, errors.New("pipeline: index is required")
	}
	if deps.Gate == nil {
		return nil, errors.New("pipeline: gate is required")
	}
	if config.TopK <= 0 {
		return nil, fmt.Errorf("pipeline: top-k must be positive, got %d", config.TopK)
	}
	if deps.Cache == nil {
		c, err := cache.New[Verdict](cache.Config{Enabled: false})
		if err != nil {
			return nil, err
		}
		deps.Cache = c
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		config:   config,
		index:    deps.Index,
		gate:     deps.Gate,
		selector: selector.New(config.Selector),
		cache:    deps.Cache,
		pool:     deps.Pool,
		recorder: deps.Recorder,
		observer: deps.Observer,
		log:      log.Named("pipeline"),
	}, nil
}

// Mode reports the retrieval mode chosen at startup.
func (e *Engine) Mode() retrieval.Mode { return e.index.Mode() }

// Gate returns the confidence gate.
func (e *Engine) Gate() *gate.Gate { return e.gate }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// CacheStats returns the result cache counters.
func (e *Engine) CacheStats() cache.Stats { return e.cache.Stats() }

// ClearCache drops all memoized verdicts and resets counters.
func (e *Engine) ClearCache() {
	e.cache.Clear()
	e.log.Info("cache cleared")
}

// PoolStats returns worker pool counters, zero when running inline.
func (e *Engine) PoolStats() workerpool.Stats {
	if e.pool == nil {
		return workerpool.Stats{}
	}
	return e.pool.Stats()
}

// #endregion

// #region answer

// Answer serves one question. Every well-formed question yields a verdict;
// the error is non-nil only when ctx ends or the worker pool is closed
// before the pipeline runs.
func (e *Engine) Answer(ctx context.Context, question string) (Result, error) {
	start := time.Now()
	res := Result{
		RequestID: uuid.New().String(),
		Question:  question,
		Mode:      e.index.Mode(),
	}

	run := func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("pipeline panic, serving fallback",
					zap.String("request_id", res.RequestID),
					zap.Any("panic", r),
				)
				res.Verdict = e.verdict(KindFallback, intent.Candidate, 0, false)
				res.Cached = false
			}
		}()
		v, hit, err := e.cache.GetOrCompute(question, func() (Verdict, error) {
			return e.Evaluate(ctx, cache.Normalize(question))
		})
		if err != nil {
			e.log.Warn("retrieval failed, serving fallback",
				zap.String("request_id", res.RequestID),
				zap.Error(err),
			)
		}
		res.Verdict = v
		res.Cached = hit
	}

	if e.pool != nil {
		if err := e.pool.Do(ctx, run); err != nil {
			return Result{}, fmt.Errorf("answer: %w", err)
		}
	} else {
		run()
	}
	res.Elapsed = time.Since(start)

	e.log.Info("answered",
		zap.String("request_id", res.RequestID),
		zap.String("question", question),
		zap.String("kind", string(res.Verdict.Kind)),
		zap.Int("chunk", res.Verdict.ChunkID),
		zap.Float64("confidence", res.Verdict.Confidence),
		zap.Bool("confident", res.Verdict.Confident),
		zap.Bool("cached", res.Cached),
		zap.Duration("elapsed", res.Elapsed),
	)

	if e.observer != nil {
		e.observer.ObserveResult(res)
	}
	if e.recorder != nil {
		if err := e.recorder.RecordVerdict(ctx, res); err != nil {
			e.log.Warn("record verdict", zap.Error(err))
		}
	}
	return res, nil
}

// #endregion

// #region evaluate

// Evaluate computes a verdict without the cache. On a retrieval error it
// returns the fallback verdict together with the error so callers can avoid
// memoizing it.
func (e *Engine) Evaluate(ctx context.Context, query string) (Verdict, error) {
	in := intent.Classify(query)
	switch in {
	case intent.Greeting:
		return e.verdict(KindGreeting, in, 1.0, true), nil
	case intent.UnrelatedTopic:
		return e.verdict(KindFallback, in, 0, false), nil
	case intent.TooShort:
		return e.verdict(KindClarification, in, 0, false), nil
	}

	cands, err := e.index.TopK(ctx, query, e.config.TopK)
	if err != nil {
		return e.verdict(KindFallback, in, 0, false), fmt.Errorf("top-k: %w", err)
	}
	e.logCandidates(query, cands)

	d := e.gate.Decide(cands, query)
	if !d.Confident {
		e.log.Debug("not confident", zap.String("reason", d.Reason))
		return e.verdict(KindFallback, in, d.TopScore, false), nil
	}

	best := e.selector.Select(cands, d.Threshold)
	e.log.Debug("selected",
		zap.Int("chunk", best.ChunkID),
		zap.Float64("score", best.Score),
		zap.Float64("confidence", d.TopScore),
	)
	return Verdict{
		Kind:       KindAnswer,
		Text:       best.Text,
		ChunkID:    best.ChunkID,
		Confidence: d.TopScore,
		Confident:  true,
		Intent:     in,
	}, nil
}

func (e *Engine) verdict(kind Kind, in intent.Intent, confidence float64, confident bool) Verdict {
	var text string
	switch kind {
	case KindGreeting:
		text = e.config.Responses.Greeting
	case KindClarification:
		text = e.config.Responses.Clarification
	default:
		text = e.config.Responses.Fallback
	}
	return Verdict{Kind: kind, Text: text, ChunkID: -1, Confidence: confidence, Confident: confident, Intent: in}
}

func (e *Engine) logCandidates(query string, cands []retrieval.Candidate) {
	if ce := e.log.Check(zap.DebugLevel, "candidates"); ce != nil {
		n := min(len(cands), e.config.DebugTopN)
		fields := []zap.Field{
			zap.String("query", query),
			zap.String("mode", string(e.index.Mode())),
			zap.Int("count", len(cands)),
		}
		for i := 0; i < n; i++ {
			fields = append(fields, zap.String(fmt.Sprintf("top%d", i+1),
				fmt.Sprintf("%.4f #%d %s", cands[i].Score, cands[i].ChunkID, preview(cands[i].Text, 80))))
		}
		ce.Write(fields...)
	}
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// #endregion
