package pipeline

import (
	"context"
	"time"

	"github.com/danielpatrickdp/nova-mentor/go-server/internal/intent"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/retrieval"
	"github.com/danielpatrickdp/nova-mentor/go-server/internal/selector"
)

// #region kind
// Kind is the category of a verdict.
type Kind string

const (
	KindGreeting      Kind = "greeting"
	KindFallback      Kind = "fallback"
	KindClarification Kind = "clarification"
	KindAnswer        Kind = "answer"
)

// #endregion kind

// #region verdict
// Verdict is the pipeline's answer to one normalized query.
type Verdict struct {
	Kind       Kind
	Text       string
	ChunkID    int // -1 unless Kind is KindAnswer
	Confidence float64
	Confident  bool
	Intent     intent.Intent
}

// #endregion verdict

// #region result
// Result is one served request.
type Result struct {
	RequestID string
	Question  string
	Verdict   Verdict
	Mode      retrieval.Mode
	Cached    bool
	Elapsed   time.Duration
}

// #endregion result

// #region responses
// Responses holds the canned texts for non-answer verdicts.
type Responses struct {
	Greeting      string `mapstructure:"greeting"`
	Fallback      string `mapstructure:"fallback"`
	Clarification string `mapstructure:"clarification"`
}

// DefaultResponses returns the Nova – My Mentor texts.
func DefaultResponses() Responses {
	return Responses{
		Greeting:      "Hello 😊 Welcome to Nova – My Mentor, your trusted digital learning companion. How can I help you today?",
		Fallback:      "I don't have specific information about that in my knowledge base. To give you accurate guidance, I can connect you with our support team. Would you like that?",
		Clarification: "Could you please provide more details about what you'd like to know about Nova – My Mentor?",
	}
}

// #endregion responses

// #region config
// Config holds engine settings.
type Config struct {
	TopK      int
	DebugTopN int // candidates logged per query at debug level
	Responses Responses
	Selector  selector.Config
}

// DefaultConfig returns top-5 retrieval with the default responses.
func DefaultConfig() Config {
	return Config{
		TopK:      5,
		DebugTopN: 3,
		Responses: DefaultResponses(),
		Selector:  selector.DefaultConfig(),
	}
}

// #endregion config

// #region hooks
// Recorder persists served results.
type Recorder interface {
	RecordVerdict(ctx context.Context, r Result) error
}

// Observer receives every served result, e.g. for metrics.
type Observer interface {
	ObserveResult(r Result)
}

// #endregion hooks
