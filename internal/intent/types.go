package intent

// #region intent
// Intent is the pre-retrieval classification of a query.
type Intent string

const (
	Greeting       Intent = "greeting"
	UnrelatedTopic Intent = "unrelated_topic"
	TooShort       Intent = "too_short"
	Candidate      Intent = "candidate" // proceed to retrieval
)

// ShortCircuits reports whether the intent bypasses retrieval.
func (i Intent) ShortCircuits() bool {
	return i != Candidate
}

// #endregion intent
