package intent

// #region imports
import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// #endregion

// #region patterns

// greetingPhrases match a whole normalized query, or prefix a query of at most
// maxGreetingWords words.
var greetingPhrases = []string{
	"hi", "hii", "hiii", "hello", "helo", "hellow", "hey", "heya",
	"good morning", "good afternoon", "good evening", "good night",
	"morning", "afternoon", "evening", "night",
	"namaste", "namaskar", "namaskaram",
	"howdy", "greetings", "sup", "wassup", "whatsup", "yo",
	"hai", "haii", "hlo", "hlw",
}

// unrelatedMarkers are substrings that put a query outside the knowledge base.
// Plain substring matching: "play" also matches "display".
var unrelatedMarkers = []string{
	"coding", "programming", "python", "java", "javascript", "html", "css", "c++",
	"software", "website", "app development", "machine learning", "ai course",
	"weather", "news", "cricket", "football", "movie", "song", "music",
	"recipe", "cooking", "food", "restaurant",
	"college", "university", "degree", "mbbs", "engineering entrance",
	"neet", "upsc", "ssc", "bank exam", "government job",
	"joke", "story", "game", "play",
}

const (
	maxGreetingWords = 3
	minQueryRunes    = 2
)

var greetingSet = func() map[string]bool {
	m := make(map[string]bool, len(greetingPhrases))
	for _, p := range greetingPhrases {
		m[p] = true
	}
	return m
}()

// #endregion patterns

// #region classify

// Classify decides whether a query short-circuits before retrieval.
// Order: greeting, unrelated topic, too short, candidate.
func Classify(query string) Intent {
	if IsGreeting(query) {
		return Greeting
	}
	if IsUnrelated(query) {
		return UnrelatedTopic
	}
	if utf8.RuneCountInString(strings.TrimSpace(query)) < minQueryRunes {
		return TooShort
	}
	return Candidate
}

// IsGreeting matches exact greeting phrases and short greeting-led queries.
func IsGreeting(query string) bool {
	q := Normalize(query)
	if q == "" {
		return false
	}
	if greetingSet[q] {
		return true
	}
	if len(strings.Fields(q)) > maxGreetingWords {
		return false
	}
	for _, p := range greetingPhrases {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// IsUnrelated reports whether the lowercased query contains an off-topic marker.
func IsUnrelated(query string) bool {
	lower := strings.ToLower(query)
	for _, m := range unrelatedMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// #endregion classify

// #region normalize

// Normalize lowercases, replaces punctuation with spaces and collapses whitespace.
func Normalize(query string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, query)
	return strings.Join(strings.Fields(mapped), " ")
}

// #endregion normalize
