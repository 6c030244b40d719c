package app

import "strings"

// Intent is what the driver asked for
type Intent int

const (
	IntentNone Intent = iota // nothing was heard
	IntentUnknown
	IntentExit
	IntentNavigation
)

func (i Intent) String() string {
	switch i {
	case IntentUnknown:
		return "unknown"
	case IntentExit:
		return "exit"
	case IntentNavigation:
		return "navigation"
	default:
		return "none"
	}
}

// IntentClassifier matches lower-cased keywords as substrings.
// Exit keywords win over navigation keywords.
type IntentClassifier struct {
	exit       []string
	navigation []string
}

// NewIntentClassifier creates a classifier from keyword sets
func NewIntentClassifier(exit, navigation []string) *IntentClassifier {
	return &IntentClassifier{
		exit:       normalize(exit),
		navigation: normalize(navigation),
	}
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Classify returns the intent of a transcript
func (c *IntentClassifier) Classify(text string) Intent {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return IntentNone
	}
	if containsAny(text, c.exit) {
		return IntentExit
	}
	if containsAny(text, c.navigation) {
		return IntentNavigation
	}
	return IntentUnknown
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
