package domain

import "strings"

// Category is the coarse label assigned to an incoming message.
type Category string

const (
	CategoryCode        Category = "code"
	CategoryExplanation Category = "explanation"
	CategoryStrategic   Category = "strategic"
)

var (
	codeKeywords      = []string{"code", "script", "function", "python", "javascript", "react", "flask"}
	strategicKeywords = []string{"strategy", "career", "advice", "growth", "project", "leadership"}
)

// Classify returns the first category whose keywords appear in text as a
// case-insensitive substring. Code keywords win over strategic ones.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, codeKeywords):
		return CategoryCode
	case containsAny(lower, strategicKeywords):
		return CategoryStrategic
	default:
		return CategoryExplanation
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
