package stringprocessing

import "strings"

// Ellipsis marks a truncated excerpt.
const Ellipsis = "..."

// Excerpt returns the first limit runes of text, followed by Ellipsis when text is longer.
func Excerpt(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + Ellipsis
}

// NormalizeInput lowercases and trims text before keyword matching.
func NormalizeInput(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// SingleLine collapses runs of whitespace, including newlines, into single spaces.
// Used for one-line previews of multi-line messages.
func SingleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
