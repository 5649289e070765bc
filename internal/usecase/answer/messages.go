package answer

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/askdex/internal/domain/confidence"
)

// Fixed user-facing texts. Upstream errors never reach the user verbatim.
const (
	notFoundText = "Sorry, I couldn't find anything in the study material that answers this question. " +
		"Try rephrasing it, or ask your instructor."
	notFoundSummary = "No matching material found."
	apologyText     = "Sorry, I had trouble writing the answer just now. Please try again in a moment."

	veryLowNote = "Note: this answer may not be accurate. Please check it with your instructor."
	lowNote     = "If anything is still unclear, ask your instructor."

	referenceMarker = " (for reference)"
)

// closingNote returns the hedge appended to weak answers, or "".
func closingNote(level confidence.Level) string {
	switch level {
	case confidence.VeryLow:
		return veryLowNote
	case confidence.Low:
		return lowNote
	default:
		return ""
	}
}

// withNote appends the closing note for level as its own paragraph.
func withNote(text string, level confidence.Level) string {
	note := closingNote(level)
	if note == "" {
		return text
	}
	return text + "\n\n" + note
}

// summarize shortens text to whole sentences within maxChars runes and marks weak answers.
func summarize(text string, level confidence.Level, maxChars int) string {
	s := shorten(text, maxChars)
	if level.IsWeak() {
		s += referenceMarker
	}
	return s
}

// shorten keeps leading '.'-terminated sentences while they fit in maxChars runes.
// When not even the first sentence fits, the text is cut hard and marked with "...".
func shorten(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	var b strings.Builder
	for _, sentence := range strings.SplitAfter(text, ".") {
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(sentence) > maxChars {
			break
		}
		b.WriteString(sentence)
	}

	if out := strings.TrimSpace(b.String()); out != "" {
		return out
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxChars])) + "..."
}
