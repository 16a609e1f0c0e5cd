// Package sanitize prepares raw document text for embedding in grading
// requests. Extracted text frequently carries null bytes, form feeds and
// stray control characters that break a single-line JSON payload.
package sanitize

import (
	"strings"
	"unicode"
)

// Sentinel markers wrapped around single-line output so the grading model can
// delimit the free text unambiguously inside the payload.
const (
	StartMarker = "[[ASSIGNMENT]]"
	EndMarker   = "[[/ASSIGNMENT]]"
)

// Clean normalizes raw document text while keeping line structure. Null
// bytes are removed, carriage returns and form feeds become newlines, and
// control characters outside the printable range are dropped. Extended
// Unicode text is preserved. Clean is idempotent and never fails.
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			builder.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		builder.WriteRune(r)
	}

	return strings.TrimSpace(builder.String())
}

// SingleLine produces a one-line rendition of the document wrapped in the
// sentinel markers. All whitespace runs collapse to a single space. Applying
// SingleLine to its own output returns the same string.
func SingleLine(raw string) string {
	text := Clean(raw)
	text = strings.Join(strings.Fields(text), " ")

	if strings.HasPrefix(text, StartMarker) && strings.HasSuffix(text, EndMarker) {
		return text
	}

	parts := []string{StartMarker}
	if text != "" {
		parts = append(parts, text)
	}
	parts = append(parts, EndMarker)

	return strings.Join(parts, " ")
}
