package grading

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	// Place a multi-byte rune straddling the truncation offset.
	body := strings.Repeat("a", snippetLimit-1) + "日本語テキスト"

	out := snippet([]byte(body))
	require.True(t, utf8.ValidString(out))
	require.True(t, strings.HasSuffix(out, "..."))
	require.Equal(t, snippetLimit, utf8.RuneCountInString(strings.TrimSuffix(out, "...")))
}

func TestSnippetKeepsShortBodiesIntact(t *testing.T) {
	require.Equal(t, "not json", snippet([]byte("not json")))
}
