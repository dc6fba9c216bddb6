package textutil

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Preview shortens s to at most limit runes, appending "..." when cut.
func Preview(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// RuneLen counts user-visible characters the way the length policy does.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// EscapeHTML escapes text for Bot API messages sent with parse_mode=HTML.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
