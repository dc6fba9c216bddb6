package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes s to NFC and applies Unicode case folding, so "СПАМ",
// "спам", and "Спам" compare equal. Surrounding whitespace is trimmed.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// ContainsFolded returns the first needle found in haystack after folding both.
// Needles are expected to be folded already.
func ContainsFolded(haystack string, needles []string) (string, bool) {
	folded := Fold(haystack)
	for _, needle := range needles {
		if needle != "" && strings.Contains(folded, needle) {
			return needle, true
		}
	}
	return "", false
}
