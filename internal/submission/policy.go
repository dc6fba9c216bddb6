package submission

import (
	"fmt"
	"strings"

	"moderbot/internal/textutil"
)

// Policy holds the content rules a submission must satisfy.
type Policy struct {
	MinLength int
	MaxLength int
	Markers   []string
}

// Validate returns a user-facing message and false when text breaks a rule.
// Lengths count runes of the trimmed text.
func (p Policy) Validate(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "empty", false
	}
	n := textutil.RuneLen(trimmed)
	if p.MinLength > 0 && n < p.MinLength {
		return fmt.Sprintf("too short (min %d)", p.MinLength), false
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return fmt.Sprintf("too long (max %d)", p.MaxLength), false
	}
	if len(p.Markers) > 0 && !containsAny(trimmed, p.Markers) {
		return "must contain " + strings.Join(p.Markers, " or "), false
	}
	return "", true
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
