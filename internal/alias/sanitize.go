package alias

import (
	"strings"
	"unicode"
)

// illegalPathChars cannot appear in a file name on at least one common platform.
const illegalPathChars = `<>:"/\|?*`

// Sanitize replaces characters that are illegal in path segments with '_'.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(illegalPathChars, r) {
			return '_'
		}
		return r
	}, s)
}

// Truncate cuts s to at most max runes. Trailing spaces left by the cut are trimmed.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " ")
}
