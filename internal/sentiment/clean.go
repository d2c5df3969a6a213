package sentiment

import (
	"strings"
	"unicode"
)

// CleanText lowercases s and drops every rune that is neither a lowercase
// Latin letter nor whitespace. Digits, punctuation and accented letters are
// removed.
func CleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(s))
}
