package extraction

import (
	"strings"
	"unicode"
)

// Clean lowercases text, turns every rune that is not a letter, digit or
// whitespace into a space, collapses whitespace runs and trims the result.
// Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}
