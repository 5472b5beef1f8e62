package extraction

import (
	"regexp"
	"strings"
)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`\d`)
)

var itemExclusions = []string{"total", "subtotal", "tax", "receipt", "thank you"}

// ExtractItems returns the trimmed lines that look like line items: they
// contain a letter and a digit and are not totals, tax lines or footers.
func ExtractItems(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !hasLetter.MatchString(line) || !hasDigit.MatchString(line) {
			continue
		}
		if containsAny(strings.ToLower(line), itemExclusions...) {
			continue
		}
		items = append(items, line)
	}
	return items
}
