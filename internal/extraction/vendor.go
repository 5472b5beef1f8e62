package extraction

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownVendor is returned when no vendor candidate is found
const UnknownVendor = "Unknown Vendor"

var vendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Supplier[:\s]+(.+)`),
	regexp.MustCompile(`(?i)Vendor[:\s]+(.+)`),
	regexp.MustCompile(`(?i)Company[:\s]+(.+)`),
	regexp.MustCompile(`(?i)([A-Z][a-z]+ (?:SOFTWARE|LABS|PVT|LTD|INC|CORP|COMPANY|TOOLS|FREIGHT|INDUSTRIES|ENTERPRISES).+)`),
	regexp.MustCompile(`(?i)([A-Z][A-Za-z\s]+ (?:Pvt\.?\s*Ltd\.?|Inc\.?|Corp\.?|Tools|Freight))`),
}

var vendorSkipMarkers = []string{
	"tax invoice", "receipt", "bill no", "date:", "time:", "gstin", "pan:",
	"address:", "phone:", "email:", "web:", "customer", "store id", "till:",
}

var companyIndicators = []string{
	"limited", "pvt", "ltd", "inc", "corp", "labs", "software", "tools", "freight",
	"industries", "enterprises", "manufacturing", "supply", "services", "brands",
}

var businessIndicators = []string{"pvt", "ltd", "labs", "tools", "freight", "manufacturing"}

// knownBrands are checked in order; earlier entries win an exact match
var knownBrands = []string{
	"allen solly", "van heusen", "louis philippe", "peter england", "arrow", "raymond",
	"zara", "h&m", "uniqlo", "nike", "adidas", "puma", "reebok", "westside",
	"max fashion", "pantaloons", "big bazaar", "reliance trends", "shoppers stop",
	"central", "brand factory",
}

// ExtractVendor picks the merchant name from bill text, or UnknownVendor
func ExtractVendor(text string) string {
	candidates := vendorCandidates(text)
	if len(candidates) == 0 {
		return UnknownVendor
	}
	return strings.TrimSpace(pickVendor(candidates))
}

func vendorCandidates(text string) []string {
	var candidates []string
	for _, pattern := range vendorPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if c := strings.TrimSpace(m[1]); c != "" {
				candidates = append(candidates, c)
			}
		}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines[:min(8, len(lines))] {
		line = strings.TrimSpace(line)
		length := utf8.RuneCountInString(line)
		if length <= 3 || isAllDigits(line) {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, vendorSkipMarkers...) {
			continue
		}
		switch {
		case isUpper(line) && length > 5:
			candidates = append(candidates, line)
		case containsAny(lower, companyIndicators...):
			candidates = append(candidates, line)
		case i <= 2 && length > 10:
			candidates = append(candidates, line)
		}
	}
	return candidates
}

func pickVendor(candidates []string) string {
	for _, c := range candidates {
		lower := strings.ToLower(strings.TrimSpace(c))
		squashed := strings.ReplaceAll(lower, " ", "")
		for _, brand := range knownBrands {
			if lower == brand || squashed == strings.ReplaceAll(brand, " ", "") {
				return c
			}
		}
	}

	var branded []string
	for _, c := range candidates {
		lower := strings.ToLower(c)
		if slices.ContainsFunc(knownBrands, func(b string) bool { return strings.Contains(lower, b) }) {
			branded = append(branded, c)
		}
	}
	if len(branded) > 0 {
		slices.SortStableFunc(branded, func(a, b string) int {
			return utf8.RuneCountInString(a) - utf8.RuneCountInString(b)
		})
		return branded[0]
	}

	for _, c := range candidates {
		upper := strings.ToUpper(c)
		if strings.Contains(upper, "LIMITED") || strings.Contains(upper, "BRANDS") {
			return c
		}
	}

	for _, c := range candidates {
		if isUpper(c) && utf8.RuneCountInString(c) > 5 {
			return c
		}
	}

	for _, c := range candidates {
		if containsAny(strings.ToLower(c), businessIndicators...) {
			return c
		}
	}

	return candidates[0]
}

// isUpper reports whether s has at least one cased letter and no lowercase ones
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
