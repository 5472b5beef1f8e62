package extraction

import (
	"cmp"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
)

// NotLineBased marks candidates found by a whole-text pass
const NotLineBased = -1

// AmountCandidate is one number that might be the bill total
type AmountCandidate struct {
	Value      decimal.Decimal
	Confidence int
	LineIndex  int
	Source     string
}

var (
	minAmount = decimal.NewFromInt(1)
	maxAmount = decimal.NewFromInt(10_000_000)
)

// linePatterns run against every eligible line; the capture group holds the number
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)INR\s*([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`₹\s*([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)Rs\.?\s*([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)(?:grand\s+total|final\s+total|payable\s+amount)[:\s]+.*?(?:INR|₹|Rs\.?)\s*([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)(?:grand\s+total|final\s+total|payable\s+amount)[:\s]+([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)(?:total|amount|invoice\s+amount|bill\s+amount|net\s+total)[:\s]+.*?(?:INR|₹|Rs\.?)\s*([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)(?:total|amount|invoice\s+amount|bill\s+amount|net\s+total)[:\s]+([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)^.*(?:grand\s+total|final\s+total|payable).*?([0-9,]+\.?[0-9]*).*$`),
	regexp.MustCompile(`(?i)^.*grand.*?([0-9]+).*$`),
	regexp.MustCompile(`(?i)^.*(?:total|amount).*?([0-9,]+\.[0-9]{2}).*$`),
	regexp.MustCompile(`(?i)^.*([0-9,]+\.[0-9]{2}).*(?:INR|₹|Rs|total|amount).*$`),
	regexp.MustCompile(`([0-9]{1,2},[0-9]{3}\.[0-9]{2})`),
	regexp.MustCompile(`([0-9]{1,3},[0-9]{3})`),
	regexp.MustCompile(`(?i)([0-9]+\.[0-9]{2})\s*(?:INR|₹|Rs|$)`),
	// trailing 2-4 digit token that is not the fraction of a decimal
	regexp.MustCompile(`(?:^|[^0-9.])([0-9]{2,4})\s*$`),
	regexp.MustCompile(`\$\s*([0-9,]+\.?[0-9]*)`),
	regexp.MustCompile(`(?i)USD\s*([0-9,]+\.?[0-9]*)`),
}

var skipLineMarkers = []string{"ph:", "phone:", "tel:", "gst no", "gstin:", "pan:", "cin:", "bill no"}

var codeLine = regexp.MustCompile(`^[A-Z][0-9]{2,4}$`)

// ocrFixes rewrite known OCR corruptions of a total into a plain number
var ocrFixes = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`f([0-9,]+\s*[0-9]{3}\.?[0-9]*)`), "$1"},
	// "2, 400.06": a space inside the thousands group
	{regexp.MustCompile(`([0-9]{1,2}),\s+([0-9]{3})\.([0-9]{2})`), "$1$2.$3"},
}

var wordAmounts = []struct {
	pattern *regexp.Regexp
	value   decimal.Decimal
}{
	{regexp.MustCompile(`(?i)three\s+thousand\s+four\s+(?:_?wundred|hundred)`), decimal.NewFromInt(3400)},
	{regexp.MustCompile(`(?i)three\s+thousand\s+(?:and\s+)?four\s+hundred`), decimal.NewFromInt(3400)},
	{regexp.MustCompile(`(?i)four\s+thousand`), decimal.NewFromInt(4000)},
	{regexp.MustCompile(`(?i)five\s+thousand`), decimal.NewFromInt(5000)},
	{regexp.MustCompile(`(?i)two\s+thousand\s+(?:and\s+)?four\s+hundred`), decimal.NewFromInt(2400)},
}

// amountInWords read the number from capture group 1 when there is one,
// otherwise from the whole match
var amountInWords = []*regexp.Regexp{
	regexp.MustCompile(`(?im)amount.*?in.*?words?.*?([a-zA-Z\s_-]+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)(?:three|four|five|six|seven|eight|nine|ten).*?(?:thousand|hundred).*?(?:hundred|rupees|only)`),
}

var contextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:total|amount|rupees|rs\.?|₹)\s*[:\-\s]*([0-9,]{3,}(?:\.[0-9]{2})?)`),
	regexp.MustCompile(`(?i)([0-9,]{3,}(?:\.[0-9]{2})?)\s*(?:only|rupees|rs\.?)`),
	regexp.MustCompile(`(?i)(?:three|four|five)\s+thousand.*?([0-9,]{3,4})`),
}

var badContextMarkers = []string{
	"gstin", "gst", "tax", "pan", "cin", "ph:", "phone", "mobile", "email", "uid:",
	"invoice mo", "invoice no", "receipt no", "bill no", "order no", "@", ".com", "www.", "http",
}

var enhancedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:total|amount).*?([0-9,]{4})[^0-9]`),
	regexp.MustCompile(`(?i)([0-9]{4})\s*(?:\.00)?(?:\s*only)?\s*$`),
	regexp.MustCompile(`(?i)(?:rs|₹)\s*([0-9,]{3,})`),
	regexp.MustCompile(`(?i)([0-9]{4})\s*rupees`),
}

var standalonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([0-9]{2,3})$`),
	regexp.MustCompile(`^([0-9]{1,2}[oO]+)$`),
	regexp.MustCompile(`^([0-9]{2,3})\s*$`),
	regexp.MustCompile(`([0-9]{2,3})\s*$`),
	regexp.MustCompile(`^.*?([0-9]{2,3})\s*$`),
}

var (
	contextMin   = decimal.NewFromInt(1000)
	contextMax   = decimal.NewFromInt(50000)
	wordsMin     = decimal.NewFromInt(100)
	wordsMax     = decimal.NewFromInt(100000)
	proximityMin = decimal.NewFromInt(50)
	proximityMax = decimal.NewFromInt(500)
)

// DetectCurrency looks for INR markers first, then USD markers, and defaults to INR
func DetectCurrency(text string) Currency {
	upper := strings.ToUpper(text)
	for _, marker := range []string{"INR", "₹", "RUPEES", "RS."} {
		if strings.Contains(upper, marker) {
			return INR
		}
	}
	for _, marker := range []string{"USD", "$", "DOLLARS"} {
		if strings.Contains(upper, marker) {
			return USD
		}
	}
	return INR
}

// ExtractAmounts returns the deduplicated candidate values, best first, and
// the detected currency
func ExtractAmounts(text string) ([]decimal.Decimal, Currency) {
	candidates := AmountCandidates(text)
	values := make([]decimal.Decimal, 0, len(candidates))
	for _, c := range candidates {
		values = append(values, c.Value)
	}
	return values, DetectCurrency(text)
}

// AmountCandidates returns one candidate per distinct value ordered by
// confidence then value, both descending. The kept candidate for a value is
// the first one in that order.
func AmountCandidates(text string) []AmountCandidate {
	candidates := lineCandidates(text)
	candidates = append(candidates, supplementaryCandidates(text)...)

	slices.SortStableFunc(candidates, func(a, b AmountCandidate) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return b.Value.Cmp(a.Value)
	})

	unique := make([]AmountCandidate, 0, len(candidates))
	for _, c := range candidates {
		if slices.ContainsFunc(unique, func(u AmountCandidate) bool { return u.Value.Equal(c.Value) }) {
			continue
		}
		unique = append(unique, c)
	}
	return unique
}

func linePriority(lower string) int {
	switch {
	case containsAny(lower, "grand total", "final total", "payable amount"):
		return 3
	case strings.Contains(lower, "grand") && strings.ContainsAny(lower, "0123456789"):
		return 3
	case containsAny(lower, "net total", "amount payable"):
		return 2
	case containsAny(lower, "total", "amount", "invoice", "bill", "subtotal", "sum"):
		return 1
	}
	return 0
}

func lineCandidates(text string) []AmountCandidate {
	var out []AmountCandidate
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, skipLineMarkers...) || codeLine.MatchString(line) {
			continue
		}

		priority := linePriority(lower)
		for _, pattern := range linePatterns {
			for _, m := range pattern.FindAllStringSubmatch(line, -1) {
				value, ok := parseAmount(m[1])
				if !ok || !inRange(value, minAmount, maxAmount) {
					continue
				}
				out = append(out, AmountCandidate{
					Value:      value,
					Confidence: priority,
					LineIndex:  i,
					Source:     line,
				})
			}
		}
	}
	return out
}

func supplementaryCandidates(text string) []AmountCandidate {
	var out []AmountCandidate
	add := func(value decimal.Decimal, confidence int, source string) {
		out = append(out, AmountCandidate{
			Value:      value,
			Confidence: confidence,
			LineIndex:  NotLineBased,
			Source:     source,
		})
	}

	for _, fix := range ocrFixes {
		for _, idx := range fix.pattern.FindAllStringSubmatchIndex(text, -1) {
			rewritten := fix.pattern.ExpandString(nil, fix.replacement, text, idx)
			value, ok := parseAmount(string(rewritten))
			if ok && inRange(value, contextMin, contextMax) {
				add(value, 3, "ocr_fixed")
			}
		}
	}

	for _, w := range wordAmounts {
		if w.pattern.MatchString(text) {
			add(w.value, 4, "word_amount")
		}
	}

	for _, pattern := range amountInWords {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			words := m[len(m)-1]
			value, ok := wordsToNumber(words)
			if ok && inRange(value, wordsMin, wordsMax) {
				add(value, 3, "amount_in_words")
			}
		}
	}

	checker := newContextChecker(text)
	for _, pattern := range contextPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			value, ok := parseAmount(m[1])
			if !ok || !inRange(value, contextMin, contextMax) {
				continue
			}
			if checker.bad(m[1]) {
				slog.Debug("amount rejected by context", "amount", m[1])
				continue
			}
			add(value, 3, "context")
		}
	}

	for _, pattern := range enhancedPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			value, ok := parseAmount(m[1])
			if ok && inRange(value, contextMin, contextMax) {
				add(value, 2, "enhanced")
			}
		}
	}

	out = append(out, grandTotalProximity(text)...)
	return out
}

// grandTotalProximity catches bare two or three digit totals printed near a
// "grand" label, which OCR often separates from their label.
func grandTotalProximity(text string) []AmountCandidate {
	var out []AmountCandidate
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		clean := strings.TrimSpace(line)
		if clean == "" {
			continue
		}

		var near []string
		for j := max(0, i-3); j < min(len(lines), i+2); j++ {
			if j != i {
				near = append(near, strings.ToLower(lines[j]))
			}
		}
		if !strings.Contains(strings.Join(near, " "), "grand") && !strings.Contains(strings.ToLower(clean), "grand") {
			continue
		}

		for _, pattern := range standalonePatterns {
			for _, m := range pattern.FindAllStringSubmatch(clean, -1) {
				digits := strings.NewReplacer("o", "0", "O", "0").Replace(m[1])
				value, ok := parseAmount(digits)
				if !ok || !inRange(value, proximityMin, proximityMax) {
					continue
				}
				out = append(out, AmountCandidate{
					Value:      value,
					Confidence: 3,
					LineIndex:  i,
					Source:     clean,
				})
			}
		}
	}
	return out
}

// contextChecker reports whether any occurrence of a number sits within
// fifty characters of an identifier-like marker on the same line. Answers are
// cached per number since long documents repeat the same figures.
type contextChecker struct {
	lines []string
	seen  map[string]bool
}

const contextWindow = 50

func newContextChecker(text string) *contextChecker {
	return &contextChecker{
		lines: strings.Split(text, "\n"),
		seen:  make(map[string]bool),
	}
}

func (c *contextChecker) bad(raw string) bool {
	if bad, ok := c.seen[raw]; ok {
		return bad
	}
	bad := c.scan(raw)
	c.seen[raw] = bad
	return bad
}

func (c *contextChecker) scan(raw string) bool {
	if raw == "" {
		return false
	}
	for _, line := range c.lines {
		for offset := 0; ; {
			i := strings.Index(line[offset:], raw)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(raw)
			window := line[backRunes(line, start, contextWindow):forwardRunes(line, end, contextWindow)]
			if containsAny(strings.ToLower(window), badContextMarkers...) {
				return true
			}
			offset = start + 1
		}
	}
	return false
}

// backRunes returns the byte offset n runes before i in s
func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// forwardRunes returns the byte offset n runes after i in s
func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

var numberWords = map[string]int64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// wordsToNumber reads "three thousand four hundred only" style amounts
func wordsToNumber(words string) (decimal.Decimal, bool) {
	words = strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(words))

	var total, current int64
	found := false
	for _, w := range strings.Fields(words) {
		w = strings.Trim(w, ".,")
		if n, ok := numberWords[w]; ok {
			current += n
			found = true
			continue
		}
		switch w {
		case "hundred", "wundred":
			current *= 100
		case "thousand":
			total += current * 1000
			current = 0
		case "lakh", "lakhs":
			total += current * 100000
			current = 0
		}
	}
	if !found {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(total + current), true
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.Join(strings.Fields(s), ""), ",", "")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		slog.Debug("unparseable amount candidate", "raw", s, "error", err)
		return decimal.Zero, false
	}
	return v, true
}

func inRange(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
