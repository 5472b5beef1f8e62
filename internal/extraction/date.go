package extraction

import (
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format every extracted date is returned in
const DateLayout = "2006-01-02"

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time {
	return time.Now()
}

// SystemTime returns a TimeSource backed by the wall clock
func SystemTime() TimeSource {
	return systemTime{}
}

const monthNames = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*`

// datePatterns are tried in order. Index 0 is the bare ISO form and earns the
// ISO bonus.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(?i)(?:invoice\s+date|bill\s+date|date)[:\s]*(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(?i)(?:invoice\s+date|bill\s+date|date)[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)(?:invoice\s+date|bill\s+date|date)[:\s]*(\d{1,2}\s+` + monthNames + `\s+\d{4})`),
	regexp.MustCompile(`(?i)dated[:\s]*(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(?i)dated[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)(\d{1,2}\s+` + monthNames + `\s+\d{4})`),
	regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`),
	regexp.MustCompile(`(00/\d{2}/\d{4})`),
}

var dateKeywords = []string{"date:", "invoice date:", "bill date:", "dated:", "on:"}

var (
	isoDate     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	numericDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	namedDate   = regexp.MustCompile(`(?i)^(\d{1,2})\s+([a-z]+)\s+(\d{4})$`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

type dateCandidate struct {
	raw        string
	parsed     time.Time
	formatted  string
	confidence float64
}

// DateExtractor picks the most plausible transaction date out of bill text
type DateExtractor struct {
	timeSource TimeSource
}

// NewDateExtractor creates a DateExtractor reading "today" from timeSource
func NewDateExtractor(timeSource TimeSource) *DateExtractor {
	if timeSource == nil {
		timeSource = SystemTime()
	}
	return &DateExtractor{timeSource: timeSource}
}

// Extract returns the best date in YYYY-MM-DD form. It never returns an empty
// string: when nothing plausible is found, or the winner is more than a year
// stale, today's date is returned.
func (d *DateExtractor) Extract(text string) string {
	now := d.timeSource.Now()
	today := now.Format(DateLayout)

	var candidates []dateCandidate
	seenRaw := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		hasKeyword := slices.ContainsFunc(dateKeywords, func(k string) bool {
			return strings.Contains(lower, k)
		})

		for i, pattern := range datePatterns {
			for _, m := range pattern.FindAllStringSubmatch(line, -1) {
				raw := m[1]
				if seenRaw[raw] {
					continue
				}
				seenRaw[raw] = true

				fixed := raw
				if strings.Contains(fixed, "00/") {
					fixed = strings.ReplaceAll(fixed, "00/", "10/")
				}

				parsed, ok := parseDate(fixed)
				if !ok {
					slog.Debug("unparseable date candidate", "raw", raw)
					continue
				}
				if parsed.Year() < 1990 || parsed.Year() > now.Year()+1 {
					slog.Debug("date outside plausible years", "raw", raw, "year", parsed.Year())
					continue
				}

				formatted := parsed.Format(DateLayout)
				if slices.ContainsFunc(candidates, func(c dateCandidate) bool { return c.formatted == formatted }) {
					continue
				}

				confidence := 1.0
				if hasKeyword {
					confidence += 1.0
				}
				if i == 0 {
					confidence += 1.0
				}
				if parsed.Year() >= now.Year()-10 {
					confidence += 0.5
				}

				candidates = append(candidates, dateCandidate{
					raw:        raw,
					parsed:     parsed,
					formatted:  formatted,
					confidence: confidence,
				})
			}
		}
	}

	if len(candidates) == 0 {
		return today
	}

	slices.SortStableFunc(candidates, func(a, b dateCandidate) int {
		switch {
		case a.confidence > b.confidence:
			return -1
		case a.confidence < b.confidence:
			return 1
		}
		return 0
	})

	best := candidates[0]
	if best.parsed.Year() < now.Year()-1 {
		slog.Debug("best date is stale, using today", "date", best.formatted)
		return today
	}
	return best.formatted
}

// parseDate understands ISO dates, numeric D/M/Y or M/D/Y dates and
// "15 Oct 2024" style dates. Numeric dates are read month first when the first
// field can be a month.
func parseDate(s string) (time.Time, bool) {
	if m := isoDate.FindStringSubmatch(s); m != nil {
		t, err := time.Parse(DateLayout, s)
		return t, err == nil
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := buildDate(year, a, b); ok {
			return t, true
		}
		return buildDate(year, b, a)
	}

	if m := namedDate.FindStringSubmatch(s); m != nil {
		name := strings.ToLower(m[2])
		if len(name) < 3 {
			return time.Time{}, false
		}
		month, ok := monthsByPrefix[name[:3]]
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		return buildDate(year, int(month), day)
	}

	return time.Time{}, false
}

// buildDate rejects dates that time.Date would silently normalise
func buildDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
