package bill

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/categorize"
	"github.com/ravindran-dev/SmartSpend/internal/extraction"
)

const (
	successConfidenceImage = 0.8
	successConfidenceText  = 0.7
	sentinelConfidence     = 0.1
	noAmountConfidence     = 0.2
)

var (
	fallbackDecimals = regexp.MustCompile(`[0-9]{1,6}\.[0-9]{2}`)
	fallbackIntegers = regexp.MustCompile(`[0-9]{1,6}`)
	fallbackMin      = decimal.NewFromInt(10)
	fallbackMax      = decimal.NewFromInt(100000)
)

// foodHints are appended to the categorisation text so dish names buried in
// item lines still reach the classifier
var foodHints = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(chicken|mutton|fish|beef|pork|paneer)\b`),
	regexp.MustCompile(`(?i)\b(biryani|curry|naan|roti|paratha|rice)\b`),
	regexp.MustCompile(`(?i)\b(pizza|burger|sandwich|pasta)\b`),
	regexp.MustCompile(`(?i)\b(restaurant|cafe|dining|food|meal)\b`),
	regexp.MustCompile(`(?i)\b(angara|masala|tandoori|gravy|fried)\b`),
}

// Pipeline turns raw bill text into a Result
type Pipeline struct {
	classifier *categorize.Classifier
	dates      *extraction.DateExtractor
	timeSource extraction.TimeSource
}

// NewPipeline creates a Pipeline using the wall clock
func NewPipeline(classifier *categorize.Classifier) *Pipeline {
	return NewPipelineWithDeps(classifier, extraction.SystemTime())
}

// NewPipelineWithDeps creates a Pipeline with a custom clock for testing
func NewPipelineWithDeps(classifier *categorize.Classifier, timeSource extraction.TimeSource) *Pipeline {
	if classifier == nil {
		classifier = categorize.NewClassifier(nil)
	}
	return &Pipeline{
		classifier: classifier,
		dates:      extraction.NewDateExtractor(timeSource),
		timeSource: timeSource,
	}
}

// Process extracts vendor, amount, date, items and category from text. It
// never panics; unexpected failures come back as an unsuccessful Result.
func (p *Pipeline) Process(text string, source Source) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bill processing failed", "panic", r)
			result = Result{
				Success:       false,
				Error:         fmt.Sprintf("processing bill: %v", r),
				ExtractedText: text,
				Source:        source,
			}
		}
	}()

	if strings.TrimSpace(text) == "" ||
		strings.Contains(text, ManualEntrySentinel) ||
		strings.Contains(text, PDFExtractionFailedSentinel) {
		slog.Info("bill text unreadable, manual entry required", "source", source)
		return p.manualEntry(text, source, sentinelConfidence,
			"Could not read text from this bill. Please enter the details manually.")
	}

	vendor := extraction.ExtractVendor(text)
	amounts, currency := extraction.ExtractAmounts(text)
	date := p.dates.Extract(text)
	items := extraction.ExtractItems(text)

	var (
		amount decimal.Decimal
		ok     bool
	)
	if len(amounts) > 0 {
		amount, ok = amounts[0], true
	} else {
		amount, ok = fallbackAmount(text)
	}
	if !ok {
		slog.Info("no amount found in bill", "vendor", vendor, "source", source)
		res := p.manualEntry(text, source, noAmountConfidence,
			"Text was extracted but no amount could be found. Please enter the amount manually.")
		res.Vendor = vendor
		res.Currency = currency
		res.FormattedAmount = formatAmount(decimal.Zero, currency)
		res.Date = date
		res.Items = items
		return res
	}

	category := p.classifier.Categorize(categorizationText(vendor, items, text), amount)

	confidence := successConfidenceText
	if source == SourceImage {
		confidence = successConfidenceImage
	}

	slog.Info("bill processed",
		"vendor", vendor,
		"amount", amount.String(),
		"currency", currency,
		"category", category,
		"source", source,
	)

	return Result{
		Success:         true,
		Vendor:          vendor,
		Amount:          amount,
		FormattedAmount: formatAmount(amount, currency),
		Currency:        currency,
		Date:            date,
		Items:           items,
		Category:        category,
		Confidence:      confidence,
		ExtractedText:   text,
		Source:          source,
	}
}

func (p *Pipeline) manualEntry(text string, source Source, confidence float64, message string) Result {
	return Result{
		Success:             true,
		Vendor:              extraction.UnknownVendor,
		Amount:              decimal.Zero,
		FormattedAmount:     formatAmount(decimal.Zero, extraction.INR),
		Currency:            extraction.INR,
		Date:                p.timeSource.Now().Format(extraction.DateLayout),
		Items:               []string{},
		Category:            categorize.Other,
		Confidence:          confidence,
		ManualEntryRequired: true,
		ExtractedText:       text,
		Source:              source,
		Message:             message,
	}
}

// fallbackAmount takes the largest plausible number in the text, preferring
// numbers written with two decimals
func fallbackAmount(text string) (decimal.Decimal, bool) {
	for _, pattern := range []*regexp.Regexp{fallbackDecimals, fallbackIntegers} {
		best, found := decimal.Zero, false
		for _, raw := range pattern.FindAllString(text, -1) {
			v, err := decimal.NewFromString(raw)
			if err != nil || v.LessThan(fallbackMin) || v.GreaterThan(fallbackMax) {
				continue
			}
			if !found || v.GreaterThan(best) {
				best, found = v, true
			}
		}
		if found {
			return best, true
		}
	}
	return decimal.Zero, false
}

// categorizationText joins the vendor (unless it is a bill number line), the
// item lines and any food words found anywhere in the text
func categorizationText(vendor string, items []string, text string) string {
	var parts []string
	if vendor != "" && !strings.HasPrefix(vendor, "Bill No") {
		parts = append(parts, vendor)
	}
	parts = append(parts, items...)
	for _, hint := range foodHints {
		parts = append(parts, hint.FindAllString(text, -1)...)
	}
	return strings.Join(parts, " ")
}
