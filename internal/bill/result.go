package bill

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/extraction"
)

// Markers a text source emits instead of bill text when it could not read the document
const (
	ManualEntrySentinel         = "MANUAL_ENTRY_REQUIRED"
	PDFExtractionFailedSentinel = "PDF_EXTRACTION_FAILED"
)

// Source says where the bill text came from
type Source string

const (
	SourceImage Source = "image"
	SourcePDF   Source = "pdf"
	SourceText  Source = "text"
)

// Result is the structured outcome of processing one bill
type Result struct {
	Success             bool                `json:"success"`
	Vendor              string              `json:"vendor"`
	Amount              decimal.Decimal     `json:"amount"`
	FormattedAmount     string              `json:"formatted_amount"`
	Currency            extraction.Currency `json:"currency"`
	Date                string              `json:"date"`
	Items               []string            `json:"items"`
	Category            string              `json:"category"`
	Confidence          float64             `json:"confidence"`
	ManualEntryRequired bool                `json:"manual_entry_required"`
	ExtractedText       string              `json:"extracted_text"`
	Source              Source              `json:"source,omitempty"`
	Message             string              `json:"message,omitempty"`
	Error               string              `json:"error,omitempty"`
}

// formatAmount renders amount with the currency's symbol and grouping, e.g. ₹3,400.00
func formatAmount(amount decimal.Decimal, currency extraction.Currency) string {
	code := string(currency)
	if money.GetCurrency(code) == nil {
		code = money.INR
	}
	return money.New(amount.Shift(2).Round(0).IntPart(), code).Display()
}
