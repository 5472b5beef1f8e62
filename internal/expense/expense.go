package expense

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
)

// ErrNotFound is returned when an expense or bill does not exist
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected field in user input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Expense represents a confirmed spend, either entered by hand or reviewed
// after a bill scan
type Expense struct {
	ID        string          `json:"id"`
	Vendor    string          `json:"vendor"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Category  string          `json:"category"`
	Date      string          `json:"date"` // YYYY-MM-DD
	Items     []string        `json:"items"`
	BillID    string          `json:"bill_id,omitempty"` // ID of the scanned bill this expense came from
	CreatedAt time.Time       `json:"created_at"`
}

// NewExpense is the input for recording an expense. Amount is a pointer so a
// missing amount can be told apart from zero.
type NewExpense struct {
	Vendor   string           `json:"vendor"`
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency"`
	Category string           `json:"category"`
	Date     string           `json:"date"`
	Items    []string         `json:"items"`
	BillID   string           `json:"bill_id"`
}

// BillUpload is a stored bill file together with what was read from it
type BillUpload struct {
	ID           string      `json:"id"`
	Filename     string      `json:"filename"` // storage path
	OriginalName string      `json:"original_name"`
	ContentType  string      `json:"content_type"`
	Result       bill.Result `json:"result"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Filter narrows ListExpenses. Empty fields match everything.
type Filter struct {
	StartDate string
	EndDate   string
	Category  string
}

// AllCategories is the category filter value that disables category filtering
const AllCategories = "All Categories"

func (f Filter) matches(e *Expense) bool {
	if f.StartDate != "" && e.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && e.Date > f.EndDate {
		return false
	}
	if f.Category != "" && f.Category != AllCategories && e.Category != f.Category {
		return false
	}
	return true
}
