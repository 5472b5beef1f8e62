package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
	"github.com/ravindran-dev/SmartSpend/internal/categorize"
	"github.com/ravindran-dev/SmartSpend/internal/extraction"
	"github.com/ravindran-dev/SmartSpend/internal/scanning"
)

// DefaultUSDToINR converts USD expenses for analytics
var DefaultUSDToINR = decimal.NewFromInt(80)

var supportedCurrencies = []string{string(extraction.INR), string(extraction.USD)}

// IDGenerator generates unique IDs for expenses and bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles bill scanning and expense bookkeeping
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	classifier  *categorize.Classifier
	pipeline    *bill.Pipeline
	idGenerator IDGenerator
	timeSource  TimeSource
	usdToINR    decimal.Decimal
}

// NewService creates a new Service with UUIDs and the wall clock
func NewService(db DB, scanner scanning.Scanner, storage Storage, classifier *categorize.Classifier) *Service {
	return NewServiceWithDeps(db, scanner, storage, classifier, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, classifier *categorize.Classifier, idGen IDGenerator, timeSrc TimeSource) *Service {
	if classifier == nil {
		classifier = categorize.NewClassifier(nil)
	}
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		classifier:  classifier,
		pipeline:    bill.NewPipelineWithDeps(classifier, timeSrc),
		idGenerator: idGen,
		timeSource:  timeSrc,
		usdToINR:    DefaultUSDToINR,
	}
}

// SetUSDToINR changes the conversion rate used by Analytics
func (s *Service) SetUSDToINR(rate decimal.Decimal) {
	if rate.IsPositive() {
		s.usdToINR = rate
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "bill"
	}

	return base + strings.ToLower(ext)
}

// ProcessBill stores an uploaded bill, reads its text and runs the extraction
// pipeline. Plain text uploads skip the scanner. The returned upload carries
// the pipeline Result even when the text could not be read; only storage and
// scanner failures are errors.
func (s *Service) ProcessBill(filename string, data []byte, contentType string) (*BillUpload, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	var result bill.Result
	if scanning.IsText(contentType) {
		result = s.ProcessText(string(data))
	} else {
		text, err := s.scanner.ScanText(data, contentType)
		if err != nil {
			slog.Error("Failed to scan bill",
				"filename", filename,
				"content_type", contentType,
				"file_size", len(data),
				"error", err,
			)
			s.removeFile(savedPath)
			return nil, fmt.Errorf("scanning bill: %w", err)
		}
		result = s.pipeline.Process(text, scanning.SourceFor(data, contentType))
	}

	upload := &BillUpload{
		ID:           id,
		Filename:     savedPath,
		OriginalName: filename,
		ContentType:  contentType,
		Result:       result,
		CreatedAt:    now,
	}

	if err := s.db.SaveBill(upload); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}

	return upload, nil
}

// ProcessText runs the pipeline on text that was extracted elsewhere
func (s *Service) ProcessText(text string) bill.Result {
	return s.pipeline.Process(text, bill.SourceText)
}

func (s *Service) removeFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// GetBillFile retrieves the stored upload for a bill
func (s *Service) GetBillFile(id string) ([]byte, string, error) {
	upload, err := s.db.GetBill(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill: %w", err)
	}

	data, err := s.storage.Get(upload.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill file: %w", err)
	}

	return data, upload.ContentType, nil
}

// AddExpense validates and records an expense
func (s *Service) AddExpense(input NewExpense) (*Expense, error) {
	if err := validate(&input); err != nil {
		return nil, err
	}

	if input.BillID != "" {
		if _, err := s.db.GetBill(input.BillID); err != nil {
			return nil, &ValidationError{Field: "bill_id", Message: fmt.Sprintf("Unknown bill: %s", input.BillID)}
		}
	}

	items := input.Items
	if items == nil {
		items = []string{}
	}

	expense := &Expense{
		ID:        s.idGenerator.Generate(),
		Vendor:    strings.TrimSpace(input.Vendor),
		Amount:    *input.Amount,
		Currency:  input.Currency,
		Category:  strings.TrimSpace(input.Category),
		Date:      input.Date,
		Items:     items,
		BillID:    input.BillID,
		CreatedAt: s.timeSource.Now(),
	}

	if err := s.db.SaveExpense(expense); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}

	slog.Info("Added expense", "vendor", expense.Vendor, "currency", expense.Currency, "amount", expense.Amount.String())
	return expense, nil
}

// validate checks required fields and fills the currency default
func validate(input *NewExpense) error {
	if strings.TrimSpace(input.Vendor) == "" {
		return &ValidationError{Field: "vendor", Message: "Vendor name cannot be empty"}
	}
	if input.Amount == nil {
		return &ValidationError{Field: "amount", Message: "Missing required field: amount"}
	}
	if !input.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "Amount must be greater than 0"}
	}
	if strings.TrimSpace(input.Category) == "" {
		return &ValidationError{Field: "category", Message: "Category cannot be empty"}
	}
	if input.Date == "" {
		return &ValidationError{Field: "date", Message: "Missing required field: date"}
	}
	if _, err := time.Parse(extraction.DateLayout, input.Date); err != nil {
		return &ValidationError{Field: "date", Message: "Date must be in YYYY-MM-DD format"}
	}

	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = string(extraction.INR)
	}
	if !slices.Contains(supportedCurrencies, input.Currency) {
		return &ValidationError{Field: "currency", Message: fmt.Sprintf("Unsupported currency: %s", input.Currency)}
	}
	return nil
}

// ListExpenses returns the expenses matching filter, newest date first
func (s *Service) ListExpenses(filter Filter) ([]*Expense, error) {
	all, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	expenses := make([]*Expense, 0, len(all))
	for _, e := range all {
		if filter.matches(e) {
			expenses = append(expenses, e)
		}
	}

	slices.SortStableFunc(expenses, func(a, b *Expense) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return expenses, nil
}

// DeleteExpense removes an expense
func (s *Service) DeleteExpense(id string) error {
	if _, err := s.db.GetExpense(id); err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}
	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}

// ClearExpenses removes every expense. Stored bills are kept.
func (s *Service) ClearExpenses() error {
	if err := s.db.ClearExpenses(); err != nil {
		return fmt.Errorf("clearing expenses: %w", err)
	}
	slog.Info("Cleared all expenses")
	return nil
}

// Categorize assigns a category to a free-text description
func (s *Service) Categorize(description string, amount decimal.Decimal) string {
	return s.classifier.Categorize(description, amount)
}

// Analytics summarises all expenses in INR
func (s *Service) Analytics() (*Analytics, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return computeAnalytics(expenses, s.usdToINR, s.timeSource.Now()), nil
}

// Health reports service status
type Health struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	ExpensesCount int    `json:"expenses_count"`
}

// Health reports whether a statistical model is loaded and how many expenses are stored
func (s *Service) Health() (Health, error) {
	n, err := s.db.CountExpenses()
	if err != nil {
		return Health{Status: "unhealthy", ModelLoaded: s.classifier.HasModel()}, fmt.Errorf("counting expenses: %w", err)
	}
	return Health{
		Status:        "healthy",
		ModelLoaded:   s.classifier.HasModel(),
		ExpensesCount: n,
	}, nil
}

// IsNotFound reports whether err means a missing expense or bill
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
