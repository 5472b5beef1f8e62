package expense

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

type exportRow struct {
	ID       string `csv:"id"`
	Date     string `csv:"date"`
	Vendor   string `csv:"vendor"`
	Category string `csv:"category"`
	Amount   string `csv:"amount"`
	Currency string `csv:"currency"`
	Items    string `csv:"items"`
	BillID   string `csv:"bill_id"`
}

// ExportCSV writes the expenses matching filter as CSV, newest first
func (s *Service) ExportCSV(w io.Writer, filter Filter) error {
	expenses, err := s.ListExpenses(filter)
	if err != nil {
		return err
	}

	rows := make([]*exportRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, &exportRow{
			ID:       e.ID,
			Date:     e.Date,
			Vendor:   e.Vendor,
			Category: e.Category,
			Amount:   e.Amount.StringFixed(2),
			Currency: e.Currency,
			Items:    strings.Join(e.Items, "; "),
			BillID:   e.BillID,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
