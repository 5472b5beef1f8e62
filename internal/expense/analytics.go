package expense

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/extraction"
)

// CategoryTotal is the INR total for one category
type CategoryTotal struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// MonthlyTotal is the INR total for one YYYY-MM month
type MonthlyTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Analytics summarises expenses for charts
type Analytics struct {
	CategoryData   []CategoryTotal `json:"categoryData"`
	MonthlyData    []MonthlyTotal  `json:"monthlyData"`
	TotalExpenses  decimal.Decimal `json:"totalExpenses"`
	AverageExpense decimal.Decimal `json:"averageExpense"`
	ExpenseCount   int             `json:"expenseCount"`
}

// computeAnalytics converts USD amounts at usdToINR and groups by category and
// month. An expense whose date cannot be parsed counts toward the current month.
func computeAnalytics(expenses []*Expense, usdToINR decimal.Decimal, now time.Time) *Analytics {
	out := &Analytics{
		CategoryData:   []CategoryTotal{},
		MonthlyData:    []MonthlyTotal{},
		TotalExpenses:  decimal.Zero,
		AverageExpense: decimal.Zero,
		ExpenseCount:   len(expenses),
	}
	if len(expenses) == 0 {
		return out
	}

	byCategory := map[string]decimal.Decimal{}
	byMonth := map[string]decimal.Decimal{}
	total := decimal.Zero

	for _, e := range expenses {
		amount := e.Amount
		if strings.EqualFold(e.Currency, string(extraction.USD)) {
			amount = amount.Mul(usdToINR)
		}

		month := now.Format("2006-01")
		if d, err := time.Parse(extraction.DateLayout, e.Date); err == nil {
			month = d.Format("2006-01")
		}

		byCategory[e.Category] = byCategory[e.Category].Add(amount)
		byMonth[month] = byMonth[month].Add(amount)
		total = total.Add(amount)
	}

	for name, value := range byCategory {
		out.CategoryData = append(out.CategoryData, CategoryTotal{Name: name, Value: value.Round(2)})
	}
	slices.SortFunc(out.CategoryData, func(a, b CategoryTotal) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	for month, amount := range byMonth {
		out.MonthlyData = append(out.MonthlyData, MonthlyTotal{Month: month, Amount: amount.Round(2)})
	}
	slices.SortFunc(out.MonthlyData, func(a, b MonthlyTotal) int {
		return strings.Compare(a.Month, b.Month)
	})

	out.TotalExpenses = total.Round(2)
	out.AverageExpense = total.Div(decimal.NewFromInt(int64(len(expenses)))).Round(2)
	return out
}
