package expense

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
	"github.com/ravindran-dev/SmartSpend/internal/categorize"
	"github.com/ravindran-dev/SmartSpend/internal/extraction"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var _ = Describe("Service", func() {
	var (
		db      *mockDB
		storage *mockStorage
		scanner *mockScanner
		service *Service
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		service = NewServiceWithDeps(db, scanner, storage, nil, &sequentialIDs{}, fixedTime{now: testNow})
	})

	Describe("ProcessBill", func() {
		var (
			upload *BillUpload
			err    error
		)

		JustBeforeEach(func() {
			upload, err = service.ProcessBill("IMG 2025/06/10 (1).JPG", []byte("jpeg"), "image/jpeg")
		})

		When("scanning succeeds", func() {
			It("stores the file under a sanitized name", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(upload.Filename).To(Equal("id-1_10 1.jpg"))
				Expect(storage.files).To(HaveKey("id-1_10 1.jpg"))
			})

			It("runs the pipeline on the scanned text", func() {
				Expect(upload.Result.Success).To(BeTrue())
				Expect(upload.Result.Vendor).To(Equal("ANGARA RESTAURANT"))
				Expect(upload.Result.Amount.Equal(decimal.NewFromInt(540))).To(BeTrue())
				Expect(upload.Result.Category).To(Equal(categorize.FoodDining))
				Expect(upload.Result.Source).To(Equal(bill.SourceImage))
				Expect(upload.Result.Confidence).To(Equal(0.8))
			})

			It("saves the bill", func() {
				Expect(db.bills).To(HaveKey("id-1"))
				Expect(db.bills["id-1"].OriginalName).To(Equal("IMG 2025/06/10 (1).JPG"))
				Expect(db.bills["id-1"].CreatedAt).To(Equal(testNow))
			})
		})

		When("the scanner cannot read the bill", func() {
			BeforeEach(func() {
				scanner.text = bill.ManualEntrySentinel
			})

			It("returns a manual entry result, not an error", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(upload.Result.ManualEntryRequired).To(BeTrue())
				Expect(upload.Result.Date).To(Equal("2025-06-15"))
			})
		})

		When("the scanner fails", func() {
			BeforeEach(func() {
				scanner.err = errors.New("tesseract missing")
			})

			It("returns the error and removes the file", func() {
				Expect(err).To(MatchError(ContainSubstring("scanning bill")))
				Expect(storage.deleted).To(ConsistOf("id-1_10 1.jpg"))
				Expect(db.bills).To(BeEmpty())
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.saveErr = errors.New("disk full")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("saving file")))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.saveBillErr = errors.New("db closed")
			})

			It("returns the error and removes the file", func() {
				Expect(err).To(MatchError(ContainSubstring("saving bill")))
				Expect(storage.deleted).To(HaveLen(1))
			})
		})
	})

	Describe("ProcessBill with a text upload", func() {
		It("runs the pipeline on the file contents without scanning", func() {
			upload, err := service.ProcessBill("bill.txt", []byte("CORNER CAFE\nTotal: $45.99"), "text/plain; charset=utf-8")
			Expect(err).NotTo(HaveOccurred())
			Expect(scanner.calls).To(Equal(0))
			Expect(upload.Result.Source).To(Equal(bill.SourceText))
			Expect(upload.Result.Amount.Equal(decimal.RequireFromString("45.99"))).To(BeTrue())
			Expect(upload.Result.Currency).To(Equal(extraction.USD))
			Expect(upload.Result.Confidence).To(Equal(0.7))
			Expect(storage.files).To(HaveKey("id-1_bill.txt"))
		})
	})

	Describe("GetBillFile", func() {
		It("returns the stored bytes and content type", func() {
			upload, err := service.ProcessBill("bill.pdf", []byte("%PDF-1.4"), "application/pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(upload.Result.Source).To(Equal(bill.SourcePDF))

			data, contentType, err := service.GetBillFile(upload.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("%PDF-1.4")))
			Expect(contentType).To(Equal("application/pdf"))
		})

		It("reports unknown bills as not found", func() {
			_, _, err := service.GetBillFile("missing")
			Expect(IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("ProcessText", func() {
		It("processes text as a text source", func() {
			result := service.ProcessText("Total: $45.99")
			Expect(result.Source).To(Equal(bill.SourceText))
			Expect(result.Confidence).To(Equal(0.7))
		})
	})

	Describe("AddExpense", func() {
		var input NewExpense

		BeforeEach(func() {
			input = NewExpense{
				Vendor:   "  Angara Restaurant ",
				Amount:   amount("540.00"),
				Category: categorize.FoodDining,
				Date:     "2025-06-10",
				Items:    []string{"Chicken Angara"},
			}
		})

		It("records the expense with defaults", func() {
			expense, err := service.AddExpense(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(expense.ID).To(Equal("id-1"))
			Expect(expense.Vendor).To(Equal("Angara Restaurant"))
			Expect(expense.Currency).To(Equal("INR"))
			Expect(expense.CreatedAt).To(Equal(testNow))
			Expect(db.expenses).To(HaveKey("id-1"))
		})

		It("defaults items to an empty list", func() {
			input.Items = nil
			expense, err := service.AddExpense(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(expense.Items).NotTo(BeNil())
		})

		It("links a known bill", func() {
			db.bills["bill-1"] = &BillUpload{ID: "bill-1"}
			input.BillID = "bill-1"
			expense, err := service.AddExpense(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(expense.BillID).To(Equal("bill-1"))
		})

		DescribeTable("rejects invalid input",
			func(mutate func(*NewExpense), field string) {
				mutate(&input)
				_, err := service.AddExpense(input)
				var validation *ValidationError
				Expect(errors.As(err, &validation)).To(BeTrue())
				Expect(validation.Field).To(Equal(field))
				Expect(db.expenses).To(BeEmpty())
			},
			Entry("blank vendor", func(e *NewExpense) { e.Vendor = "  " }, "vendor"),
			Entry("missing amount", func(e *NewExpense) { e.Amount = nil }, "amount"),
			Entry("zero amount", func(e *NewExpense) { e.Amount = amount("0") }, "amount"),
			Entry("negative amount", func(e *NewExpense) { e.Amount = amount("-5") }, "amount"),
			Entry("blank category", func(e *NewExpense) { e.Category = "" }, "category"),
			Entry("missing date", func(e *NewExpense) { e.Date = "" }, "date"),
			Entry("malformed date", func(e *NewExpense) { e.Date = "10/06/2025" }, "date"),
			Entry("unsupported currency", func(e *NewExpense) { e.Currency = "eur" }, "currency"),
			Entry("unknown bill", func(e *NewExpense) { e.BillID = "nope" }, "bill_id"),
		)

		It("returns database errors", func() {
			db.saveErr = errors.New("db closed")
			_, err := service.AddExpense(input)
			Expect(err).To(MatchError(ContainSubstring("saving expense")))
		})
	})

	Describe("ListExpenses", func() {
		BeforeEach(func() {
			db.expenses["a"] = &Expense{ID: "a", Date: "2025-05-01", Category: categorize.FoodDining, CreatedAt: testNow}
			db.expenses["b"] = &Expense{ID: "b", Date: "2025-06-10", Category: categorize.Transportation, CreatedAt: testNow}
			db.expenses["c"] = &Expense{ID: "c", Date: "2025-06-10", Category: categorize.FoodDining, CreatedAt: testNow.Add(time.Hour)}
			db.expenses["d"] = &Expense{ID: "d", Date: "2025-04-20", Category: categorize.Shopping, CreatedAt: testNow}
		})

		ids := func(expenses []*Expense) []string {
			out := make([]string, 0, len(expenses))
			for _, e := range expenses {
				out = append(out, e.ID)
			}
			return out
		}

		It("returns everything newest first", func() {
			expenses, err := service.ListExpenses(Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(expenses)).To(Equal([]string{"c", "b", "a", "d"}))
		})

		It("filters by inclusive date range", func() {
			expenses, err := service.ListExpenses(Filter{StartDate: "2025-05-01", EndDate: "2025-06-09"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(expenses)).To(Equal([]string{"a"}))
		})

		It("filters by category", func() {
			expenses, err := service.ListExpenses(Filter{Category: categorize.FoodDining})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(expenses)).To(Equal([]string{"c", "a"}))
		})

		It("ignores the All Categories filter", func() {
			expenses, err := service.ListExpenses(Filter{Category: AllCategories})
			Expect(err).NotTo(HaveOccurred())
			Expect(expenses).To(HaveLen(4))
		})

		It("returns database errors", func() {
			db.listErr = errors.New("db closed")
			_, err := service.ListExpenses(Filter{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeleteExpense", func() {
		It("removes the expense", func() {
			db.expenses["a"] = &Expense{ID: "a"}
			Expect(service.DeleteExpense("a")).To(Succeed())
			Expect(db.expenses).To(BeEmpty())
		})

		It("reports unknown expenses as not found", func() {
			Expect(IsNotFound(service.DeleteExpense("missing"))).To(BeTrue())
		})
	})

	Describe("ClearExpenses", func() {
		It("removes every expense but keeps bills", func() {
			db.expenses["a"] = &Expense{ID: "a"}
			db.bills["b"] = &BillUpload{ID: "b"}
			Expect(service.ClearExpenses()).To(Succeed())
			Expect(db.expenses).To(BeEmpty())
			Expect(db.bills).To(HaveLen(1))
		})
	})

	Describe("Health", func() {
		It("reports the expense count and model state", func() {
			db.expenses["a"] = &Expense{ID: "a"}
			health, err := service.Health()
			Expect(err).NotTo(HaveOccurred())
			Expect(health).To(Equal(Health{Status: "healthy", ModelLoaded: false, ExpensesCount: 1}))
		})
	})

	Describe("ExportCSV", func() {
		It("writes a header and one row per expense", func() {
			db.expenses["a"] = &Expense{
				ID:       "a",
				Vendor:   "Uber",
				Amount:   decimal.RequireFromString("450.5"),
				Currency: "INR",
				Category: categorize.Transportation,
				Date:     "2025-06-01",
				Items:    []string{"ride", "tip"},
			}

			var buf bytes.Buffer
			Expect(service.ExportCSV(&buf, Filter{})).To(Succeed())

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(lines[0]).To(Equal("id,date,vendor,category,amount,currency,items,bill_id"))
			Expect(lines[1]).To(Equal("a,2025-06-01,Uber,Transportation,450.50,INR,ride; tip,"))
		})
	})
})
