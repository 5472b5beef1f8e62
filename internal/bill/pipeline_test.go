package bill

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/categorize"
	"github.com/ravindran-dev/SmartSpend/internal/extraction"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const restaurantBill = `ANGARA RESTAURANT
Date: 2025-06-10
CHICKEN ANGARA 1 420.00
GARLIC NAAN 2 120.00
Grand Total: ₹540.00
Thank you`

var _ = Describe("Pipeline", func() {
	var pipeline *Pipeline

	BeforeEach(func() {
		now := time.Date(2025, time.June, 15, 9, 30, 0, 0, time.UTC)
		pipeline = NewPipelineWithDeps(nil, fixedTime{now: now})
	})

	Describe("unreadable text", func() {
		It("asks for manual entry when the text carries the manual entry marker", func() {
			text := ManualEntrySentinel + "\nTotal: 500.00\nDate: 2025-01-02"

			result := pipeline.Process(text, SourceImage)

			Expect(result.Success).To(BeTrue())
			Expect(result.ManualEntryRequired).To(BeTrue())
			Expect(result.Vendor).To(Equal(extraction.UnknownVendor))
			Expect(result.Amount.IsZero()).To(BeTrue())
			Expect(result.Date).To(Equal("2025-06-15"))
			Expect(result.Items).To(BeEmpty())
			Expect(result.Items).NotTo(BeNil())
			Expect(result.Category).To(Equal(categorize.Other))
			Expect(result.Confidence).To(Equal(0.1))
			Expect(result.ExtractedText).To(Equal(text))
			Expect(result.Message).NotTo(BeEmpty())
		})

		It("treats the PDF failure marker the same way", func() {
			result := pipeline.Process(PDFExtractionFailedSentinel, SourcePDF)

			Expect(result.ManualEntryRequired).To(BeTrue())
			Expect(result.Confidence).To(Equal(0.1))
			Expect(result.Source).To(Equal(SourcePDF))
		})

		It("treats blank text as unreadable", func() {
			result := pipeline.Process("  \n\t ", SourceText)

			Expect(result.ManualEntryRequired).To(BeTrue())
			Expect(result.Category).To(Equal(categorize.Other))
		})
	})

	Describe("a readable restaurant bill", func() {
		It("extracts every field from an image", func() {
			result := pipeline.Process(restaurantBill, SourceImage)

			Expect(result.Success).To(BeTrue())
			Expect(result.ManualEntryRequired).To(BeFalse())
			Expect(result.Vendor).To(Equal("ANGARA RESTAURANT"))
			Expect(result.Amount.Equal(decimal.NewFromInt(540))).To(BeTrue())
			Expect(result.Currency).To(Equal(extraction.INR))
			Expect(result.FormattedAmount).To(Equal("₹540.00"))
			Expect(result.Date).To(Equal("2025-06-10"))
			Expect(result.Items).To(ContainElements("CHICKEN ANGARA 1 420.00", "GARLIC NAAN 2 120.00"))
			Expect(result.Category).To(Equal(categorize.FoodDining))
			Expect(result.Confidence).To(Equal(0.8))
			Expect(result.Error).To(BeEmpty())
		})

		It("reports lower confidence for PDF text", func() {
			result := pipeline.Process(restaurantBill, SourcePDF)

			Expect(result.Confidence).To(Equal(0.7))
			Expect(result.Category).To(Equal(categorize.FoodDining))
		})
	})

	It("formats dollar amounts", func() {
		result := pipeline.Process("Total: $45.99", SourceText)

		Expect(result.Currency).To(Equal(extraction.USD))
		Expect(result.Amount.Equal(decimal.RequireFromString("45.99"))).To(BeTrue())
		Expect(result.FormattedAmount).To(Equal("$45.99"))
	})

	It("reads an amount written in words", func() {
		result := pipeline.Process("Amount in words: three thousand four hundred only", SourceText)

		Expect(result.ManualEntryRequired).To(BeFalse())
		Expect(result.Amount.Equal(decimal.NewFromInt(3400))).To(BeTrue())
	})

	When("no amount can be found", func() {
		It("keeps the other fields and asks for the amount", func() {
			result := pipeline.Process("WELCOME STORE\nThank you for visiting", SourceImage)

			Expect(result.Success).To(BeTrue())
			Expect(result.ManualEntryRequired).To(BeTrue())
			Expect(result.Vendor).To(Equal("WELCOME STORE"))
			Expect(result.Amount.IsZero()).To(BeTrue())
			Expect(result.Confidence).To(Equal(0.2))
			Expect(result.Category).To(Equal(categorize.Other))
			Expect(result.Currency).To(Equal(extraction.INR))
		})

		It("keeps the detected currency", func() {
			result := pipeline.Process("DOLLAR DINER\nAll prices in USD\nThank you", SourceImage)

			Expect(result.ManualEntryRequired).To(BeTrue())
			Expect(result.Confidence).To(Equal(0.2))
			Expect(result.Currency).To(Equal(extraction.USD))
			Expect(result.FormattedAmount).To(Equal("$0.00"))
		})
	})

	When("only a bare number is present", func() {
		It("falls back to the largest plausible number", func() {
			result := pipeline.Process("Ref 12345 pcs", SourceText)

			Expect(result.ManualEntryRequired).To(BeFalse())
			Expect(result.Amount.Equal(decimal.NewFromInt(12345))).To(BeTrue())
		})
	})

	Describe("categorizationText", func() {
		It("leaves out bill number vendors", func() {
			Expect(categorizationText("Bill No 123", []string{"Tea 20"}, "Tea 20")).To(Equal("Tea 20"))
		})

		It("adds food words found anywhere in the text", func() {
			Expect(categorizationText("CAFE X", nil, "1 paneer tikka")).To(Equal("CAFE X paneer"))
		})
	})
})
