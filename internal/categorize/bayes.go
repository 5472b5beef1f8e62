package categorize

import (
	"fmt"
	"strings"

	"github.com/jbrukh/bayesian"
	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/extraction"
)

// BayesModel adapts a naive Bayes classifier trained on FeatureTokens
type BayesModel struct {
	cl *bayesian.Classifier
}

// LoadBayesModel reads a classifier previously written with WriteToFile
func LoadBayesModel(path string) (*BayesModel, error) {
	cl, err := bayesian.NewClassifierFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading bayes model: %w", err)
	}
	return NewBayesModel(cl), nil
}

// NewBayesModel wraps an in-memory classifier
func NewBayesModel(cl *bayesian.Classifier) *BayesModel {
	return &BayesModel{cl: cl}
}

// Predict returns the most likely class for the description and amount
func (b *BayesModel) Predict(description string, amount decimal.Decimal) (string, error) {
	tokens := FeatureTokens(description, amount)
	if len(tokens) == 1 {
		return "", fmt.Errorf("no words to classify")
	}
	_, idx, _ := b.cl.LogScores(tokens)
	return string(b.cl.Classes[idx]), nil
}

// FeatureTokens turns a description and amount into the document a model is
// trained and queried with: the normalised words plus one amount-band token.
func FeatureTokens(description string, amount decimal.Decimal) []string {
	tokens := strings.Fields(extraction.Clean(description))
	return append(tokens, amountBand(amount))
}

func amountBand(amount decimal.Decimal) string {
	bands := []int64{50, 200, 500, 1000, 5000}
	for i, upper := range bands {
		if amount.LessThan(decimal.NewFromInt(upper)) {
			return fmt.Sprintf("__amount_band_%d", i)
		}
	}
	return fmt.Sprintf("__amount_band_%d", len(bands))
}
