package categorize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
)

// Model is a trained statistical classifier consulted when no rule applies
type Model interface {
	Predict(description string, amount decimal.Decimal) (string, error)
}

// Classifier assigns a spending category to a free-text description. It is
// safe for concurrent use.
type Classifier struct {
	rules []Rule
	model Model
}

// NewClassifier creates a Classifier using the built-in rule table. model may
// be nil, in which case only the rules are used.
func NewClassifier(model Model) *Classifier {
	return &Classifier{
		rules: defaultRules,
		model: model,
	}
}

// HasModel reports whether a statistical model is attached
func (c *Classifier) HasModel() bool {
	return c.model != nil
}

// Categorize returns the rule category, or the model's label when the rules
// only reach Miscellaneous and the model produces a usable answer
func (c *Classifier) Categorize(description string, amount decimal.Decimal) string {
	category := c.RuleCategory(description, amount)
	if category != Miscellaneous || c.model == nil {
		return category
	}

	label, err := c.predict(description, amount)
	if err != nil {
		slog.Warn("model prediction failed, using rule category", "error", err)
		return category
	}
	return label
}

// RuleCategory runs the rule cascade only
func (c *Classifier) RuleCategory(description string, amount decimal.Decimal) string {
	lower := strings.ToLower(description)
	for _, rule := range c.rules {
		if rule.applies(lower) {
			slog.Debug("category rule matched", "rule", rule.Name, "category", rule.Category)
			return rule.Category
		}
	}
	if amount.GreaterThan(largeAmount) {
		return BusinessServices
	}
	return Miscellaneous
}

func (c *Classifier) predict(description string, amount decimal.Decimal) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()

	label, err = c.model.Predict(description, amount)
	if err != nil {
		return "", err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("model returned an empty label")
	}
	return canonicalLabel(label), nil
}

// canonicalLabel maps near-miss spellings such as "food dining" onto a known
// category and leaves other labels untouched
func canonicalLabel(label string) string {
	lower := strings.ToLower(label)
	best, bestDistance := label, 3
	for _, r := range fuzzy.RankFindNormalizedFold(label, Categories) {
		if d := fuzzy.LevenshteinDistance(lower, strings.ToLower(r.Target)); d < bestDistance {
			best, bestDistance = r.Target, d
		}
	}
	return best
}
