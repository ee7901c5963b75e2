// Package alert evaluates rule-based spending alerts over a set of transactions.
package alert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

// Rule names.
const (
	RuleCategoryConcentration = "category_concentration"
	RuleMerchantConcentration = "merchant_concentration"
	RuleLargeTransaction      = "large_transaction"
)

const insufficientData = "insufficient data"

// Rule inspects transactions and their precomputed total.
type Rule interface {
	Name() string
	Evaluate(txns []model.Transaction, total decimal.Decimal) model.AlertVerdict
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', -1, 64) + "%"
}

func verdict(rule string, triggered bool, msg string) model.AlertVerdict {
	sev := model.SeverityOK
	if triggered {
		sev = model.SeverityWarn
	}
	return model.AlertVerdict{Rule: rule, Triggered: triggered, Message: msg, Severity: sev}
}

func noData(rule string) model.AlertVerdict {
	return model.AlertVerdict{Rule: rule, Message: insufficientData, Severity: model.SeverityInfo}
}

// CategoryConcentration triggers when one category's share of total spend is
// strictly above Threshold. The category is matched case-insensitively.
type CategoryConcentration struct {
	Category  string
	Threshold float64
}

func (r CategoryConcentration) Name() string { return RuleCategoryConcentration }

func (r CategoryConcentration) Evaluate(txns []model.Transaction, total decimal.Decimal) model.AlertVerdict {
	if !total.IsPositive() {
		return noData(r.Name())
	}
	spent := decimal.Zero
	for _, t := range txns {
		if t.Category == r.Category {
			spent = spent.Add(t.Amount)
		}
	}

	label := strings.ToLower(r.Category)
	if spent.GreaterThan(total.Mul(decimal.NewFromFloat(r.Threshold))) {
		return verdict(r.Name(), true, fmt.Sprintf(
			"You're spending over %s on %s. Consider cutting down on it!", percent(r.Threshold), label))
	}
	return verdict(r.Name(), false, fmt.Sprintf("Your %s spending is under control. Great job!", label))
}

// MerchantConcentration triggers when the top merchant's share of total spend
// is strictly above Threshold. Equal totals resolve to the lexically smallest name.
type MerchantConcentration struct {
	Threshold float64
	Currency  string
}

func (r MerchantConcentration) Name() string { return RuleMerchantConcentration }

func (r MerchantConcentration) Evaluate(txns []model.Transaction, total decimal.Decimal) model.AlertVerdict {
	if !total.IsPositive() || len(txns) == 0 {
		return noData(r.Name())
	}
	top := pipeline.MerchantBreakdown(txns)[0]

	if top.Total.GreaterThan(total.Mul(decimal.NewFromFloat(r.Threshold))) {
		return verdict(r.Name(), true, fmt.Sprintf(
			"You spent %s at %s, which is over %s of your total spending. Consider reviewing these expenses.",
			model.FormatMoney(r.Currency, top.Total), displayMerchant(top.Key), percent(r.Threshold)))
	}
	return verdict(r.Name(), false, "Your spending is well-distributed across merchants. Good job!")
}

func displayMerchant(m string) string {
	if m == "" {
		return "an unknown merchant"
	}
	return m
}

// LargeTransaction counts transactions strictly above Threshold.
type LargeTransaction struct {
	Threshold decimal.Decimal
	Currency  string
}

func (r LargeTransaction) Name() string { return RuleLargeTransaction }

func (r LargeTransaction) Evaluate(txns []model.Transaction, _ decimal.Decimal) model.AlertVerdict {
	n := 0
	for _, t := range txns {
		if t.Amount.GreaterThan(r.Threshold) {
			n++
		}
	}
	if n > 0 {
		return verdict(r.Name(), true, fmt.Sprintf(
			"You have %d transaction(s) exceeding %s. Make sure these are necessary expenses.",
			n, strings.TrimSuffix(model.FormatMoney(r.Currency, r.Threshold), ".00")))
	}
	return verdict(r.Name(), false, "No unusually large transactions detected.")
}

// Engine runs a fixed list of rules in order.
type Engine struct {
	Rules []Rule
}

// NewEngine builds the default rule set from alert settings.
func NewEngine(cfg config.AlertsConfig, currency string) *Engine {
	return &Engine{Rules: []Rule{
		CategoryConcentration{Category: cfg.WatchedCategory, Threshold: cfg.CategoryThreshold},
		MerchantConcentration{Threshold: cfg.MerchantThreshold, Currency: currency},
		LargeTransaction{Threshold: decimal.NewFromFloat(cfg.LargeTransaction), Currency: currency},
	}}
}

// Evaluate computes the total once and returns one verdict per rule.
func (e *Engine) Evaluate(txns []model.Transaction) []model.AlertVerdict {
	total := pipeline.Total(txns)
	out := make([]model.AlertVerdict, 0, len(e.Rules))
	for _, r := range e.Rules {
		out = append(out, r.Evaluate(txns, total))
	}
	return out
}

// Triggered filters verdicts down to the ones that fired.
func Triggered(verdicts []model.AlertVerdict) []model.AlertVerdict {
	var out []model.AlertVerdict
	for _, v := range verdicts {
		if v.Triggered {
			out = append(out, v)
		}
	}
	return out
}
