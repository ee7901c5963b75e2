package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
)

var hundred = decimal.NewFromInt(100)

// EvaluateBudget compares spent against budget. Exceeded is strict:
// spending exactly the budget is not over it.
func EvaluateBudget(spent, budget decimal.Decimal) model.BudgetState {
	st := model.BudgetState{
		Budget:    budget,
		Spent:     spent,
		Remaining: budget.Sub(spent),
		Exceeded:  spent.GreaterThan(budget),
	}
	if budget.IsPositive() {
		st.UsedPercent = spent.Div(budget).Mul(hundred).InexactFloat64()
	}
	return st
}

// BudgetTracker applies the budget input rules. Floor is the only hard
// limit; Step is the increment used by Adjust.
type BudgetTracker struct {
	Floor decimal.Decimal
	Step  decimal.Decimal
}

// NewBudgetTracker builds a tracker from budget settings.
func NewBudgetTracker(cfg config.BudgetConfig) BudgetTracker {
	return BudgetTracker{
		Floor: decimal.NewFromFloat(cfg.Floor),
		Step:  decimal.NewFromFloat(cfg.Step),
	}
}

// Validate rejects a negative budget or one below the floor. Values between
// steps are accepted.
func (b BudgetTracker) Validate(budget decimal.Decimal) error {
	if budget.IsNegative() {
		return &config.ConfigError{Field: "budget", Value: budget.String(), Reason: "must not be negative"}
	}
	if budget.LessThan(b.Floor) {
		return &config.ConfigError{
			Field:  "budget",
			Value:  budget.String(),
			Reason: fmt.Sprintf("must be at least %s", b.Floor.String()),
		}
	}
	return nil
}

// Evaluate validates budget and compares it with the spend in period.
func (b BudgetTracker) Evaluate(period model.MonthKey, txns []model.Transaction, budget decimal.Decimal) (model.BudgetState, error) {
	if err := b.Validate(budget); err != nil {
		return model.BudgetState{Period: period}, err
	}
	st := EvaluateBudget(Total(FilterByMonth(txns, period)), budget)
	st.Period = period
	return st, nil
}

// Clamp raises budget to the floor.
func (b BudgetTracker) Clamp(budget decimal.Decimal) decimal.Decimal {
	if budget.LessThan(b.Floor) {
		return b.Floor
	}
	return budget
}

// Adjust moves budget by n steps and clamps the result at the floor.
func (b BudgetTracker) Adjust(budget decimal.Decimal, n int) decimal.Decimal {
	return b.Clamp(budget.Add(b.Step.Mul(decimal.NewFromInt(int64(n)))))
}
