package model

import "github.com/shopspring/decimal"

// Budget verdicts.
const (
	BudgetOK       = "ok"
	BudgetExceeded = "exceeded"
)

// BudgetState compares one month's spend against a budget.
type BudgetState struct {
	Period      MonthKey        `json:"period"`
	Budget      decimal.Decimal `json:"budget"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"` // negative when over budget
	Exceeded    bool            `json:"exceeded"`
	UsedPercent float64         `json:"used_percent"`
}

// Verdict returns BudgetExceeded or BudgetOK.
func (b BudgetState) Verdict() string {
	if b.Exceeded {
		return BudgetExceeded
	}
	return BudgetOK
}
