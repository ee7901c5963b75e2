package alert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
)

func tx(amount int64, category, merchant string) model.Transaction {
	return model.Transaction{
		Date:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.NewFromInt(amount),
		Category: category,
		Merchant: merchant,
	}
}

func withFood(food int64) []model.Transaction {
	return []model.Transaction{
		tx(food, "Food", "a"),
		tx(1000-food, "Rent", "b"),
	}
}

func TestCategoryConcentration(t *testing.T) {
	rule := CategoryConcentration{Category: "Food", Threshold: 0.30}
	total := decimal.NewFromInt(1000)

	tests := []struct {
		food      int64
		triggered bool
	}{
		{350, true},
		{300, false},
		{250, false},
		{0, false},
	}
	for _, tt := range tests {
		v := rule.Evaluate(withFood(tt.food), total)
		assert.Equal(t, tt.triggered, v.Triggered, "food=%d", tt.food)
		assert.Equal(t, RuleCategoryConcentration, v.Rule)
	}

	v := rule.Evaluate(withFood(350), total)
	assert.Equal(t, "You're spending over 30% on food. Consider cutting down on it!", v.Message)
	assert.Equal(t, model.SeverityWarn, v.Severity)

	ok := rule.Evaluate(withFood(250), total)
	assert.Equal(t, "Your food spending is under control. Great job!", ok.Message)
	assert.Equal(t, model.SeverityOK, ok.Severity)
}

func TestCategoryMatchIsExact(t *testing.T) {
	rule := CategoryConcentration{Category: "Food", Threshold: 0.30}
	txns := []model.Transaction{tx(200, "Food", "x"), tx(200, "food", "y"), tx(600, "Rent", "z")}
	assert.False(t, rule.Evaluate(txns, decimal.NewFromInt(1000)).Triggered)

	txns = append(txns, tx(200, "Food", "w"))
	assert.True(t, rule.Evaluate(txns, decimal.NewFromInt(1200)).Triggered)
}

func TestConcentrationRulesWithZeroTotal(t *testing.T) {
	for _, r := range []Rule{
		CategoryConcentration{Category: "Food", Threshold: 0.3},
		MerchantConcentration{Threshold: 0.15},
	} {
		v := r.Evaluate(nil, decimal.Zero)
		assert.False(t, v.Triggered, r.Name())
		assert.Equal(t, "insufficient data", v.Message, r.Name())
		assert.Equal(t, model.SeverityInfo, v.Severity, r.Name())
	}

	refunds := []model.Transaction{tx(-100, "Food", "x")}
	v := CategoryConcentration{Category: "Food", Threshold: 0.3}.Evaluate(refunds, decimal.NewFromInt(-100))
	assert.Equal(t, "insufficient data", v.Message)
}

func TestMerchantConcentration(t *testing.T) {
	rule := MerchantConcentration{Threshold: 0.15, Currency: "₹"}
	txns := []model.Transaction{
		tx(200, "Food", "Swiggy"),
		tx(200, "Food", "Amazon"),
		tx(600, "Rent", "Landlord"),
	}
	v := rule.Evaluate(txns, decimal.NewFromInt(1000))
	require.True(t, v.Triggered)
	assert.Equal(t, "You spent ₹600.00 at Landlord, which is over 15% of your total spending. Consider reviewing these expenses.", v.Message)

	spread := make([]model.Transaction, 0, 10)
	for _, m := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		spread = append(spread, tx(100, "Misc", m))
	}
	v = rule.Evaluate(spread, decimal.NewFromInt(1000))
	assert.False(t, v.Triggered)
	assert.Equal(t, "Your spending is well-distributed across merchants. Good job!", v.Message)
}

func TestMerchantTieBreaksLexically(t *testing.T) {
	rule := MerchantConcentration{Threshold: 0.15, Currency: "₹"}
	txns := []model.Transaction{tx(500, "", "Zomato"), tx(500, "", "Amazon")}
	v := rule.Evaluate(txns, decimal.NewFromInt(1000))
	assert.Contains(t, v.Message, "at Amazon")
}

func TestLargeTransaction(t *testing.T) {
	rule := LargeTransaction{Threshold: decimal.NewFromInt(10000), Currency: "₹"}
	txns := []model.Transaction{tx(5000, "", ""), tx(10001, "", ""), tx(15000, "", ""), tx(10000, "", "")}

	v := rule.Evaluate(txns, decimal.NewFromInt(40001))
	require.True(t, v.Triggered)
	assert.Equal(t, "You have 2 transaction(s) exceeding ₹10,000. Make sure these are necessary expenses.", v.Message)

	v = rule.Evaluate(txns[:1], decimal.NewFromInt(5000))
	assert.False(t, v.Triggered)
	assert.Equal(t, "No unusually large transactions detected.", v.Message)
}

func TestEngineEvaluateIsIdempotent(t *testing.T) {
	e := NewEngine(config.DefaultConfig().Alerts, "₹")
	txns := []model.Transaction{
		tx(4000, "Food", "Swiggy"),
		tx(12000, "Rent", "Landlord"),
		tx(500, "Travel", "Uber"),
	}

	first := e.Evaluate(txns)
	second := e.Evaluate(txns)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, RuleCategoryConcentration, first[0].Rule)
	assert.Equal(t, RuleMerchantConcentration, first[1].Rule)
	assert.Equal(t, RuleLargeTransaction, first[2].Rule)

	fired := Triggered(first)
	assert.Len(t, fired, 2, "merchant and large transaction fire; food is 24%")
}
