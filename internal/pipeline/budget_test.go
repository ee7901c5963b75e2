package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
)

func TestEvaluateBudget(t *testing.T) {
	over := EvaluateBudget(d("12000"), d("10000"))
	assert.True(t, over.Exceeded)
	assertDecimal(t, "-2000", over.Remaining)
	assert.InDelta(t, 120.0, over.UsedPercent, 1e-9)
	assert.Equal(t, model.BudgetExceeded, over.Verdict())

	under := EvaluateBudget(d("8000"), d("10000"))
	assert.False(t, under.Exceeded)
	assertDecimal(t, "2000", under.Remaining)
	assert.Equal(t, model.BudgetOK, under.Verdict())

	exact := EvaluateBudget(d("10000"), d("10000"))
	assert.False(t, exact.Exceeded, "spending exactly the budget is not over it")

	zero := EvaluateBudget(d("10"), decimal.Zero)
	assert.True(t, zero.Exceeded)
	assert.Zero(t, zero.UsedPercent)
}

func TestBudgetTrackerValidate(t *testing.T) {
	bt := NewBudgetTracker(config.BudgetConfig{Floor: 30000, Step: 500})

	assert.NoError(t, bt.Validate(d("30000")))
	assert.NoError(t, bt.Validate(d("45500")))
	assert.NoError(t, bt.Validate(d("30250")), "step is an input increment, not a validity rule")

	for _, bad := range []string{"29999", "-1"} {
		err := bt.Validate(d(bad))
		require.Error(t, err, bad)
		var ce *config.ConfigError
		assert.True(t, errors.As(err, &ce), bad)
		assert.True(t, errors.Is(err, config.ErrInvalid), bad)
	}

	noStep := BudgetTracker{Floor: d("100")}
	assert.NoError(t, noStep.Validate(d("123.45")))
}

func TestBudgetTrackerEvaluate(t *testing.T) {
	bt := NewBudgetTracker(config.BudgetConfig{Floor: 30000, Step: 500})
	txns := []model.Transaction{
		tx("2024-05-01", "20000", "Rent", ""),
		tx("2024-05-20", "15000", "Food", ""),
		tx("2024-06-01", "99999", "Travel", ""),
	}
	may := model.MonthKey{Year: 2024, Month: time.May}

	st, err := bt.Evaluate(may, txns, d("30000"))
	require.NoError(t, err)
	assert.Equal(t, may, st.Period)
	assertDecimal(t, "35000", st.Spent)
	assert.True(t, st.Exceeded)

	_, err = bt.Evaluate(may, txns, d("1000"))
	assert.Error(t, err)
}

func TestBudgetTrackerAdjust(t *testing.T) {
	bt := NewBudgetTracker(config.BudgetConfig{Floor: 30000, Step: 500})
	assertDecimal(t, "31000", bt.Adjust(d("30000"), 2))
	assertDecimal(t, "30000", bt.Adjust(d("30500"), -5), "clamped at floor")
	assertDecimal(t, "30000", bt.Clamp(d("0")))
}
