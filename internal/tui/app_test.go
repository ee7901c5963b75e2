package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/ledger"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
	"github.com/theirongolddev/spendburn/internal/tui/components"
)

func tx(date string, amount int64, category, merchant string) model.Transaction {
	d, _ := time.Parse(time.DateOnly, date)
	return model.Transaction{Date: d, Amount: decimal.NewFromInt(amount), Category: category, Merchant: merchant}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	a := NewApp(Options{Config: config.DefaultConfig(), LedgerPath: "ledger.csv"})
	res := &pipeline.LoadResult{Ledger: ledger.New([]model.Transaction{
		tx("2024-05-03", 12000, "Rent", "Landlord"),
		tx("2024-05-10", 800, "Food", "Swiggy"),
		tx("2024-06-01", 12000, "Rent", "Landlord"),
		tx("2024-06-02", 450, "Food", "Zomato"),
		tx("2024-06-15", 2500, "Travel", "IRCTC"),
	})}

	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(DataLoadedMsg{Result: res, LoadTime: 10 * time.Millisecond})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	var m tea.Model = a
	for _, k := range keys {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
	return m.(App)
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 1
		for i := range components.Tabs {
			w := components.TabVisualWidth(i, active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 2
		}
	}
}

func TestLoadSelectsLatestMonth(t *testing.T) {
	a := loadedApp(t)
	require.True(t, a.loaded)
	assert.Equal(t, model.MonthKey{Year: 2024, Month: time.June}, a.selectedMonth())
	assert.True(t, a.monthSpent.Equal(decimal.NewFromInt(14950)))
	assert.True(t, a.prevSpent.Equal(decimal.NewFromInt(12800)))
	assert.Len(t, a.categories, 3)
	assert.Equal(t, "Rent", a.categories[0].Key)
	assert.Len(t, a.daily, 15, "daily series is gap-filled from the 1st to the 15th")
}

func TestMonthNavigation(t *testing.T) {
	a := loadedApp(t)

	a = press(t, a, "[")
	assert.Equal(t, time.May, a.selectedMonth().Month)
	assert.True(t, a.monthSpent.Equal(decimal.NewFromInt(12800)))

	a = press(t, a, "[")
	assert.Equal(t, time.May, a.selectedMonth().Month, "cannot move before the first month")

	a = press(t, a, "]", "]")
	assert.Equal(t, time.June, a.selectedMonth().Month)
}

func TestBudgetKeysStepAndClampAtFloor(t *testing.T) {
	a := loadedApp(t)
	require.False(t, a.hasBudget)

	a = press(t, a, "+")
	assert.True(t, a.budget.Equal(decimal.NewFromInt(30000)), "first press starts at the floor")

	a = press(t, a, "+", "+")
	assert.True(t, a.budget.Equal(decimal.NewFromInt(31000)))
	assert.NoError(t, a.budgetErr)

	a = press(t, a, "-", "-", "-", "-")
	assert.True(t, a.budget.Equal(decimal.NewFromInt(30000)), "budget clamps at the floor")

	st := a.budgetState()
	assert.False(t, st.Exceeded)
	assert.True(t, st.Remaining.Equal(decimal.NewFromInt(15050)))
}

func TestConfiguredBudgetBetweenSteps(t *testing.T) {
	cfg := config.DefaultConfig()
	b := 30250.0
	cfg.Budget.Monthly = &b
	a := NewApp(Options{Config: cfg})
	assert.True(t, a.hasBudget)
	assert.NoError(t, a.budgetErr)
	assert.Equal(t, "30250", a.budget.String())

	a.adjustBudget(1)
	assert.Equal(t, "30750", a.budget.String())
	assert.NoError(t, a.budgetErr)
}

func TestConfiguredBudgetBelowFloorReportsError(t *testing.T) {
	cfg := config.DefaultConfig()
	b := 25000.0
	cfg.Budget.Monthly = &b
	a := NewApp(Options{Config: cfg})
	assert.True(t, a.hasBudget)
	assert.Error(t, a.budgetErr)
}

func TestTabKeysAndView(t *testing.T) {
	a := loadedApp(t)

	for key, want := range map[string]int{"m": tabMonth, "b": tabBudget, "f": tabForecast, "a": tabAlerts, "o": tabOverview} {
		a = press(t, a, key)
		assert.Equal(t, want, a.activeTab, "key %q", key)
		assert.NotEmpty(t, a.View())
	}

	a = press(t, a, "m")
	assert.Contains(t, a.View(), "By Category")

	a = press(t, a, "f")
	assert.Contains(t, a.View(), "Forecasting is disabled")
}

func TestStaleForecastIsIgnored(t *testing.T) {
	a := loadedApp(t)
	a.forecasting = true

	m, _ := a.Update(ForecastMsg{Gen: a.forecastGen - 1, Points: []model.ForecastPoint{{Predicted: 1}}})
	got := m.(App)
	assert.True(t, got.forecasting)
	assert.Empty(t, got.forecast)

	m, _ = got.Update(ForecastMsg{Gen: got.forecastGen, Points: []model.ForecastPoint{{Predicted: 1}}})
	got = m.(App)
	assert.False(t, got.forecasting)
	assert.Len(t, got.forecast, 1)
}

func TestLoadErrorView(t *testing.T) {
	a := NewApp(Options{Config: config.DefaultConfig(), LedgerPath: "missing.csv"})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = m.Update(DataLoadedMsg{Err: assert.AnError})
	assert.Contains(t, m.View(), "Could not load ledger")
}

func TestTooNarrow(t *testing.T) {
	a := loadedApp(t)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Contains(t, m.View(), "too narrow")
}

func TestApplySetup(t *testing.T) {
	cfg := config.DefaultConfig()
	vals := SetupValues{Ledger: " ~/tx.csv ", Currency: "$", Budget: "31,000", DateOrder: "mdy", Theme: "tokyo-night"}
	require.NoError(t, ApplySetup(&cfg, vals))
	assert.Equal(t, "~/tx.csv", cfg.General.Ledger)
	assert.Equal(t, "$", cfg.General.Currency)
	assert.Equal(t, "mdy", cfg.General.DateOrder)
	assert.Equal(t, "tokyo-night", cfg.Appearance.Theme)
	require.NotNil(t, cfg.Budget.Monthly)
	assert.InDelta(t, 31000, *cfg.Budget.Monthly, 1e-9)

	vals.Budget = ""
	require.NoError(t, ApplySetup(&cfg, vals))
	assert.Nil(t, cfg.Budget.Monthly)

	vals.Budget = "30250"
	require.NoError(t, ApplySetup(&cfg, vals))
	assert.InDelta(t, 30250, *cfg.Budget.Monthly, 1e-9)

	vals.Budget = "29000"
	assert.Error(t, ApplySetup(&cfg, vals))
	vals.Budget = "lots"
	assert.Error(t, ApplySetup(&cfg, vals))
}

func TestSetupValuesFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	b := 45000.0
	cfg.Budget.Monthly = &b
	v := SetupValuesFrom(cfg)
	assert.Equal(t, "45000", v.Budget)
	assert.True(t, strings.EqualFold(v.Currency, "₹"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "bank.csv"), expandHome("~/bank.csv"))
	assert.Equal(t, "/data/bank.csv", expandHome("/data/bank.csv"))
}
