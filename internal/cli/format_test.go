package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/theirongolddev/spendburn/internal/model"
)

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		1234567:   "1,234,567",
		-45000:    "-45,000",
		100000000: "100,000,000",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatNumber(in), "FormatNumber(%d)", in)
	}
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "₹950", FormatCompact("₹", decimal.NewFromInt(950)))
	assert.Equal(t, "₹1.2K", FormatCompact("₹", decimal.NewFromInt(1234)))
	assert.Equal(t, "₹2.5M", FormatCompact("₹", decimal.NewFromInt(2_500_000)))
	assert.Equal(t, "-$1.5K", FormatCompact("$", decimal.NewFromInt(-1500)))
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+₹500.00", FormatDelta("₹", decimal.NewFromInt(1500), decimal.NewFromInt(1000)))
	assert.Equal(t, "-₹250.50", FormatDelta("₹", decimal.NewFromInt(1000), decimal.RequireFromString("1250.50")))
}

func TestFormatMonthAndDate(t *testing.T) {
	assert.Equal(t, "Jun 2024", FormatMonth(model.MonthKey{Year: 2024, Month: time.June}))
	assert.Equal(t, "-", FormatMonth(model.MonthKey{}))
	assert.Equal(t, "2024-06-02", FormatDate(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "-", FormatDate(time.Time{}))
	assert.Equal(t, "May, Jun, Jul", FormatMonths([]time.Month{5, 6, 7}))
}

func TestFormatMoneyFloat(t *testing.T) {
	assert.Equal(t, "₹1,234.57", FormatMoneyFloat("₹", 1234.567))
}

func TestRenderTablePadsByRunes(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Category", "Total"},
		Rows: [][]string{
			{"Food", "₹1,000.00"},
			{"Rent", "₹31,000.00"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := -1
	for _, l := range lines {
		n := len([]rune(stripANSI(l)))
		if width < 0 {
			width = n
		}
		assert.Equal(t, width, n, "row %q", l)
	}
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "", RenderSparkline(nil))
	assert.Equal(t, "▁█", RenderSparkline([]float64{0, 10}))
	assert.Equal(t, "▁▁", RenderSparkline([]float64{0, 0}))
}

func TestRenderBudgetBar(t *testing.T) {
	over := model.BudgetState{Exceeded: true, UsedPercent: 120}
	assert.Contains(t, RenderBudgetBar(over, 10), "120.0%")
	assert.Contains(t, RenderVerdict(over), "OVER BUDGET")
}

// stripANSI removes SGR escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && r == 'm':
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TestDisplayLabels(t *testing.T) {
	assert.Equal(t, "Uncategorized", CategoryLabel(""))
	assert.Equal(t, "Food", CategoryLabel("Food"))
	assert.Equal(t, "Unknown", MerchantLabel(""))
	assert.Equal(t, "Swiggy", MerchantLabel("Swiggy"))
}
