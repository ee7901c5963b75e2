package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendburn/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(date, amount, category, merchant string) model.Transaction {
	return model.Transaction{Date: day(date), Amount: d(amount), Category: category, Merchant: merchant}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func sample() []model.Transaction {
	return []model.Transaction{
		tx("2023-05-14", "120.10", "Food", "Swiggy"),
		tx("2023-08-01", "2000", "Rent", "Landlord"),
		tx("2024-05-02", "300.20", "Food", "Zomato"),
		tx("2024-05-02", "99.70", "Travel", "Uber"),
		tx("2024-06-30", "1500", "Shopping", "Amazon"),
		tx("2024-07-04", "0.30", "Food", "Swiggy"),
		tx("2024-09-10", "-50", "Shopping", "Amazon"),
	}
}

func TestAggregationConservesTotal(t *testing.T) {
	txns := sample()
	total := Total(txns)
	assertDecimal(t, "3970.30", total)

	for name, agg := range map[string]map[string]decimal.Decimal{
		"category": ByCategory(txns),
		"merchant": ByMerchant(txns),
	} {
		sum := decimal.Zero
		for _, v := range agg {
			sum = sum.Add(v)
		}
		assert.True(t, sum.Equal(total), "%s sum %s != total %s", name, sum, total)
	}

	sum := decimal.Zero
	for _, v := range ByMonth(txns) {
		sum = sum.Add(v)
	}
	assert.True(t, sum.Equal(total))

	sum = decimal.Zero
	for _, v := range ByDate(txns) {
		sum = sum.Add(v)
	}
	assert.True(t, sum.Equal(total))
}

func TestFilterByMonthsIgnoresYear(t *testing.T) {
	got := FilterByMonths(sample(), time.May, time.June, time.July)
	require.Len(t, got, 5)
	for _, tr := range got {
		assert.Contains(t, []time.Month{time.May, time.June, time.July}, tr.Date.Month())
	}
	assert.Equal(t, 2023, got[0].Date.Year(), "May 2023 is kept alongside May 2024")
	assertDecimal(t, "2020.30", Total(got))

	assert.Empty(t, FilterByMonths(sample()))
}

func TestFilterByMonthAndRange(t *testing.T) {
	may24 := model.MonthKey{Year: 2024, Month: time.May}
	got := FilterByMonth(sample(), may24)
	require.Len(t, got, 2)
	assertDecimal(t, "399.90", Total(got))

	ranged := FilterByDateRange(sample(), day("2024-05-01"), day("2024-07-04"))
	assert.Len(t, ranged, 3, "until is exclusive")

	open := FilterByDateRange(sample(), time.Time{}, day("2023-09-01"))
	assert.Len(t, open, 2)
}

func TestFilterByCategoryAndMerchant(t *testing.T) {
	assert.Len(t, FilterByCategory(sample(), "foo"), 3)
	assert.Len(t, FilterByMerchant(sample(), "AMAZ"), 2)
	assert.Empty(t, FilterByMerchant(sample(), "flipkart"))
}

func TestMonthsAscending(t *testing.T) {
	months := Months(sample())
	var got []string
	for _, m := range months {
		got = append(got, m.String())
	}
	assert.Equal(t, []string{"2023-05", "2023-08", "2024-05", "2024-06", "2024-07", "2024-09"}, got)
}

func TestSortedTotalsOrderAndTies(t *testing.T) {
	rows := SortedTotals(map[string]decimal.Decimal{
		"b": d("100"),
		"a": d("100"),
		"c": d("300"),
	})
	require.Len(t, rows, 3)
	assert.Equal(t, "c", rows[0].Key)
	assert.Equal(t, "a", rows[1].Key, "ties break by key")
	assert.Equal(t, "b", rows[2].Key)
	assert.InDelta(t, 0.6, rows[0].Share, 1e-9)
}

func TestBreakdownCounts(t *testing.T) {
	rows := CategoryBreakdown(sample())
	require.NotEmpty(t, rows)
	assert.Equal(t, "Rent", rows[0].Key)

	for _, r := range rows {
		if r.Key == "Food" {
			assert.Equal(t, 3, r.Count)
			assertDecimal(t, "420.60", r.Total)
		}
	}
}

func TestDailySeriesFillGaps(t *testing.T) {
	txns := []model.Transaction{
		tx("2024-01-01", "10", "", ""),
		tx("2024-01-04", "5", "", ""),
		tx("2024-01-01", "2", "", ""),
	}

	sparse := DailySeries(txns, false)
	require.Len(t, sparse, 2)
	assertDecimal(t, "12", sparse[0].Total)
	assert.Equal(t, 2, sparse[0].Count)

	filled := DailySeries(txns, true)
	require.Len(t, filled, 4)
	assert.True(t, filled[1].Total.IsZero())
	assert.Equal(t, day("2024-01-03"), filled[2].Date)
}

func TestMonthlySeries(t *testing.T) {
	series := MonthlySeries(sample())
	require.Len(t, series, 6)
	assert.Equal(t, "2023-05", series[0].Month.String())
	assertDecimal(t, "399.90", series[2].Total)
	assert.Equal(t, 2, series[2].Count)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample(), []time.Month{time.May, time.June, time.July})
	assert.Equal(t, 7, s.Transactions)
	assertDecimal(t, "3970.30", s.Total)
	assert.Equal(t, 6, s.ActiveDays)
	assert.Equal(t, 6, s.Months)
	assert.Equal(t, day("2023-05-14"), s.FirstDate)
	assert.Equal(t, day("2024-09-10"), s.LastDate)
	require.NotNil(t, s.Largest)
	assertDecimal(t, "2000", s.Largest.Amount)
	require.NotNil(t, s.TopCategory)
	assert.Equal(t, "Rent", s.TopCategory.Key)
	assertDecimal(t, "2020.30", s.SeasonalTotal)
	assertDecimal(t, "661.72", s.PerActiveDay)
}

func TestEmptyInput(t *testing.T) {
	assert.Empty(t, ByCategory(nil))
	assert.Empty(t, ByMonth(nil))
	assert.True(t, Total(nil).IsZero())
	assert.Empty(t, Months(nil))
	assert.Empty(t, DailySeries(nil, true))

	s := Summarize(nil, []time.Month{time.May})
	assert.Equal(t, 0, s.Transactions)
	assert.True(t, s.Total.IsZero())
	assert.Nil(t, s.Largest)
}

func TestAggregationIsIdempotent(t *testing.T) {
	txns := sample()
	first := CategoryBreakdown(txns)
	second := CategoryBreakdown(txns)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.True(t, first[i].Total.Equal(second[i].Total))
	}
	assert.Equal(t, sample(), txns, "input is not mutated")
}
