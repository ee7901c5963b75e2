// Package pipeline orchestrates ledger loading, filtering, and aggregation.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/model"
)

// SumBy groups txns by key and sums amounts per group.
func SumBy[K comparable](txns []model.Transaction, key func(model.Transaction) K) map[K]decimal.Decimal {
	out := make(map[K]decimal.Decimal)
	for _, t := range txns {
		k := key(t)
		out[k] = out[k].Add(t.Amount)
	}
	return out
}

// CountBy groups txns by key and counts rows per group.
func CountBy[K comparable](txns []model.Transaction, key func(model.Transaction) K) map[K]int {
	out := make(map[K]int)
	for _, t := range txns {
		out[key(t)]++
	}
	return out
}

func monthKey(t model.Transaction) model.MonthKey { return t.Month() }
func categoryKey(t model.Transaction) string      { return t.Category }
func merchantKey(t model.Transaction) string      { return t.Merchant }
func dateKey(t model.Transaction) time.Time       { return model.Day(t.Date) }

// ByMonth sums spend per calendar month.
func ByMonth(txns []model.Transaction) map[model.MonthKey]decimal.Decimal {
	return SumBy(txns, monthKey)
}

// ByCategory sums spend per category.
func ByCategory(txns []model.Transaction) map[string]decimal.Decimal {
	return SumBy(txns, categoryKey)
}

// ByMerchant sums spend per merchant.
func ByMerchant(txns []model.Transaction) map[string]decimal.Decimal {
	return SumBy(txns, merchantKey)
}

// ByDate sums spend per day (UTC midnight).
func ByDate(txns []model.Transaction) map[time.Time]decimal.Decimal {
	return SumBy(txns, dateKey)
}

// Total sums every amount.
func Total(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total
}

// FilterByMonths keeps transactions whose month of the year is in months,
// regardless of year: May 2023 and May 2024 both match time.May.
// Use FilterByDateRange for a year-aware window.
func FilterByMonths(txns []model.Transaction, months ...time.Month) []model.Transaction {
	if len(months) == 0 {
		return nil
	}
	want := make(map[time.Month]struct{}, len(months))
	for _, m := range months {
		want[m] = struct{}{}
	}
	var out []model.Transaction
	for _, t := range txns {
		if _, ok := want[t.Date.Month()]; ok {
			out = append(out, t)
		}
	}
	return out
}

// FilterByMonth keeps transactions in one specific year and month.
func FilterByMonth(txns []model.Transaction, month model.MonthKey) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if t.Month() == month {
			out = append(out, t)
		}
	}
	return out
}

// FilterByDateRange keeps transactions with since <= date < until.
// A zero bound is open.
func FilterByDateRange(txns []model.Transaction, since, until time.Time) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if !since.IsZero() && t.Date.Before(since) {
			continue
		}
		if !until.IsZero() && !t.Date.Before(until) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterByCategory keeps transactions whose category contains substr (case-insensitive).
func FilterByCategory(txns []model.Transaction, substr string) []model.Transaction {
	return filterByField(txns, substr, categoryKey)
}

// FilterByMerchant keeps transactions whose merchant contains substr (case-insensitive).
func FilterByMerchant(txns []model.Transaction, substr string) []model.Transaction {
	return filterByField(txns, substr, merchantKey)
}

func filterByField(txns []model.Transaction, substr string, field func(model.Transaction) string) []model.Transaction {
	needle := strings.ToLower(substr)
	var out []model.Transaction
	for _, t := range txns {
		if strings.Contains(strings.ToLower(field(t)), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Months returns the distinct months present, ascending.
func Months(txns []model.Transaction) []model.MonthKey {
	seen := make(map[model.MonthKey]struct{})
	var out []model.MonthKey
	for _, t := range txns {
		k := t.Month()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// SortedTotals turns a string-keyed aggregate into rows sorted by descending
// total, ties broken by key ascending. Share is relative to the sum of totals.
func SortedTotals(totals map[string]decimal.Decimal) []model.KeyTotal {
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}

	out := make([]model.KeyTotal, 0, len(totals))
	for k, v := range totals {
		kt := model.KeyTotal{Key: k, Total: v}
		if sum.IsPositive() {
			kt.Share = v.Div(sum).InexactFloat64()
		}
		out = append(out, kt)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Breakdown groups txns by key and returns sorted rows with counts.
func Breakdown(txns []model.Transaction, key func(model.Transaction) string) []model.KeyTotal {
	rows := SortedTotals(SumBy(txns, key))
	counts := CountBy(txns, key)
	for i := range rows {
		rows[i].Count = counts[rows[i].Key]
	}
	return rows
}

// CategoryBreakdown is Breakdown keyed by category.
func CategoryBreakdown(txns []model.Transaction) []model.KeyTotal {
	return Breakdown(txns, categoryKey)
}

// MerchantBreakdown is Breakdown keyed by merchant.
func MerchantBreakdown(txns []model.Transaction) []model.KeyTotal {
	return Breakdown(txns, merchantKey)
}

// MonthlySeries returns per-month totals in ascending month order.
func MonthlySeries(txns []model.Transaction) []model.MonthTotal {
	sums := ByMonth(txns)
	counts := CountBy(txns, monthKey)

	out := make([]model.MonthTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, model.MonthTotal{Month: k, Total: v, Count: counts[k]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// DailySeries returns per-day totals in ascending date order. With fillGaps,
// days between the first and last transaction with no spend appear as zero
// rows; use that for charts, never as forecast input.
func DailySeries(txns []model.Transaction, fillGaps bool) []model.DailyTotal {
	sums := ByDate(txns)
	counts := CountBy(txns, dateKey)

	out := make([]model.DailyTotal, 0, len(sums))
	for d, v := range sums {
		out = append(out, model.DailyTotal{Date: d, Total: v, Count: counts[d]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	if !fillGaps || len(out) < 2 {
		return out
	}

	filled := make([]model.DailyTotal, 0, len(out))
	next := 0
	for day := out[0].Date; !day.After(out[len(out)-1].Date); day = day.AddDate(0, 0, 1) {
		if next < len(out) && out[next].Date.Equal(day) {
			filled = append(filled, out[next])
			next++
			continue
		}
		filled = append(filled, model.DailyTotal{Date: day, Total: decimal.Zero})
	}
	return filled
}

// Summarize computes the top-level aggregate for txns. seasonalMonths selects
// the month-of-year window reported as SeasonalTotal.
func Summarize(txns []model.Transaction, seasonalMonths []time.Month) model.Summary {
	s := model.Summary{
		Transactions:   len(txns),
		Total:          Total(txns),
		SeasonalMonths: seasonalMonths,
		SeasonalTotal:  Total(FilterByMonths(txns, seasonalMonths...)),
	}
	if len(txns) == 0 {
		return s
	}

	days := ByDate(txns)
	s.ActiveDays = len(days)
	s.Months = len(Months(txns))

	largest := -1
	for i, t := range txns {
		if s.FirstDate.IsZero() || t.Date.Before(s.FirstDate) {
			s.FirstDate = t.Date
		}
		if t.Date.After(s.LastDate) {
			s.LastDate = t.Date
		}
		if largest < 0 || t.Amount.GreaterThan(txns[largest].Amount) {
			largest = i
		}
	}
	lt := txns[largest]
	s.Largest = &lt

	s.PerActiveDay = s.Total.Div(decimal.NewFromInt(int64(s.ActiveDays))).Round(2)
	s.PerMonth = s.Total.Div(decimal.NewFromInt(int64(s.Months))).Round(2)

	if cats := CategoryBreakdown(txns); len(cats) > 0 {
		s.TopCategory = &cats[0]
	}
	if merchants := MerchantBreakdown(txns); len(merchants) > 0 {
		s.TopMerchant = &merchants[0]
	}
	return s
}
