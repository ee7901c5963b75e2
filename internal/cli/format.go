// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/model"
)

// FormatMoney formats an exact amount with thousands separators and two
// decimals, e.g. "₹1,234.50".
func FormatMoney(symbol string, d decimal.Decimal) string {
	return model.FormatMoney(symbol, d)
}

// FormatMoneyFloat formats a model estimate (forecast values) as money.
func FormatMoneyFloat(symbol string, f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return model.FormatMoney(symbol, decimal.NewFromFloat(f))
}

// FormatCompact formats a large amount with a K/M suffix for narrow columns.
// e.g., 1234 -> "₹1.2K", 2500000 -> "₹2.5M"
func FormatCompact(symbol string, d decimal.Decimal) string {
	f := d.InexactFloat64()
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	switch {
	case f >= 1_000_000:
		return fmt.Sprintf("%s%s%.1fM", sign, symbol, f/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%s%s%.1fK", sign, symbol, f/1_000)
	default:
		return fmt.Sprintf("%s%s%.0f", sign, symbol, f)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDelta formats the change from previous to current with a sign.
func FormatDelta(symbol string, current, previous decimal.Decimal) string {
	delta := current.Sub(previous)
	if delta.IsNegative() {
		return "-" + FormatMoney(symbol, delta.Neg())
	}
	return "+" + FormatMoney(symbol, delta)
}

// FormatMonth renders a month key as "Jun 2024".
func FormatMonth(k model.MonthKey) string {
	if k.IsZero() {
		return "-"
	}
	return k.Start().Format("Jan 2006")
}

// FormatDate renders a day as "2006-01-02", or "-" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// FormatMonths joins month-of-year values as "May, Jun, Jul".
func FormatMonths(months []time.Month) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = m.String()[:3]
	}
	return strings.Join(parts, ", ")
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}

// CategoryLabel returns the display name for a category; empty reads as "Uncategorized".
func CategoryLabel(s string) string {
	if s == "" {
		return "Uncategorized"
	}
	return s
}

// MerchantLabel returns the display name for a merchant; empty reads as "Unknown".
func MerchantLabel(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
