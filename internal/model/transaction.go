// Package model defines domain types for spendburn transactions and reports.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one spending event from the ledger.
// Date is always truncated to UTC midnight.
type Transaction struct {
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Merchant string          `json:"merchant"`
}

// Month returns the calendar month the transaction belongs to.
func (t Transaction) Month() MonthKey {
	return MonthOf(t.Date)
}

// Day truncates t to midnight UTC, dropping the time of day and zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthKey identifies a calendar month ("YYYY-MM").
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month key containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month %q (want YYYY-MM)", s)
	}
	return MonthOf(t), nil
}

func (k MonthKey) String() string {
	if k.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// IsZero reports whether k is unset.
func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}

// Before reports whether k is strictly earlier than o.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Start returns midnight UTC on the first day of the month.
func (k MonthKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (k MonthKey) Next() MonthKey {
	return MonthOf(k.Start().AddDate(0, 1, 0))
}

// Prev returns the preceding month.
func (k MonthKey) Prev() MonthKey {
	return MonthOf(k.Start().AddDate(0, -1, 0))
}

// Days returns the number of days in the month.
func (k MonthKey) Days() int {
	return k.Next().Start().AddDate(0, 0, -1).Day()
}

// MarshalText encodes the key as "YYYY-MM" so it can be used as a JSON map key.
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "YYYY-MM".
func (k *MonthKey) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = MonthKey{}
		return nil
	}
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
