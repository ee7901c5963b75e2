package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// KeyTotal is one row of a sorted breakdown (category, merchant).
type KeyTotal struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	Share float64         `json:"share"` // fraction of the breakdown total, 0..1
}

// MonthTotal holds spend for one calendar month.
type MonthTotal struct {
	Month MonthKey        `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// DailyTotal holds spend for one calendar day.
type DailyTotal struct {
	Date  time.Time       `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Summary holds the top-level aggregate across a set of transactions.
type Summary struct {
	Transactions int             `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
	FirstDate    time.Time       `json:"first_date"`
	LastDate     time.Time       `json:"last_date"`
	ActiveDays   int             `json:"active_days"`
	Months       int             `json:"months"`

	PerActiveDay decimal.Decimal `json:"per_active_day"`
	PerMonth     decimal.Decimal `json:"per_month"`

	Largest     *Transaction `json:"largest,omitempty"`
	TopCategory *KeyTotal    `json:"top_category,omitempty"`
	TopMerchant *KeyTotal    `json:"top_merchant,omitempty"`

	// Seasonal window: months of the year summed across every year.
	SeasonalMonths []time.Month    `json:"seasonal_months"`
	SeasonalTotal  decimal.Decimal `json:"seasonal_total"`
}
