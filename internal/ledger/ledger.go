// Package ledger holds the immutable, date-ordered set of transactions every
// report is computed from.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/model"
)

// Ledger is an immutable collection of transactions sorted by date.
// A nil *Ledger behaves as an empty ledger.
type Ledger struct {
	txns  []model.Transaction
	total decimal.Decimal
}

// New copies txns, normalizes dates to UTC midnight and sorts them stably by date.
func New(txns []model.Transaction) *Ledger {
	cp := make([]model.Transaction, len(txns))
	copy(cp, txns)

	total := decimal.Zero
	for i := range cp {
		cp[i].Date = model.Day(cp[i].Date)
		total = total.Add(cp[i].Amount)
	}
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Date.Before(cp[j].Date)
	})

	return &Ledger{txns: cp, total: total}
}

// Transactions returns a copy of the ledger's rows.
func (l *Ledger) Transactions() []model.Transaction {
	if l == nil {
		return nil
	}
	cp := make([]model.Transaction, len(l.txns))
	copy(cp, l.txns)
	return cp
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.txns)
}

// IsEmpty reports whether the ledger has no rows.
func (l *Ledger) IsEmpty() bool { return l.Len() == 0 }

// Total returns the sum of all amounts.
func (l *Ledger) Total() decimal.Decimal {
	if l == nil {
		return decimal.Zero
	}
	return l.total
}

// FirstDate returns the earliest transaction date, or the zero time.
func (l *Ledger) FirstDate() time.Time {
	if l.IsEmpty() {
		return time.Time{}
	}
	return l.txns[0].Date
}

// LastDate returns the latest transaction date, or the zero time.
func (l *Ledger) LastDate() time.Time {
	if l.IsEmpty() {
		return time.Time{}
	}
	return l.txns[len(l.txns)-1].Date
}

// Months returns the distinct months present, ascending.
func (l *Ledger) Months() []model.MonthKey {
	if l.IsEmpty() {
		return nil
	}
	var out []model.MonthKey
	for _, t := range l.txns {
		k := t.Month()
		if len(out) == 0 || out[len(out)-1] != k {
			out = append(out, k)
		}
	}
	return out
}

// LatestMonth returns the month of the newest transaction.
func (l *Ledger) LatestMonth() (model.MonthKey, bool) {
	if l.IsEmpty() {
		return model.MonthKey{}, false
	}
	return l.txns[len(l.txns)-1].Month(), true
}
