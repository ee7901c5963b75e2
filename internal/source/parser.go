// Package source discovers and parses CSV transaction ledgers.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/model"
)

// Column names, matched case-insensitively after trimming.
const (
	ColDate     = "date"
	ColAmount   = "amount"
	ColCategory = "category"
	ColMerchant = "merchant"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var currencySymbols = []string{"₹", "Rs.", "INR", "$", "€", "£"}

// Unambiguous layouts are tried first; the numeric day/month forms depend on DateOrder.
var (
	isoLayouts = []string{
		"2006-1-2",
		"2006/1/2",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	dayFirstLayouts   = []string{"2/1/2006", "2-1-2006", "2.1.2006"}
	monthFirstLayouts = []string{"1/2/2006", "1-2-2006"}
)

// ParseDate parses a ledger date in any accepted layout and returns it as UTC midnight.
func ParseDate(s string, order DateOrder) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadDate
	}

	layouts := dayFirstLayouts
	if order == MonthFirst {
		layouts = monthFirstLayouts
	}
	for _, group := range [][]string{isoLayouts, layouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return model.Day(t), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// ParseAmount parses a decimal amount, stripping a leading currency symbol
// and thousands separators: "₹1,250.50" -> 1250.50.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(clean, "-") {
		neg = true
		clean = strings.TrimSpace(clean[1:])
	}
	for _, sym := range currencySymbols {
		if strings.HasPrefix(clean, sym) {
			clean = strings.TrimSpace(clean[len(sym):])
			break
		}
	}
	if !neg && strings.HasPrefix(clean, "-") {
		neg = true
		clean = clean[1:]
	}
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" || strings.ContainsAny(clean, "+-") && !strings.ContainsAny(clean, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseFile reads one CSV ledger file.
func ParseFile(df DiscoveredFile, opts Options) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{File: df, Err: &LoadError{Path: df.Path, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}}
	}
	defer func() { _ = f.Close() }()

	res := ParseReader(f, df.Path, opts)
	res.File = df
	return res
}

// columns maps the recognized header names to record indexes; -1 means absent.
type columns struct {
	date, amount, category, merchant int
}

func mapHeader(header []string) columns {
	c := columns{date: -1, amount: -1, category: -1, merchant: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case ColDate:
			if c.date < 0 {
				c.date = i
			}
		case ColAmount:
			if c.amount < 0 {
				c.amount = i
			}
		case ColCategory:
			if c.category < 0 {
				c.category = i
			}
		case ColMerchant:
			if c.merchant < 0 {
				c.merchant = i
			}
		}
	}
	return c
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseReader parses CSV ledger data from r. name is used in error messages.
//
// Header problems are always fatal. Row problems are fatal under PolicyStrict
// and counted under PolicySkip.
func ParseReader(r io.Reader, name string, opts Options) ParseResult {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{Err: &LoadError{Path: name, Line: 1, Err: fmt.Errorf("%w: %s (empty file)", ErrMissingColumn, ColDate)}}
		}
		return ParseResult{Err: &LoadError{Path: name, Line: 1, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}}
	}
	cols := mapHeader(header)
	for _, req := range []struct {
		name string
		idx  int
	}{{ColDate, cols.date}, {ColAmount, cols.amount}} {
		if req.idx < 0 {
			return ParseResult{Err: &LoadError{Path: name, Line: 1, Column: req.name, Err: ErrMissingColumn}}
		}
	}

	var res ParseResult
	reject := func(le *LoadError) bool {
		if opts.Policy == PolicyStrict {
			res.Err = le
			return true
		}
		res.Skipped++
		if len(res.RowErrors) < maxRowErrors {
			res.RowErrors = append(res.RowErrors, le)
		}
		return false
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				res.Err = &LoadError{Path: name, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
				return res
			}
			res.Rows++
			if reject(&LoadError{Path: name, Line: pe.Line, Err: pe.Err}) {
				return res
			}
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		res.Rows++
		line, _ := cr.FieldPos(0)

		date, err := ParseDate(field(rec, cols.date), opts.DateOrder)
		if err != nil {
			if reject(&LoadError{Path: name, Line: line, Column: ColDate, Err: err}) {
				return res
			}
			continue
		}
		amount, err := ParseAmount(field(rec, cols.amount))
		if err != nil {
			if reject(&LoadError{Path: name, Line: line, Column: ColAmount, Err: err}) {
				return res
			}
			continue
		}

		res.Transactions = append(res.Transactions, model.Transaction{
			Date:     date,
			Amount:   amount,
			Category: field(rec, cols.category),
			Merchant: field(rec, cols.merchant),
		})
	}

	return res
}
