package source

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/spendburn/internal/model"
)

// DiscoveredFile is a CSV ledger file found during scanning.
type DiscoveredFile struct {
	Path string
	Name string // base name, used in diagnostics
	Size int64
}

// Policy decides what happens to rows that fail to parse.
type Policy int

const (
	// PolicyStrict rejects the whole file on the first bad row.
	PolicyStrict Policy = iota
	// PolicySkip drops bad rows and records them in ParseResult.
	PolicySkip
)

func (p Policy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "strict"
}

// ParsePolicy maps "strict" or "skip" to a Policy. Empty means strict.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return PolicyStrict, nil
	case "skip":
		return PolicySkip, nil
	}
	return PolicyStrict, fmt.Errorf("unknown load policy %q (want strict or skip)", s)
}

// DateOrder resolves ambiguous numeric dates like 03/04/2024.
type DateOrder int

const (
	DayFirst DateOrder = iota
	MonthFirst
)

func (o DateOrder) String() string {
	if o == MonthFirst {
		return "mdy"
	}
	return "dmy"
}

// ParseDateOrder maps "dmy" or "mdy" to a DateOrder. Empty means dmy.
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dmy":
		return DayFirst, nil
	case "mdy":
		return MonthFirst, nil
	}
	return DayFirst, fmt.Errorf("unknown date order %q (want dmy or mdy)", s)
}

// Options controls CSV parsing.
type Options struct {
	Policy    Policy
	DateOrder DateOrder
}

// maxRowErrors caps how many row errors a ParseResult keeps.
const maxRowErrors = 10

// ParseResult holds the output of parsing a single ledger file.
type ParseResult struct {
	File         DiscoveredFile
	Transactions []model.Transaction
	Rows         int // data rows read, excluding the header
	Skipped      int
	RowErrors    []error // first few skipped-row errors
	Err          error
}
