package source

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrBadDate       = errors.New("unparseable date")
	ErrBadAmount     = errors.New("unparseable amount")
	ErrUnreadable    = errors.New("unreadable ledger")
)

// LoadError locates a ledger failure. Line is 1-based and counts the header;
// it is 0 for file-level failures.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("%s:%d: column %q: %v", e.Path, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }
