package identity

import (
	"errors"
	"fmt"
)

// Sentinel kinds for identity errors. Callers match with errors.Is.
var (
	ErrMalformedRow = errors.New("malformed row")
)

// MalformedRowError reports a roster row missing mandatory identity fields.
// The row is skipped and recorded in diagnostics; the run continues.
type MalformedRowError struct {
	Table  string
	Row    int
	Reason string
}

// Error implements the error interface.
func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %s:%d: %s", e.Table, e.Row, e.Reason)
}

// Unwrap lets errors.Is(err, ErrMalformedRow) succeed.
func (e *MalformedRowError) Unwrap() error { return ErrMalformedRow }
