package tabular

import "errors"

// Sentinel kinds for tabular boundary errors.
var (
	ErrMissingHeader = errors.New("missing header")
	ErrWrongColumns  = errors.New("unexpected column layout")
)
