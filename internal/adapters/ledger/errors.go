package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrUnknownPosition      = errors.New("unknown position")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrInvalidReservation   = errors.New("invalid reservation size")
)
