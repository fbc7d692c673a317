package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for engine errors.
var (
	ErrCapacityExceeded = errors.New("designated capacity exceeded")
)

// CapacityExceededError means the direct designations alone demand more
// seats than a position has. This is an inconsistent input file, not a
// scheduling outcome, so the run aborts before any automatic placement.
type CapacityExceededError struct {
	PositionID string
	Capacity   int
	Demand     int
	// UnitIDs names the designated units competing for the position.
	UnitIDs []string
}

// Error implements the error interface.
func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("designations demand %d seats at position %s (capacity %d): units %s",
		e.Demand, e.PositionID, e.Capacity, strings.Join(e.UnitIDs, ", "))
}

// Unwrap lets errors.Is(err, ErrCapacityExceeded) succeed.
func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }
