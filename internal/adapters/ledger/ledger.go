// Package ledger tracks remaining per-position capacity for the duration
// of one assignment run. The engine owns the ledger exclusively; nothing
// else mutates capacity, which keeps the engine re-runnable from the same
// immutable inputs.
package ledger

import (
	"fmt"
	"sort"

	"github.com/okian/muster/internal/domain/model"
)

// Ledger is the mutable capacity book for one run.
type Ledger struct {
	remaining map[string]int
	capacity  map[string]int
}

// New opens a ledger with every position at full capacity.
func New(positions []model.Position) *Ledger {
	l := &Ledger{
		remaining: make(map[string]int, len(positions)),
		capacity:  make(map[string]int, len(positions)),
	}
	for _, pos := range positions {
		l.remaining[pos.ID] = pos.Capacity
		l.capacity[pos.ID] = pos.Capacity
	}
	return l
}

// Remaining returns the capacity left for a position.
func (l *Ledger) Remaining(positionID string) (int, error) {
	rem, ok := l.remaining[positionID]
	if !ok {
		return 0, fmt.Errorf("position %s: %w", positionID, ErrUnknownPosition)
	}
	return rem, nil
}

// Fits reports whether the position can still take n seats.
func (l *Ledger) Fits(positionID string, n int) bool {
	rem, ok := l.remaining[positionID]
	return ok && rem >= n
}

// Reserve takes n seats from a position. It fails without mutating when the
// position is unknown or the seats are not there.
func (l *Ledger) Reserve(positionID string, n int) error {
	if n <= 0 {
		return fmt.Errorf("reserve %d seats: %w", n, ErrInvalidReservation)
	}
	rem, ok := l.remaining[positionID]
	if !ok {
		return fmt.Errorf("position %s: %w", positionID, ErrUnknownPosition)
	}
	if rem < n {
		return fmt.Errorf("position %s has %d of %d seats left, need %d: %w",
			positionID, rem, l.capacity[positionID], n, ErrInsufficientCapacity)
	}
	l.remaining[positionID] = rem - n
	return nil
}

// Snapshot returns the current remaining capacity per position.
func (l *Ledger) Snapshot() map[string]int {
	out := make(map[string]int, len(l.remaining))
	for id, rem := range l.remaining {
		out[id] = rem
	}
	return out
}

// PositionIDs returns the known position ids sorted, for deterministic
// iteration in reports.
func (l *Ledger) PositionIDs() []string {
	ids := make([]string, 0, len(l.remaining))
	for id := range l.remaining {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
