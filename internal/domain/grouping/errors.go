package grouping

import (
	"errors"
	"fmt"
)

// Sentinel kinds for grouping errors.
var (
	ErrRelationshipConflict = errors.New("relationship conflict")
)

// RelationshipConflictError reports contradictory grouping declarations for
// one candidate. The earliest declaration wins; the later one is ignored
// and recorded, never silently merged.
type RelationshipConflictError struct {
	CandidateKey string
	Kept         string
	Ignored      string
}

// Error implements the error interface.
func (e *RelationshipConflictError) Error() string {
	return fmt.Sprintf("conflicting relationship claims for candidate %s: keeping %s, ignoring %s",
		e.CandidateKey, e.Kept, e.Ignored)
}

// Unwrap lets errors.Is(err, ErrRelationshipConflict) succeed.
func (e *RelationshipConflictError) Unwrap() error { return ErrRelationshipConflict }
