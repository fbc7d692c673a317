package interview

import (
	"errors"
	"fmt"
)

// Sentinel kinds for aggregation errors.
var (
	ErrScoreRange = errors.New("score out of range")
)

// ScoreRangeError reports an interview record whose score falls outside the
// configured valid range. The record is excluded and the candidate is
// aggregated from the remaining valid records; the run continues.
type ScoreRangeError struct {
	CandidateKey string
	SheetID      string
	Score        float64
	Min, Max     float64
}

// Error implements the error interface.
func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("score %g for candidate %s on sheet %s outside valid range [%g,%g]",
		e.Score, e.CandidateKey, e.SheetID, e.Min, e.Max)
}

// Unwrap lets errors.Is(err, ErrScoreRange) succeed.
func (e *ScoreRangeError) Unwrap() error { return ErrScoreRange }
