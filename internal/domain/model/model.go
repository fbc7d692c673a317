// Package model contains domain models passed between pipeline stages.
package model

import "fmt"

// Category classifies a volunteer by the roster table that declared them.
type Category int

// Categories in ascending privilege order. When the same person shows up
// in more than one roster table, the higher value wins.
const (
	CategoryOrdinary Category = iota
	CategoryGroupMember
	CategoryInternal
	CategoryCoupleMember
	CategoryFamilyOfInternal
)

// String returns the roster-facing name of the category.
func (c Category) String() string {
	switch c {
	case CategoryOrdinary:
		return "ordinary"
	case CategoryGroupMember:
		return "group-member"
	case CategoryInternal:
		return "internal"
	case CategoryCoupleMember:
		return "couple-member"
	case CategoryFamilyOfInternal:
		return "family-of-internal"
	default:
		return "unknown"
	}
}

// ParseCategory maps a roster-facing category name back to its Category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "ordinary":
		return CategoryOrdinary, nil
	case "group-member":
		return CategoryGroupMember, nil
	case "internal":
		return CategoryInternal, nil
	case "couple-member":
		return CategoryCoupleMember, nil
	case "family-of-internal":
		return CategoryFamilyOfInternal, nil
	default:
		return CategoryOrdinary, fmt.Errorf("unknown category %q", s)
	}
}

// SourceRef points at the table row a candidate fact came from.
// Provenance only; never consulted by allocation logic.
type SourceRef struct {
	Table string
	Row   int
}

// Candidate is one real person under consideration, merged across every
// roster table that mentions them.
type Candidate struct {
	Key        string // stable identity key, see identity.Key
	Name       string // display name as first seen
	Contact    string // phone/ID fragment used as the identity discriminator
	Category   Category
	SourceRefs []SourceRef
	Seq        int // first-seen input order, used for deterministic tie-breaks
}

// InterviewRecord is one scoring event for one candidate by one sheet.
type InterviewRecord struct {
	CandidateKey string
	Score        float64
	SheetID      string
	Notes        string
	Seq          int // input order across all sheets; later wins same-sheet dedup
}

// AggregatedScore is the single resolved score for a candidate.
type AggregatedScore struct {
	CandidateKey string
	FinalScore   float64
	// Basis lists the scores that contributed and the rule applied,
	// e.g. "single", "mean(82.0,78.0)", "max(60.0,95.0) spread>tolerance".
	Basis    string
	Conflict bool
	// Scored is false when the candidate had no usable interview record
	// and FinalScore holds the sentinel.
	Scored bool
}

// Unit is the indivisible allocation atom: one candidate, or a set that
// must land in the same position together.
type Unit struct {
	ID      string   // deterministic uuid derived from the member keys
	Members []string // candidate keys, sorted
	Score   float64  // min member score; a unit is as strong as its weakest member
	Size    int
	// Category is the most privileged member category, used as the
	// second ranking tie-break.
	Category Category
	// Seq is the smallest member first-seen sequence, the final tie-break.
	Seq int
}

// Position is one staffable slot type.
type Position struct {
	ID       string
	Capacity int
	// Eligible restricts which categories the position accepts.
	// Empty means any category qualifies.
	Eligible []Category
	// Priority orders positions when a unit qualifies for several;
	// lower places first.
	Priority int
}

// Admits reports whether the position accepts the given category.
func (p Position) Admits(c Category) bool {
	if len(p.Eligible) == 0 {
		return true
	}
	for _, e := range p.Eligible {
		if e == c {
			return true
		}
	}
	return false
}

// Designation is an administrative override placing a candidate (and
// therefore their whole unit) into a fixed position before ranking.
type Designation struct {
	CandidateKey string
	PositionID   string
	Seq          int
}

// RejectReason says why a unit could not be placed.
type RejectReason string

const (
	// ReasonNoCapacity means eligible positions existed but none had
	// room for the whole unit.
	ReasonNoCapacity RejectReason = "no-capacity"
	// ReasonNoEligiblePosition means no position admits the unit's category.
	ReasonNoEligiblePosition RejectReason = "no-eligible-position"
)

// Placement records one unit landing in one position.
type Placement struct {
	Unit       Unit
	PositionID string
	// Designated is true when the placement came from an override rather
	// than the ranked pass.
	Designated bool
	// Rank is the unit's index in the ranked order; -1 for designated units.
	Rank int
}

// Rejection records one unit the engine could not place.
type Rejection struct {
	Unit   Unit
	Reason RejectReason
	Rank   int
}

// OverflowEntry lists near-miss rejections for one over-subscribed position:
// units turned away for capacity at a rank at or below the worst rank that
// actually got in.
type OverflowEntry struct {
	PositionID string
	Rejected   []Rejection
}

// AssignmentResult is the engine's terminal artifact.
type AssignmentResult struct {
	Assigned   []Placement
	Unassigned []Rejection
	Overflow   []OverflowEntry
	// Remaining maps position id to capacity left after both passes.
	Remaining map[string]int
}
