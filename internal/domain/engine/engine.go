// Package engine places ranked allocation units into capacity-bounded
// positions. Direct designations land first and are immune to displacement;
// everything else is placed in one greedy pass over the ranked order.
// Greedy-by-rank is deliberate: designations and ranking already front-load
// priority, a single forward pass stays O(units x positions) and
// deterministic, and no later unit ever displaces an earlier one.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/muster/internal/adapters/ledger"
	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/model"
)

// Engine runs the two-pass assignment.
type Engine struct {
	diagnostic *diag.Collector
}

// New creates an Engine recording recovered designation problems into the
// given collector.
func New(collector *diag.Collector) *Engine {
	return &Engine{diagnostic: collector}
}

// Assign produces the assignment result. It always returns a result when
// the inputs are consistent, even with units left unassigned; the only
// fatal outcome is CapacityExceededError, raised before any automatic
// placement when designations alone overflow a position.
func (e *Engine) Assign(ctx context.Context, units []model.Unit, positions []model.Position, designations []model.Designation) (*model.AssignmentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ordered, err := orderPositions(positions)
	if err != nil {
		return nil, err
	}
	book := ledger.New(positions)

	byMember := make(map[string]*model.Unit)
	byID := make(map[string]*model.Unit, len(units))
	for i := range units {
		u := &units[i]
		byID[u.ID] = u
		for _, m := range u.Members {
			byMember[m] = u
		}
	}

	designated, err := e.applyDesignations(book, ordered, byMember, byID, designations)
	if err != nil {
		return nil, err
	}

	result := &model.AssignmentResult{Assigned: designated}

	ranked := rankUnits(units, designated)
	rejectedAt := make(map[string][]model.Rejection)
	placedWorstRank := make(map[string]int)

	for rank, unit := range ranked {
		eligible := eligiblePositions(ordered, unit.Category)
		if len(eligible) == 0 {
			result.Unassigned = append(result.Unassigned, model.Rejection{
				Unit:   unit,
				Reason: model.ReasonNoEligiblePosition,
				Rank:   rank,
			})
			continue
		}

		placed := false
		for _, pos := range eligible {
			if !book.Fits(pos.ID, unit.Size) {
				continue
			}
			if err := book.Reserve(pos.ID, unit.Size); err != nil {
				return nil, fmt.Errorf("reserve seats for unit %s: %w", unit.ID, err)
			}
			result.Assigned = append(result.Assigned, model.Placement{
				Unit:       unit,
				PositionID: pos.ID,
				Rank:       rank,
			})
			placedWorstRank[pos.ID] = rank // ranks ascend, so the last write is the worst
			placed = true
			break
		}
		if placed {
			continue
		}

		rejection := model.Rejection{Unit: unit, Reason: model.ReasonNoCapacity, Rank: rank}
		result.Unassigned = append(result.Unassigned, rejection)
		for _, pos := range eligible {
			rejectedAt[pos.ID] = append(rejectedAt[pos.ID], rejection)
		}
	}

	result.Overflow = collectOverflow(ordered, rejectedAt, placedWorstRank)
	result.Remaining = book.Snapshot()
	return result, nil
}

// applyDesignations resolves the override list, verifies the designated
// demand fits every position, then reserves seats and emits placements.
// The capacity check runs over the whole list before any reservation so a
// fatal overflow never leaves a half-applied ledger.
func (e *Engine) applyDesignations(book *ledger.Ledger, positions []model.Position, byMember, byID map[string]*model.Unit, designations []model.Designation) ([]model.Placement, error) {
	ordered := make([]model.Designation, len(designations))
	copy(ordered, designations)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	posByID := make(map[string]model.Position, len(positions))
	for _, pos := range positions {
		posByID[pos.ID] = pos
	}

	target := make(map[string]string) // unit id -> position id, earliest designation wins
	var unitOrder []string
	for _, des := range ordered {
		unit, ok := byMember[des.CandidateKey]
		if !ok {
			unit, ok = byID[des.CandidateKey]
		}
		if !ok {
			e.diagnostic.Record(diag.Issue{
				Kind:         diag.KindUnknownCandidate,
				CandidateKey: des.CandidateKey,
				Detail:       fmt.Sprintf("designation to position %s names an unknown candidate or unit", des.PositionID),
			})
			continue
		}
		if _, ok := posByID[des.PositionID]; !ok {
			e.diagnostic.Record(diag.Issue{
				Kind:         diag.KindDesignationConflict,
				CandidateKey: des.CandidateKey,
				Detail:       fmt.Sprintf("designation names unknown position %s; unit %s returned to the ranked pass", des.PositionID, unit.ID),
			})
			continue
		}
		if prev, ok := target[unit.ID]; ok {
			if prev != des.PositionID {
				e.diagnostic.Record(diag.Issue{
					Kind:         diag.KindDesignationConflict,
					CandidateKey: des.CandidateKey,
					Detail: fmt.Sprintf("unit %s already designated to position %s; ignoring later designation to %s",
						unit.ID, prev, des.PositionID),
				})
			}
			continue
		}
		target[unit.ID] = des.PositionID
		unitOrder = append(unitOrder, unit.ID)
	}

	// Verify first: fatal overflow must surface before anything is placed.
	demand := make(map[string]int)
	claimants := make(map[string][]string)
	for _, unitID := range unitOrder {
		posID := target[unitID]
		demand[posID] += byID[unitID].Size
		claimants[posID] = append(claimants[posID], unitID)
	}
	for _, pos := range positions {
		if demand[pos.ID] > pos.Capacity {
			return nil, &CapacityExceededError{
				PositionID: pos.ID,
				Capacity:   pos.Capacity,
				Demand:     demand[pos.ID],
				UnitIDs:    claimants[pos.ID],
			}
		}
	}

	placements := make([]model.Placement, 0, len(unitOrder))
	for _, unitID := range unitOrder {
		unit := byID[unitID]
		posID := target[unitID]
		if err := book.Reserve(posID, unit.Size); err != nil {
			return nil, fmt.Errorf("reserve designated seats for unit %s: %w", unitID, err)
		}
		placements = append(placements, model.Placement{
			Unit:       *unit,
			PositionID: posID,
			Designated: true,
			Rank:       -1,
		})
	}
	return placements, nil
}

// rankUnits orders the non-designated units for the greedy pass: score
// descending, then category privilege, then size descending (larger units
// are harder to fit), then first-seen input order.
func rankUnits(units []model.Unit, designated []model.Placement) []model.Unit {
	skip := make(map[string]struct{}, len(designated))
	for _, p := range designated {
		skip[p.Unit.ID] = struct{}{}
	}

	ranked := make([]model.Unit, 0, len(units))
	for _, u := range units {
		if _, ok := skip[u.ID]; !ok {
			ranked = append(ranked, u)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Category != b.Category {
			return a.Category > b.Category
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return a.Seq < b.Seq
	})
	return ranked
}

// orderPositions sorts positions by priority then id and rejects duplicate
// ids, which would make capacity accounting ambiguous.
func orderPositions(positions []model.Position) ([]model.Position, error) {
	seen := make(map[string]struct{}, len(positions))
	for _, pos := range positions {
		if _, dup := seen[pos.ID]; dup {
			return nil, fmt.Errorf("duplicate position id %s in position table", pos.ID)
		}
		seen[pos.ID] = struct{}{}
	}
	ordered := make([]model.Position, len(positions))
	copy(ordered, positions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered, nil
}

// eligiblePositions filters the ordered positions down to those admitting
// the category, preserving priority order.
func eligiblePositions(positions []model.Position, category model.Category) []model.Position {
	var out []model.Position
	for _, pos := range positions {
		if pos.Admits(category) {
			out = append(out, pos)
		}
	}
	return out
}

// collectOverflow lists, per position, the capacity rejections at or below
// the worst rank actually placed there, so operators see the near-misses
// at the cut line.
func collectOverflow(positions []model.Position, rejectedAt map[string][]model.Rejection, placedWorstRank map[string]int) []model.OverflowEntry {
	ids := make([]string, 0, len(positions))
	for _, pos := range positions {
		ids = append(ids, pos.ID)
	}
	sort.Strings(ids)

	var out []model.OverflowEntry
	for _, id := range ids {
		rejections := rejectedAt[id]
		if len(rejections) == 0 {
			continue
		}
		worst, placed := placedWorstRank[id]
		if !placed {
			worst = -1 // nothing placed: every capacity rejection is a near-miss
		}
		var kept []model.Rejection
		for _, rej := range rejections {
			if rej.Rank >= worst {
				kept = append(kept, rej)
			}
		}
		if len(kept) > 0 {
			out = append(out, model.OverflowEntry{PositionID: id, Rejected: kept})
		}
	}
	return out
}
