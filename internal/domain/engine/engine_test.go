package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/engine"
	"github.com/okian/muster/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func unit(id string, score float64, size int, seq int, members ...string) model.Unit {
	if len(members) == 0 {
		members = []string{id}
	}
	return model.Unit{ID: id, Members: members, Score: score, Size: size, Seq: seq}
}

func placementFor(placements []model.Placement, unitID string) (model.Placement, bool) {
	for _, p := range placements {
		if p.Unit.ID == unitID {
			return p, true
		}
	}
	return model.Placement{}, false
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	Convey("Given an assignment engine", t, func() {
		collector := diag.NewCollector()
		eng := engine.New(collector)

		Convey("When units fit and capacities suffice", func() {
			positions := []model.Position{
				{ID: "marshal", Capacity: 1, Priority: 0},
				{ID: "water", Capacity: 1, Priority: 1},
				{ID: "finish", Capacity: 2, Priority: 2},
			}
			units := []model.Unit{
				unit("u-a", 90, 1, 0),
				unit("u-b", 80, 2, 1, "b1", "b2"),
				unit("u-c", 70, 1, 2),
			}
			result, err := eng.Assign(ctx, units, positions, nil)

			Convey("Then higher scores take higher-priority positions", func() {
				So(err, ShouldBeNil)
				So(result.Assigned, ShouldHaveLength, 3)

				pa, _ := placementFor(result.Assigned, "u-a")
				So(pa.PositionID, ShouldEqual, "marshal")
				pb, _ := placementFor(result.Assigned, "u-b")
				So(pb.PositionID, ShouldEqual, "finish") // pair skips the single water seat
				pc, _ := placementFor(result.Assigned, "u-c")
				So(pc.PositionID, ShouldEqual, "water")
			})

			Convey("Then remaining capacity is conserved", func() {
				So(result.Remaining["marshal"], ShouldEqual, 0)
				So(result.Remaining["water"], ShouldEqual, 0)
				So(result.Remaining["finish"], ShouldEqual, 0)
				So(result.Unassigned, ShouldBeEmpty)
				So(result.Overflow, ShouldBeEmpty)
			})
		})

		Convey("When total demand exceeds total capacity", func() {
			positions := []model.Position{{ID: "marshal", Capacity: 1, Priority: 0}}
			units := []model.Unit{
				unit("u-a", 90, 1, 0),
				unit("u-b", 80, 1, 1),
				unit("u-c", 70, 1, 2),
			}
			result, err := eng.Assign(ctx, units, positions, nil)

			Convey("Then the strongest unit is placed and the rest reported", func() {
				So(err, ShouldBeNil)
				So(result.Assigned, ShouldHaveLength, 1)
				So(result.Assigned[0].Unit.ID, ShouldEqual, "u-a")
				So(result.Unassigned, ShouldHaveLength, 2)
				for _, rej := range result.Unassigned {
					So(rej.Reason, ShouldEqual, model.ReasonNoCapacity)
				}
			})

			Convey("Then the overflow report lists the near-misses", func() {
				So(result.Overflow, ShouldHaveLength, 1)
				So(result.Overflow[0].PositionID, ShouldEqual, "marshal")
				So(result.Overflow[0].Rejected, ShouldHaveLength, 2)
			})
		})

		Convey("When units tie on score", func() {
			positions := []model.Position{
				{ID: "marshal", Capacity: 1, Priority: 0},
				{ID: "water", Capacity: 3, Priority: 1},
			}
			units := []model.Unit{
				unit("u-late", 85, 1, 5),
				unit("u-early", 85, 1, 1),
				unit("u-big", 85, 2, 3, "x", "y"),
			}
			result, err := eng.Assign(ctx, units, positions, nil)

			Convey("Then size breaks the tie before input order", func() {
				So(err, ShouldBeNil)
				pb, _ := placementFor(result.Assigned, "u-big")
				So(pb.Rank, ShouldEqual, 0)
				pe, _ := placementFor(result.Assigned, "u-early")
				So(pe.Rank, ShouldEqual, 1)
				pl, _ := placementFor(result.Assigned, "u-late")
				So(pl.Rank, ShouldEqual, 2)
			})
		})

		Convey("When category privilege differs at equal score", func() {
			positions := []model.Position{{ID: "marshal", Capacity: 1, Priority: 0}}
			ordinary := unit("u-ord", 85, 1, 0)
			internal := unit("u-int", 85, 1, 1)
			internal.Category = model.CategoryInternal
			result, err := eng.Assign(ctx, []model.Unit{ordinary, internal}, positions, nil)

			Convey("Then the privileged category ranks first", func() {
				So(err, ShouldBeNil)
				So(result.Assigned[0].Unit.ID, ShouldEqual, "u-int")
			})
		})

		Convey("When a position restricts eligibility", func() {
			positions := []model.Position{
				{ID: "vip", Capacity: 5, Priority: 0, Eligible: []model.Category{model.CategoryInternal}},
			}
			ordinary := unit("u-ord", 99, 1, 0)
			result, err := eng.Assign(ctx, []model.Unit{ordinary}, positions, nil)

			Convey("Then an inadmissible unit is unassigned for eligibility", func() {
				So(err, ShouldBeNil)
				So(result.Assigned, ShouldBeEmpty)
				So(result.Unassigned, ShouldHaveLength, 1)
				So(result.Unassigned[0].Reason, ShouldEqual, model.ReasonNoEligiblePosition)
			})
		})

		Convey("When designations are present", func() {
			positions := []model.Position{
				{ID: "marshal", Capacity: 1, Priority: 0},
				{ID: "water", Capacity: 2, Priority: 1},
			}
			units := []model.Unit{
				unit("u-a", 90, 1, 0, "alice"),
				unit("u-b", 50, 1, 1, "bob"),
			}
			designations := []model.Designation{{CandidateKey: "bob", PositionID: "marshal", Seq: 0}}
			result, err := eng.Assign(ctx, units, positions, designations)

			Convey("Then the designated unit takes its seat before ranking", func() {
				So(err, ShouldBeNil)
				pb, ok := placementFor(result.Assigned, "u-b")
				So(ok, ShouldBeTrue)
				So(pb.PositionID, ShouldEqual, "marshal")
				So(pb.Designated, ShouldBeTrue)
				So(pb.Rank, ShouldEqual, -1)
			})

			Convey("Then the stronger unit falls through to the next position", func() {
				pa, _ := placementFor(result.Assigned, "u-a")
				So(pa.PositionID, ShouldEqual, "water")
				So(pa.Designated, ShouldBeFalse)
			})
		})

		Convey("When designations alone exceed a position's capacity", func() {
			positions := []model.Position{{ID: "marshal", Capacity: 1, Priority: 0}}
			units := []model.Unit{
				unit("u-a", 90, 1, 0, "alice"),
				unit("u-b", 80, 1, 1, "bob"),
			}
			designations := []model.Designation{
				{CandidateKey: "alice", PositionID: "marshal", Seq: 0},
				{CandidateKey: "bob", PositionID: "marshal", Seq: 1},
			}
			result, err := eng.Assign(ctx, units, positions, designations)

			Convey("Then the run fails before any placement", func() {
				So(result, ShouldBeNil)
				So(errors.Is(err, engine.ErrCapacityExceeded), ShouldBeTrue)

				var capErr *engine.CapacityExceededError
				So(errors.As(err, &capErr), ShouldBeTrue)
				So(capErr.PositionID, ShouldEqual, "marshal")
				So(capErr.Demand, ShouldEqual, 2)
				So(capErr.Capacity, ShouldEqual, 1)
			})
		})

		Convey("When two designations disagree about one unit", func() {
			positions := []model.Position{
				{ID: "marshal", Capacity: 1, Priority: 0},
				{ID: "water", Capacity: 1, Priority: 1},
			}
			units := []model.Unit{unit("u-a", 90, 1, 0, "alice")}
			designations := []model.Designation{
				{CandidateKey: "alice", PositionID: "water", Seq: 0},
				{CandidateKey: "alice", PositionID: "marshal", Seq: 1},
			}
			result, err := eng.Assign(ctx, units, positions, designations)

			Convey("Then the earliest designation wins with a diagnostic", func() {
				So(err, ShouldBeNil)
				pa, _ := placementFor(result.Assigned, "u-a")
				So(pa.PositionID, ShouldEqual, "water")
				So(collector.CountByKind()[diag.KindDesignationConflict], ShouldEqual, 1)
			})
		})

		Convey("When a designation names an unknown position", func() {
			positions := []model.Position{{ID: "marshal", Capacity: 1, Priority: 0}}
			units := []model.Unit{unit("u-a", 90, 1, 0, "alice")}
			designations := []model.Designation{{CandidateKey: "alice", PositionID: "nowhere", Seq: 0}}
			result, err := eng.Assign(ctx, units, positions, designations)

			Convey("Then the unit falls back to the ranked pass", func() {
				So(err, ShouldBeNil)
				pa, ok := placementFor(result.Assigned, "u-a")
				So(ok, ShouldBeTrue)
				So(pa.PositionID, ShouldEqual, "marshal")
				So(pa.Designated, ShouldBeFalse)
				So(collector.CountByKind()[diag.KindDesignationConflict], ShouldEqual, 1)
			})
		})

		Convey("When a designation names an unknown candidate", func() {
			positions := []model.Position{{ID: "marshal", Capacity: 1, Priority: 0}}
			units := []model.Unit{unit("u-a", 90, 1, 0, "alice")}
			designations := []model.Designation{{CandidateKey: "ghost", PositionID: "marshal", Seq: 0}}
			result, err := eng.Assign(ctx, units, positions, designations)

			Convey("Then it is skipped with a diagnostic", func() {
				So(err, ShouldBeNil)
				So(result.Assigned, ShouldHaveLength, 1)
				So(collector.CountByKind()[diag.KindUnknownCandidate], ShouldEqual, 1)
			})
		})

		Convey("When the position table repeats an id", func() {
			positions := []model.Position{
				{ID: "marshal", Capacity: 1},
				{ID: "marshal", Capacity: 2},
			}
			_, err := eng.Assign(ctx, nil, positions, nil)

			Convey("Then the run fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := eng.Assign(cancelled, nil, nil, nil)

			Convey("Then the run fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("Then every seat is accounted for", func() {
			positions := []model.Position{
				{ID: "marshal", Capacity: 2, Priority: 0},
				{ID: "water", Capacity: 3, Priority: 1},
			}
			units := []model.Unit{
				unit("u-a", 90, 2, 0, "a1", "a2"),
				unit("u-b", 80, 2, 1, "b1", "b2"),
				unit("u-c", 70, 1, 2),
				unit("u-d", 60, 1, 3),
			}
			result, err := eng.Assign(ctx, units, positions, nil)
			So(err, ShouldBeNil)

			used := 0
			for _, p := range result.Assigned {
				used += p.Unit.Size
			}
			left := 0
			for _, rem := range result.Remaining {
				left += rem
			}
			So(used+left, ShouldEqual, 5)
		})
	})
}
