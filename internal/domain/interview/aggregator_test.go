package interview_test

import (
	"context"
	"testing"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/interview"
	"github.com/okian/muster/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func candidates(keys ...string) []model.Candidate {
	out := make([]model.Candidate, len(keys))
	for i, k := range keys {
		out[i] = model.Candidate{Key: k, Name: k, Seq: i}
	}
	return out
}

func scoreFor(scores []model.AggregatedScore, key string) (model.AggregatedScore, bool) {
	for _, sc := range scores {
		if sc.CandidateKey == key {
			return sc, true
		}
	}
	return model.AggregatedScore{}, false
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()

	Convey("Given an aggregator with default options", t, func() {
		collector := diag.NewCollector()
		agg := interview.New(collector)

		Convey("When a candidate has a single record", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 82, SheetID: "sheet-1", Seq: 0},
			})

			Convey("Then the score passes through unchanged", func() {
				So(err, ShouldBeNil)
				sc, ok := scoreFor(scores, "alice")
				So(ok, ShouldBeTrue)
				So(sc.FinalScore, ShouldEqual, 82)
				So(sc.Scored, ShouldBeTrue)
				So(sc.Conflict, ShouldBeFalse)
				So(sc.Basis, ShouldEqual, "single(82)")
			})
		})

		Convey("When two sheets agree within tolerance", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 80, SheetID: "sheet-1", Seq: 0},
				{CandidateKey: "alice", Score: 86, SheetID: "sheet-2", Seq: 1},
			})

			Convey("Then the final score is the mean", func() {
				So(err, ShouldBeNil)
				sc, _ := scoreFor(scores, "alice")
				So(sc.FinalScore, ShouldEqual, 83)
				So(sc.Conflict, ShouldBeFalse)
				So(sc.Basis, ShouldEqual, "mean(80,86)")
			})
		})

		Convey("When two sheets disagree beyond tolerance", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 60, SheetID: "sheet-1", Seq: 0},
				{CandidateKey: "alice", Score: 95, SheetID: "sheet-2", Seq: 1},
			})

			Convey("Then the maximum wins with a conflict flag", func() {
				So(err, ShouldBeNil)
				sc, _ := scoreFor(scores, "alice")
				So(sc.FinalScore, ShouldEqual, 95)
				So(sc.Conflict, ShouldBeTrue)
				So(sc.Basis, ShouldEqual, "max(60,95) spread>10")
			})
		})

		Convey("When one sheet scores the same candidate twice", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 70, SheetID: "sheet-1", Seq: 0},
				{CandidateKey: "alice", Score: 75, SheetID: "sheet-1", Seq: 3},
			})

			Convey("Then the later submission wins", func() {
				So(err, ShouldBeNil)
				sc, _ := scoreFor(scores, "alice")
				So(sc.FinalScore, ShouldEqual, 75)
				So(sc.Conflict, ShouldBeFalse)
			})

			Convey("Then the duplicate is recorded", func() {
				So(collector.CountByKind()[diag.KindDuplicateEntry], ShouldEqual, 1)
			})
		})

		Convey("When a candidate has no records at all", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice", "bob"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 82, SheetID: "sheet-1", Seq: 0},
			})

			Convey("Then the unscored candidate gets the sentinel", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldHaveLength, 2)
				sc, ok := scoreFor(scores, "bob")
				So(ok, ShouldBeTrue)
				So(sc.FinalScore, ShouldEqual, agg.Sentinel())
				So(sc.Scored, ShouldBeFalse)
				So(sc.Basis, ShouldEqual, "unscored")
			})

			Convey("Then the sentinel ranks below every valid score", func() {
				So(agg.Sentinel(), ShouldBeLessThan, 0)
			})
		})

		Convey("When records fall outside the valid range", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 101, SheetID: "sheet-1", Seq: 0},
				{CandidateKey: "alice", Score: -3, SheetID: "sheet-2", Seq: 1},
				{CandidateKey: "alice", Score: 88, SheetID: "sheet-3", Seq: 2},
			})

			Convey("Then invalid records are excluded, valid ones survive", func() {
				So(err, ShouldBeNil)
				sc, _ := scoreFor(scores, "alice")
				So(sc.FinalScore, ShouldEqual, 88)
				So(collector.CountByKind()[diag.KindScoreRange], ShouldEqual, 2)
			})
		})

		Convey("When a record names a candidate no roster declared", func() {
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "ghost", Score: 90, SheetID: "sheet-1", Seq: 0},
			})

			Convey("Then the record is dropped and recorded", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldHaveLength, 1)
				So(collector.CountByKind()[diag.KindUnknownCandidate], ShouldEqual, 1)
			})
		})

		Convey("Then exactly one score comes back per candidate, sorted by key", func() {
			scores, err := agg.Aggregate(ctx, candidates("charlie", "alice", "bob"), nil)
			So(err, ShouldBeNil)
			So(scores, ShouldHaveLength, 3)
			So(scores[0].CandidateKey, ShouldEqual, "alice")
			So(scores[1].CandidateKey, ShouldEqual, "bob")
			So(scores[2].CandidateKey, ShouldEqual, "charlie")
		})
	})

	Convey("Given an aggregator with custom options", t, func() {
		collector := diag.NewCollector()

		Convey("When tolerance is widened", func() {
			agg := interview.New(collector, interview.WithTolerance(40))
			scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
				{CandidateKey: "alice", Score: 60, SheetID: "sheet-1", Seq: 0},
				{CandidateKey: "alice", Score: 95, SheetID: "sheet-2", Seq: 1},
			})

			Convey("Then the same spread now averages", func() {
				So(err, ShouldBeNil)
				sc, _ := scoreFor(scores, "alice")
				So(sc.FinalScore, ShouldEqual, 77.5)
				So(sc.Conflict, ShouldBeFalse)
			})
		})

		Convey("When the score range is customized", func() {
			agg := interview.New(collector, interview.WithScoreRange(1, 5))

			Convey("Then the sentinel tracks the floor", func() {
				So(agg.Sentinel(), ShouldEqual, 0)
			})

			Convey("Then records outside the new range are excluded", func() {
				scores, err := agg.Aggregate(ctx, candidates("alice"), []model.InterviewRecord{
					{CandidateKey: "alice", Score: 7, SheetID: "sheet-1", Seq: 0},
				})
				So(err, ShouldBeNil)
				sc, _ := scoreFor(scores, "alice")
				So(sc.Scored, ShouldBeFalse)
			})
		})

		Convey("When resolution fans out across workers", func() {
			agg := interview.New(collector, interview.WithWorkers(8))
			cands := candidates("a", "b", "c", "d", "e", "f", "g", "h")
			recs := make([]model.InterviewRecord, 0, len(cands))
			for i, c := range cands {
				recs = append(recs, model.InterviewRecord{
					CandidateKey: c.Key, Score: float64(50 + i), SheetID: "sheet-1", Seq: i,
				})
			}
			scores, err := agg.Aggregate(ctx, cands, recs)

			Convey("Then output matches the sequential result", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldHaveLength, len(cands))
				for i, sc := range scores {
					So(sc.CandidateKey, ShouldEqual, cands[i].Key)
					So(sc.FinalScore, ShouldEqual, float64(50+i))
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			agg := interview.New(collector, interview.WithWorkers(2))
			_, err := agg.Aggregate(cancelled, candidates("alice"), nil)

			Convey("Then aggregation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
