// Package interview resolves heterogeneous, possibly duplicated interview
// records into one canonical score per candidate.
package interview

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/model"
)

// Default aggregation configuration.
const (
	defaultTolerance = 10.0
	defaultMinScore  = 0.0
	defaultMaxScore  = 100.0
	defaultWorkers   = 1
)

// Aggregator turns all interview records for each candidate into a single
// AggregatedScore. Duplicate same-sheet entries keep the latest submission;
// cross-sheet disagreement beyond tolerance takes the maximum score with a
// conflict flag (benefit of the doubt) instead of the mean.
type Aggregator struct {
	tolerance  float64
	minScore   float64
	maxScore   float64
	workers    int
	diagnostic *diag.Collector
}

// New creates an Aggregator recording recovered record errors into the
// given collector.
func New(collector *diag.Collector, opts ...Option) *Aggregator {
	a := &Aggregator{
		tolerance:  defaultTolerance,
		minScore:   defaultMinScore,
		maxScore:   defaultMaxScore,
		workers:    defaultWorkers,
		diagnostic: collector,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sentinel returns the score assigned to candidates with no usable
// interview record: one below the valid floor, so they rank last but still
// flow through to unassigned reporting instead of being dropped.
func (a *Aggregator) Sentinel() float64 { return a.minScore - 1 }

// Aggregate produces exactly one AggregatedScore per candidate, sorted by
// candidate key. Resolution may fan out across workers; validation,
// deduplication and the final sort stay sequential so diagnostics and
// output bytes are identical run to run regardless of worker count.
func (a *Aggregator) Aggregate(ctx context.Context, candidates []model.Candidate, records []model.InterviewRecord) ([]model.AggregatedScore, error) {
	known := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		known[cand.Key] = struct{}{}
	}

	grouped := a.validateAndGroup(known, records)

	keys := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		keys = append(keys, cand.Key)
	}
	sort.Strings(keys)

	results := make([]model.AggregatedScore, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.resolve(key, grouped[key])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate interview scores: %w", err)
	}
	return results, nil
}

// validateAndGroup drops out-of-range records and same-sheet duplicates,
// returning the surviving records grouped per candidate in input order.
func (a *Aggregator) validateAndGroup(known map[string]struct{}, records []model.InterviewRecord) map[string][]model.InterviewRecord {
	ordered := make([]model.InterviewRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	// latest record per (candidate, sheet); later input wins the dedup
	latest := make(map[string]map[string]model.InterviewRecord)
	var candidateOrder []string
	for _, rec := range ordered {
		if _, ok := known[rec.CandidateKey]; !ok {
			a.diagnostic.Record(diag.Issue{
				Kind:         diag.KindUnknownCandidate,
				CandidateKey: rec.CandidateKey,
				Detail:       fmt.Sprintf("interview record on sheet %s references a candidate not in any roster table", rec.SheetID),
			})
			continue
		}
		if rec.Score < a.minScore || rec.Score > a.maxScore {
			rangeErr := &ScoreRangeError{
				CandidateKey: rec.CandidateKey,
				SheetID:      rec.SheetID,
				Score:        rec.Score,
				Min:          a.minScore,
				Max:          a.maxScore,
			}
			a.diagnostic.Record(diag.Issue{
				Kind:         diag.KindScoreRange,
				CandidateKey: rec.CandidateKey,
				Detail:       rangeErr.Error(),
			})
			continue
		}
		sheets, ok := latest[rec.CandidateKey]
		if !ok {
			sheets = make(map[string]model.InterviewRecord)
			latest[rec.CandidateKey] = sheets
			candidateOrder = append(candidateOrder, rec.CandidateKey)
		}
		if prev, dup := sheets[rec.SheetID]; dup {
			a.diagnostic.Record(diag.Issue{
				Kind:         diag.KindDuplicateEntry,
				CandidateKey: rec.CandidateKey,
				Detail: fmt.Sprintf("sheet %s scored candidate twice (%g then %g); keeping the later entry",
					rec.SheetID, prev.Score, rec.Score),
			})
		}
		sheets[rec.SheetID] = rec
	}

	grouped := make(map[string][]model.InterviewRecord, len(latest))
	for _, key := range candidateOrder {
		sheets := latest[key]
		recs := make([]model.InterviewRecord, 0, len(sheets))
		for _, rec := range sheets {
			recs = append(recs, rec)
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
		grouped[key] = recs
	}
	return grouped
}

// resolve applies the aggregation policy to one candidate's surviving
// records.
func (a *Aggregator) resolve(key string, recs []model.InterviewRecord) model.AggregatedScore {
	switch len(recs) {
	case 0:
		return model.AggregatedScore{
			CandidateKey: key,
			FinalScore:   a.Sentinel(),
			Basis:        "unscored",
		}
	case 1:
		return model.AggregatedScore{
			CandidateKey: key,
			FinalScore:   recs[0].Score,
			Basis:        fmt.Sprintf("single(%g)", recs[0].Score),
			Scored:       true,
		}
	}

	minScore, maxScore, sum := recs[0].Score, recs[0].Score, 0.0
	parts := make([]string, 0, len(recs))
	for _, rec := range recs {
		sum += rec.Score
		if rec.Score < minScore {
			minScore = rec.Score
		}
		if rec.Score > maxScore {
			maxScore = rec.Score
		}
		parts = append(parts, fmt.Sprintf("%g", rec.Score))
	}

	if maxScore-minScore > a.tolerance {
		// Disagreement beyond tolerance: take the maximum rather than
		// punish the candidate for a split panel, and flag for audit.
		return model.AggregatedScore{
			CandidateKey: key,
			FinalScore:   maxScore,
			Basis:        fmt.Sprintf("max(%s) spread>%g", strings.Join(parts, ","), a.tolerance),
			Conflict:     true,
			Scored:       true,
		}
	}
	return model.AggregatedScore{
		CandidateKey: key,
		FinalScore:   sum / float64(len(recs)),
		Basis:        fmt.Sprintf("mean(%s)", strings.Join(parts, ",")),
		Scored:       true,
	}
}
