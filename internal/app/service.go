// Package service orchestrates the assignment pipeline: normalize rosters,
// aggregate interview scores, derive units, run the engine, and hand the
// immutable outcome to reporting. Each stage consumes the previous stage's
// artifact; nothing is mutated after a stage completes.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/muster/internal/adapters/tabular"
	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/engine"
	"github.com/okian/muster/internal/domain/grouping"
	"github.com/okian/muster/internal/domain/identity"
	"github.com/okian/muster/internal/domain/interview"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/pkg/logger"
	"github.com/okian/muster/pkg/metrics"
)

// Table names used in provenance and diagnostics.
const (
	TableOrdinary     = "ordinary"
	TableInternal     = "internal"
	TableFamily       = "family"
	TableCouples      = "couples"
	TableGroups       = "groups"
	TableDesignations = "designations"
)

// Sheet is one interview score sheet with its stable identifier.
type Sheet struct {
	ID   string
	Rows []tabular.InterviewRow
}

// Inputs carries every table one run consumes, already parsed at the CSV
// boundary.
type Inputs struct {
	Ordinary     []tabular.CandidateRow
	Internal     []tabular.CandidateRow
	Family       []tabular.FamilyRow
	Couples      []tabular.CoupleRow
	Groups       []tabular.GroupMemberRow
	Sheets       []Sheet
	Positions    []model.Position
	Designations []tabular.DesignationRow
}

// Outcome is the terminal artifact of one run, consumed by reporting.
type Outcome struct {
	Result     *model.AssignmentResult
	Scores     []model.AggregatedScore
	Candidates []model.Candidate
	Units      []model.Unit
	Stats      grouping.Stats
	Issues     []diag.Issue
	// CrossTable lists candidates that appeared in more than one roster
	// table, for the duplicate-audit section of the report.
	CrossTable []model.Candidate
}

// Service runs the pipeline.
type Service struct {
	tolerance float64
	minScore  float64
	maxScore  float64
	workers   int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTolerance sets the score-conflict tolerance.
func WithTolerance(tolerance float64) Option {
	return func(s *Service) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// WithScoreRange sets the valid interview score range.
func WithScoreRange(minScore, maxScore float64) Option {
	return func(s *Service) {
		if maxScore > minScore {
			s.minScore = minScore
			s.maxScore = maxScore
		}
	}
}

// WithWorkers bounds concurrent score resolution.
func WithWorkers(workers int) Option {
	return func(s *Service) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tolerance: 10.0,
		minScore:  0,
		maxScore:  100,
		workers:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the full pipeline over the given inputs.
func (s *Service) Run(ctx context.Context, in Inputs) (*Outcome, error) {
	if s.logger == nil {
		s.logger = logger.Get()
	}
	log := s.logger.Named("pipeline")

	collector := diag.NewCollector()

	started := time.Now()
	registry, claims := s.normalize(ctx, log, collector, in)
	candidates := registry.Candidates()
	metrics.UpdateCandidateCount(len(candidates))
	metrics.RecordStageDuration("normalize", float64(time.Since(started).Milliseconds()))
	log.Info(ctx, "rosters normalized",
		logger.Int("candidates", len(candidates)),
		logger.Int("claims", len(claims)))

	for _, issue := range diag.NearDuplicates(candidates, identity.Normalize) {
		collector.Record(issue)
	}

	started = time.Now()
	records := s.interviewRecords(registry, in.Sheets)
	aggregator := interview.New(collector,
		interview.WithTolerance(s.tolerance),
		interview.WithScoreRange(s.minScore, s.maxScore),
		interview.WithWorkers(s.workers),
	)
	scores, err := aggregator.Aggregate(ctx, candidates, records)
	if err != nil {
		return nil, fmt.Errorf("aggregate scores: %w", err)
	}
	conflicts := 0
	for _, sc := range scores {
		if sc.Conflict {
			conflicts++
			metrics.RecordScoreConflict()
		}
	}
	metrics.RecordStageDuration("aggregate", float64(time.Since(started).Milliseconds()))
	log.Info(ctx, "interview scores aggregated",
		logger.Int("records", len(records)),
		logger.Int("conflicts", conflicts))

	started = time.Now()
	grouper := grouping.New(collector)
	units, stats, err := grouper.Units(candidates, scores, claims)
	if err != nil {
		return nil, fmt.Errorf("derive units: %w", err)
	}
	metrics.UpdateUnitCounts(len(units), stats.MultiMember)
	metrics.RecordStageDuration("group", float64(time.Since(started).Milliseconds()))
	log.Info(ctx, "units derived",
		logger.Int("units", len(units)),
		logger.Int("multiMember", stats.MultiMember))

	started = time.Now()
	designations := s.designations(in.Designations)
	eng := engine.New(collector)
	result, err := eng.Assign(ctx, units, in.Positions, designations)
	if err != nil {
		return nil, fmt.Errorf("assign units: %w", err)
	}
	for _, p := range result.Assigned {
		if p.Designated {
			metrics.RecordPlacement("designated")
		} else {
			metrics.RecordPlacement("ranked")
		}
	}
	for _, rej := range result.Unassigned {
		metrics.RecordRejection(string(rej.Reason))
	}
	metrics.RecordStageDuration("assign", float64(time.Since(started).Milliseconds()))
	log.Info(ctx, "assignment complete",
		logger.Int("placed", len(result.Assigned)),
		logger.Int("unassigned", len(result.Unassigned)),
		logger.Int("overflowPositions", len(result.Overflow)))

	issues := collector.Issues()
	for _, issue := range issues {
		metrics.RecordDiagnostic(string(issue.Kind))
		switch issue.Kind {
		case diag.KindDuplicateEntry:
			metrics.RecordDuplicateEntry()
		case diag.KindScoreRange:
			metrics.RecordScoreRangeError()
		}
	}

	return &Outcome{
		Result:     result,
		Scores:     scores,
		Candidates: candidates,
		Units:      units,
		Stats:      stats,
		Issues:     issues,
		CrossTable: registry.MultiTableCandidates(),
	}, nil
}

// normalize folds every roster table into the registry and derives the
// relationship claims, in the fixed table order couples -> family -> groups
// so claim declaration order is reproducible.
func (s *Service) normalize(ctx context.Context, log logger.Logger, collector *diag.Collector, in Inputs) (*identity.Registry, []grouping.Claim) {
	registry := identity.NewRegistry(collector)

	add := func(row identity.Row) (string, bool) {
		key, err := registry.Add(row)
		if err != nil {
			metrics.RecordMalformedRow()
			collector.Record(diag.Issue{
				Kind:   diag.KindMalformedRow,
				Table:  row.Table,
				Row:    row.Row,
				Detail: err.Error(),
			})
			log.Debug(ctx, "roster row skipped",
				logger.String("table", row.Table),
				logger.Int("row", row.Row),
				logger.Error(err))
			return "", false
		}
		return key, true
	}

	for _, row := range in.Ordinary {
		add(identity.Row{Name: row.Name, Contact: row.Contact, Category: model.CategoryOrdinary, Table: TableOrdinary, Row: row.Row})
	}
	for _, row := range in.Internal {
		add(identity.Row{Name: row.Name, Contact: row.Contact, Category: model.CategoryInternal, Table: TableInternal, Row: row.Row})
	}

	var claims []grouping.Claim
	seq := 0

	for _, row := range in.Couples {
		keyA, okA := add(identity.Row{Name: row.NameA, Contact: row.ContactA, Category: model.CategoryCoupleMember, Table: TableCouples, Row: row.Row})
		keyB, okB := add(identity.Row{Name: row.NameB, Contact: row.ContactB, Category: model.CategoryCoupleMember, Table: TableCouples, Row: row.Row})
		if okA && okB {
			claims = append(claims, grouping.Claim{Kind: grouping.KindCouple, Members: []string{keyA, keyB}, Seq: seq})
			seq++
		}
	}

	for _, row := range in.Family {
		keyFam, okFam := add(identity.Row{Name: row.Name, Contact: row.Contact, Category: model.CategoryFamilyOfInternal, Table: TableFamily, Row: row.Row})
		keyInt, okInt := add(identity.Row{Name: row.InternalName, Contact: row.InternalContact, Category: model.CategoryInternal, Table: TableFamily, Row: row.Row})
		if okFam && okInt {
			claims = append(claims, grouping.Claim{Kind: grouping.KindFamily, Members: []string{keyFam, keyInt}, Seq: seq})
			seq++
		}
	}

	// group rosters: one claim per group label, members in row order
	groupMembers := make(map[string][]string)
	var groupOrder []string
	for _, row := range in.Groups {
		key, ok := add(identity.Row{Name: row.Name, Contact: row.Contact, Category: model.CategoryGroupMember, Table: TableGroups, Row: row.Row})
		if !ok {
			continue
		}
		if _, seen := groupMembers[row.Group]; !seen {
			groupOrder = append(groupOrder, row.Group)
		}
		groupMembers[row.Group] = append(groupMembers[row.Group], key)
	}
	for _, label := range groupOrder {
		members := groupMembers[label]
		if len(members) < 2 {
			continue // a one-person group binds nothing
		}
		claims = append(claims, grouping.Claim{Kind: grouping.KindGroup, Members: members, Label: label, Seq: seq})
		seq++
	}

	return registry, claims
}

// interviewRecords resolves sheet rows to identity keys. Unknown keys flow
// through; the aggregator reports them against the roster tables.
func (s *Service) interviewRecords(registry *identity.Registry, sheets []Sheet) []model.InterviewRecord {
	var records []model.InterviewRecord
	seq := 0
	for _, sheet := range sheets {
		for _, row := range sheet.Rows {
			key, _ := registry.Resolve(row.Name, row.Contact)
			records = append(records, model.InterviewRecord{
				CandidateKey: key,
				Score:        row.Score,
				SheetID:      sheet.ID,
				Notes:        row.Notes,
				Seq:          seq,
			})
			seq++
		}
	}
	return records
}

// designations resolves the override list to identity keys in input order.
func (s *Service) designations(rows []tabular.DesignationRow) []model.Designation {
	out := make([]model.Designation, 0, len(rows))
	for i, row := range rows {
		out = append(out, model.Designation{
			CandidateKey: identity.Key(row.Name, row.Contact),
			PositionID:   row.PositionID,
			Seq:          i,
		})
	}
	return out
}
