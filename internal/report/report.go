// Package report renders the engine's result and the run's diagnostics
// into the human-facing summaries operators diff between runs. Output is
// strictly deterministic: identical inputs produce identical bytes.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/grouping"
	"github.com/okian/muster/internal/domain/model"
)

const divider = "=================================================="

// Input carries everything the report consumes. All fields are the
// immutable artifacts of earlier stages.
type Input struct {
	Result     *model.AssignmentResult
	Scores     []model.AggregatedScore
	Candidates []model.Candidate
	Units      []model.Unit
	Stats      grouping.Stats
	Issues     []diag.Issue
	// CrossTable lists candidates that appeared in more than one source
	// table, for the duplicate audit section.
	CrossTable []model.Candidate
}

// Builder renders run reports.
type Builder struct{}

// NewBuilder returns a report builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WriteSummary writes the consolidated run report.
func (b *Builder) WriteSummary(w io.Writer, in Input) error {
	var sb strings.Builder

	sb.WriteString("assignment run report\n")
	sb.WriteString(divider + "\n\n")

	b.writeCounts(&sb, in)
	b.writeAssignments(&sb, in)
	b.writeUnassigned(&sb, in)
	b.writeOverflow(&sb, in)
	b.writeConflicts(&sb, in)
	b.writeCrossTable(&sb, in)
	b.writeDiagnostics(&sb, in)

	_, err := io.WriteString(w, sb.String())
	return err
}

func (b *Builder) writeCounts(sb *strings.Builder, in Input) {
	placedUnits := len(in.Result.Assigned)
	placedPeople := 0
	designated := 0
	for _, p := range in.Result.Assigned {
		placedPeople += p.Unit.Size
		if p.Designated {
			designated++
		}
	}

	sb.WriteString("summary:\n")
	fmt.Fprintf(sb, "  candidates: %d\n", len(in.Candidates))
	fmt.Fprintf(sb, "  units: %d (singletons %d, multi-member %d)\n",
		len(in.Units), in.Stats.Singletons, in.Stats.MultiMember)
	fmt.Fprintf(sb, "  claims applied: couples %d, family %d, groups %d (ignored %d)\n",
		in.Stats.CoupleClaims, in.Stats.FamilyClaims, in.Stats.GroupClaims, in.Stats.IgnoredClaims)
	fmt.Fprintf(sb, "  placed: %d units / %d people (%d designated)\n", placedUnits, placedPeople, designated)
	fmt.Fprintf(sb, "  unassigned: %d units\n", len(in.Result.Unassigned))
	sb.WriteString("\n")
}

func (b *Builder) writeAssignments(sb *strings.Builder, in Input) {
	names := candidateNames(in.Candidates)

	byPosition := make(map[string][]model.Placement)
	for _, p := range in.Result.Assigned {
		byPosition[p.PositionID] = append(byPosition[p.PositionID], p)
	}
	ids := make([]string, 0, len(byPosition))
	for id := range byPosition {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sb.WriteString("assignments:\n")
	if len(ids) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for _, id := range ids {
		placements := byPosition[id]
		// designated first, then ranked order; placement order already is
		// designation order then rank order, so a stable pass suffices
		sort.SliceStable(placements, func(i, j int) bool {
			if placements[i].Designated != placements[j].Designated {
				return placements[i].Designated
			}
			return placements[i].Rank < placements[j].Rank
		})
		remaining := in.Result.Remaining[id]
		fmt.Fprintf(sb, "  %s (remaining capacity %d):\n", id, remaining)
		for _, p := range placements {
			tag := fmt.Sprintf("rank %d", p.Rank)
			if p.Designated {
				tag = "designated"
			}
			fmt.Fprintf(sb, "    %s score %g [%s]: %s\n", p.Unit.ID, p.Unit.Score, tag, memberList(p.Unit, names))
		}
	}
	sb.WriteString("\n")
}

func (b *Builder) writeUnassigned(sb *strings.Builder, in Input) {
	sb.WriteString("unassigned:\n")
	if len(in.Result.Unassigned) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	names := candidateNames(in.Candidates)
	for _, rej := range in.Result.Unassigned {
		fmt.Fprintf(sb, "  %s score %g rank %d [%s]: %s\n",
			rej.Unit.ID, rej.Unit.Score, rej.Rank, rej.Reason, memberList(rej.Unit, names))
	}
	sb.WriteString("\n")
}

func (b *Builder) writeOverflow(sb *strings.Builder, in Input) {
	sb.WriteString("overflow:\n")
	if len(in.Result.Overflow) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for _, entry := range in.Result.Overflow {
		fmt.Fprintf(sb, "  %s oversubscribed; near-miss units:\n", entry.PositionID)
		for _, rej := range entry.Rejected {
			fmt.Fprintf(sb, "    %s score %g rank %d size %d\n",
				rej.Unit.ID, rej.Unit.Score, rej.Rank, rej.Unit.Size)
		}
	}
	sb.WriteString("\n")
}

func (b *Builder) writeConflicts(sb *strings.Builder, in Input) {
	names := candidateNames(in.Candidates)

	var conflicted []model.AggregatedScore
	for _, sc := range in.Scores {
		if sc.Conflict {
			conflicted = append(conflicted, sc)
		}
	}
	sort.Slice(conflicted, func(i, j int) bool { return conflicted[i].CandidateKey < conflicted[j].CandidateKey })

	sb.WriteString("score conflicts:\n")
	if len(conflicted) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for _, sc := range conflicted {
		fmt.Fprintf(sb, "  %s (%s): final %g, basis %s\n",
			sc.CandidateKey, names[sc.CandidateKey], sc.FinalScore, sc.Basis)
	}
	sb.WriteString("\n")
}

func (b *Builder) writeCrossTable(sb *strings.Builder, in Input) {
	sb.WriteString("cross-table duplicates:\n")
	if len(in.CrossTable) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for _, cand := range in.CrossTable {
		tables := make(map[string]struct{})
		for _, ref := range cand.SourceRefs {
			tables[ref.Table] = struct{}{}
		}
		names := make([]string, 0, len(tables))
		for t := range tables {
			names = append(names, t)
		}
		sort.Strings(names)
		fmt.Fprintf(sb, "  %s (%s): %s, resolved category %s\n",
			cand.Name, cand.Key, strings.Join(names, ", "), cand.Category)
	}
	sb.WriteString("\n")
}

func (b *Builder) writeDiagnostics(sb *strings.Builder, in Input) {
	sb.WriteString("diagnostics:\n")
	if len(in.Issues) == 0 {
		sb.WriteString("  (none)\n")
		return
	}
	for _, issue := range in.Issues {
		fmt.Fprintf(sb, "  %s\n", issue.String())
	}
}

func candidateNames(candidates []model.Candidate) map[string]string {
	names := make(map[string]string, len(candidates))
	for _, cand := range candidates {
		names[cand.Key] = cand.Name
	}
	return names
}

func memberList(unit model.Unit, names map[string]string) string {
	parts := make([]string, 0, len(unit.Members))
	for _, m := range unit.Members {
		if name, ok := names[m]; ok {
			parts = append(parts, fmt.Sprintf("%s (%s)", name, m))
		} else {
			parts = append(parts, m)
		}
	}
	return strings.Join(parts, ", ")
}
