// Package grouping derives indivisible allocation units from declared
// relationships: couples, family-of-internal ties and submitted group
// rosters become connected components that must be placed together.
package grouping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/model"
)

// ClaimKind names the table a relationship declaration came from.
type ClaimKind string

const (
	// KindCouple binds exactly two candidates; a candidate may appear in
	// at most one couple claim.
	KindCouple ClaimKind = "couple"
	// KindFamily binds a family volunteer to their internal relative.
	// Family ties merge freely with other claims.
	KindFamily ClaimKind = "family"
	// KindGroup binds a submitted roster; a candidate may belong to at
	// most one submitted group.
	KindGroup ClaimKind = "group"
)

// Claim is one declared must-stay-together relationship.
type Claim struct {
	Kind    ClaimKind
	Members []string // candidate keys; 2 for couple/family, 2+ for group
	Label   string   // group name for KindGroup, informational otherwise
	Seq     int      // declaration order; earliest wins a conflict
}

// unitNamespace seeds the deterministic v5 unit ids so identical inputs
// produce identical unit ids across runs.
var unitNamespace = uuid.MustParse("8f3a1d52-7c4e-4b9a-9d2e-5a6f0c1b3e47")

// Stats summarizes what grouping did, for the run report.
type Stats struct {
	CoupleClaims  int
	FamilyClaims  int
	GroupClaims   int
	IgnoredClaims int
	Singletons    int
	MultiMember   int
}

// Grouper builds disjoint Units covering every candidate exactly once.
type Grouper struct {
	diagnostic *diag.Collector
}

// New creates a Grouper recording ignored conflicting claims into the
// given collector.
func New(collector *diag.Collector) *Grouper {
	return &Grouper{diagnostic: collector}
}

// Units partitions the candidates into allocation units: connected
// components of the must-group graph, singletons included. Units come back
// sorted by their first-seen member sequence, and every candidate lands in
// exactly one unit.
func (g *Grouper) Units(candidates []model.Candidate, scores []model.AggregatedScore, claims []Claim) ([]model.Unit, Stats, error) {
	byKey := make(map[string]model.Candidate, len(candidates))
	uf := newUnionFind()
	for _, cand := range candidates {
		if _, dup := byKey[cand.Key]; dup {
			return nil, Stats{}, fmt.Errorf("duplicate candidate key %s: registry must de-duplicate before grouping", cand.Key)
		}
		byKey[cand.Key] = cand
		uf.add(cand.Key)
	}
	scoreByKey := make(map[string]model.AggregatedScore, len(scores))
	for _, sc := range scores {
		scoreByKey[sc.CandidateKey] = sc
	}

	stats := g.applyClaims(uf, byKey, claims)

	units := g.extract(uf, candidates, byKey, scoreByKey)
	for _, u := range units {
		if u.Size > 1 {
			stats.MultiMember++
		} else {
			stats.Singletons++
		}
	}
	return units, stats, nil
}

// applyClaims unions claim members, enforcing same-kind exclusivity for
// couple and group claims: the earliest declaration wins and later
// contradictions are ignored with a diagnostic.
func (g *Grouper) applyClaims(uf *unionFind, byKey map[string]model.Candidate, claims []Claim) Stats {
	ordered := make([]Claim, len(claims))
	copy(ordered, claims)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	var stats Stats
	couplePartner := make(map[string]string) // candidate -> partner from the kept couple claim
	groupOf := make(map[string]string)       // candidate -> label of the kept group claim

	for _, claim := range ordered {
		members := g.knownMembers(claim, byKey)
		if len(members) < 2 {
			continue // nothing to bind
		}

		switch claim.Kind {
		case KindCouple:
			a, b := members[0], members[1]
			if g.coupleConflict(couplePartner, a, b) || g.coupleConflict(couplePartner, b, a) {
				stats.IgnoredClaims++
				continue
			}
			couplePartner[a], couplePartner[b] = b, a
			uf.union(a, b)
			stats.CoupleClaims++

		case KindFamily:
			uf.union(members[0], members[1])
			stats.FamilyClaims++

		case KindGroup:
			bound := 0
			var anchor string
			for _, m := range members {
				if label, ok := groupOf[m]; ok && label != claim.Label {
					conflict := &RelationshipConflictError{
						CandidateKey: m,
						Kept:         fmt.Sprintf("group %q", label),
						Ignored:      fmt.Sprintf("group %q", claim.Label),
					}
					g.diagnostic.Record(diag.Issue{
						Kind:         diag.KindRelationshipConflict,
						CandidateKey: m,
						Detail:       conflict.Error(),
					})
					stats.IgnoredClaims++
					continue
				}
				groupOf[m] = claim.Label
				if anchor == "" {
					anchor = m
				} else {
					uf.union(anchor, m)
				}
				bound++
			}
			if bound > 1 {
				stats.GroupClaims++
			}
		}
	}
	return stats
}

// coupleConflict reports, and records, a couple claim for a candidate who
// already has a different partner.
func (g *Grouper) coupleConflict(partner map[string]string, a, b string) bool {
	prev, ok := partner[a]
	if !ok || prev == b {
		return false
	}
	conflict := &RelationshipConflictError{
		CandidateKey: a,
		Kept:         fmt.Sprintf("couple with %s", prev),
		Ignored:      fmt.Sprintf("couple with %s", b),
	}
	g.diagnostic.Record(diag.Issue{
		Kind:         diag.KindRelationshipConflict,
		CandidateKey: a,
		Detail:       conflict.Error(),
	})
	return true
}

// knownMembers filters a claim down to candidates the registry knows,
// recording the rest.
func (g *Grouper) knownMembers(claim Claim, byKey map[string]model.Candidate) []string {
	members := make([]string, 0, len(claim.Members))
	for _, m := range claim.Members {
		if _, ok := byKey[m]; !ok {
			g.diagnostic.Record(diag.Issue{
				Kind:         diag.KindUnknownCandidate,
				CandidateKey: m,
				Detail:       fmt.Sprintf("%s claim references a candidate not in any roster table", claim.Kind),
			})
			continue
		}
		members = append(members, m)
	}
	return members
}

// extract materializes one Unit per connected component. A unit scores as
// its weakest member: placing the unit commits capacity for every member,
// so the whole unit ranks at the level the last seat has to be justified at.
func (g *Grouper) extract(uf *unionFind, candidates []model.Candidate, byKey map[string]model.Candidate, scoreByKey map[string]model.AggregatedScore) []model.Unit {
	components := make(map[string][]string)
	for _, cand := range candidates {
		root := uf.find(cand.Key)
		components[root] = append(components[root], cand.Key)
	}

	units := make([]model.Unit, 0, len(components))
	for _, members := range components {
		sort.Strings(members)
		unit := model.Unit{
			ID:      uuid.NewSHA1(unitNamespace, []byte(strings.Join(members, "\x1f"))).String(),
			Members: members,
			Size:    len(members),
			Seq:     int(^uint(0) >> 1), // max int, lowered below
		}
		for i, m := range members {
			score := scoreByKey[m]
			if i == 0 || score.FinalScore < unit.Score {
				unit.Score = score.FinalScore
			}
			member := byKey[m]
			if member.Category > unit.Category {
				unit.Category = member.Category
			}
			if member.Seq < unit.Seq {
				unit.Seq = member.Seq
			}
		}
		units = append(units, unit)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Seq < units[j].Seq })
	return units
}
