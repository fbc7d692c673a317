// Package diag collects non-fatal pipeline issues into one consolidated
// list so the operator sees a single report after a run instead of
// scattered log lines.
package diag

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/okian/muster/internal/domain/model"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindMalformedRow         Kind = "malformed-row"
	KindScoreRange           Kind = "score-range"
	KindDuplicateEntry       Kind = "duplicate-entry"
	KindRelationshipConflict Kind = "relationship-conflict"
	KindCategoryPromotion    Kind = "category-promotion"
	KindNearDuplicateName    Kind = "near-duplicate-name"
	KindUnknownCandidate     Kind = "unknown-candidate"
	KindDesignationConflict  Kind = "designation-conflict"
)

// Issue is one recovered problem with enough context to find the source row.
type Issue struct {
	Kind         Kind
	CandidateKey string
	Table        string
	Row          int
	Detail       string
}

// String renders the issue for the diagnostics report.
func (i Issue) String() string {
	loc := ""
	if i.Table != "" {
		loc = fmt.Sprintf(" [%s:%d]", i.Table, i.Row)
	}
	return fmt.Sprintf("%s%s %s", i.Kind, loc, i.Detail)
}

// Collector accumulates issues in insertion order. Safe for concurrent use;
// score aggregation may record from multiple goroutines.
type Collector struct {
	mu     sync.Mutex
	issues []Issue
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends an issue.
func (c *Collector) Record(issue Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue)
}

// Issues returns the recorded issues in insertion order.
func (c *Collector) Issues() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

// CountByKind tallies issues per kind.
func (c *Collector) CountByKind() map[Kind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[Kind]int)
	for _, issue := range c.issues {
		counts[issue.Kind]++
	}
	return counts
}

// Len returns the number of recorded issues.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

// maxNearDuplicateDistance is the edit-distance ceiling for flagging two
// distinct candidates as probable duplicates.
const maxNearDuplicateDistance = 1

// NearDuplicates flags pairs of distinct candidates whose normalized names
// are within edit distance 1 of each other. These are usually the same
// person entered with a typo in one table, which the identity key cannot
// collapse on its own. The normalize func must match the one used for
// identity keying so the report agrees with the registry's view.
func NearDuplicates(candidates []model.Candidate, normalize func(string) string) []Issue {
	type entry struct {
		key  string
		name string
	}
	entries := make([]entry, 0, len(candidates))
	for _, cand := range candidates {
		entries = append(entries, entry{key: cand.Key, name: normalize(cand.Name)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	var issues []Issue
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if entries[i].name == entries[j].name {
				continue // identical normalized names with distinct keys differ by contact; not a typo
			}
			if levenshtein.ComputeDistance(entries[i].name, entries[j].name) <= maxNearDuplicateDistance {
				issues = append(issues, Issue{
					Kind:         KindNearDuplicateName,
					CandidateKey: entries[i].key,
					Detail: fmt.Sprintf("name %q is within edit distance %d of %q (candidate %s)",
						entries[i].name, maxNearDuplicateDistance, entries[j].name, entries[j].key),
				})
			}
		}
	}
	return issues
}
