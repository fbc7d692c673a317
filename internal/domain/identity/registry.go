package identity

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/model"
)

// Row is one candidate-shaped record from a recognized input table.
type Row struct {
	Name     string
	Contact  string
	Category model.Category
	Table    string
	Row      int
}

// Registry merges rows from every roster table into canonical Candidates:
// exactly one Candidate per real person, category resolved to the most
// privileged one observed. Merges and promotions are recorded in the
// diagnostics collector, never silently dropped.
type Registry struct {
	mu         sync.Mutex
	byKey      map[string]*model.Candidate
	order      []string // keys in first-seen order
	nextSeq    int
	diagnostic *diag.Collector
}

// NewRegistry returns an empty registry recording into the given collector.
func NewRegistry(collector *diag.Collector) *Registry {
	return &Registry{
		byKey:      make(map[string]*model.Candidate),
		diagnostic: collector,
	}
}

// Add normalizes one row into the registry. It returns the identity key the
// row resolved to, or a MalformedRowError when mandatory identity fields
// are missing. Re-adding the same logical person merges provenance instead
// of creating a duplicate.
func (r *Registry) Add(row Row) (string, error) {
	if strings.TrimSpace(row.Name) == "" {
		return "", &MalformedRowError{Table: row.Table, Row: row.Row, Reason: "empty name"}
	}
	if strings.TrimSpace(row.Contact) == "" {
		return "", &MalformedRowError{Table: row.Table, Row: row.Row, Reason: "empty contact discriminator"}
	}

	key := Key(row.Name, row.Contact)
	ref := model.SourceRef{Table: row.Table, Row: row.Row}

	r.mu.Lock()
	defer r.mu.Unlock()

	cand, seen := r.byKey[key]
	if !seen {
		r.byKey[key] = &model.Candidate{
			Key:        key,
			Name:       strings.TrimSpace(row.Name),
			Contact:    row.Contact,
			Category:   row.Category,
			SourceRefs: []model.SourceRef{ref},
			Seq:        r.nextSeq,
		}
		r.order = append(r.order, key)
		r.nextSeq++
		return key, nil
	}

	cand.SourceRefs = append(cand.SourceRefs, ref)
	if row.Category != cand.Category {
		winner := cand.Category
		if row.Category > winner {
			winner = row.Category
		}
		r.diagnostic.Record(diag.Issue{
			Kind:         diag.KindCategoryPromotion,
			CandidateKey: key,
			Table:        row.Table,
			Row:          row.Row,
			Detail: fmt.Sprintf("candidate %q seen as %s and %s; resolved to %s",
				cand.Name, cand.Category, row.Category, winner),
		})
		cand.Category = winner
	}
	return key, nil
}

// Candidates returns the canonical candidates in first-seen order.
func (r *Registry) Candidates() []model.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Candidate, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.byKey[key])
	}
	return out
}

// Lookup returns the candidate for a key, if registered.
func (r *Registry) Lookup(key string) (model.Candidate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cand, ok := r.byKey[key]
	if !ok {
		return model.Candidate{}, false
	}
	return *cand, true
}

// Resolve finds the key for a name+contact pair without registering it.
// Used by tables (interview sheets, designations) that reference people
// declared elsewhere.
func (r *Registry) Resolve(name, contact string) (string, bool) {
	key := Key(name, contact)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byKey[key]
	return key, ok
}

// Len returns the number of distinct candidates.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

// MultiTableCandidates lists candidates that appeared in more than one
// source table, sorted by key. Feeds the cross-table duplicate report.
func (r *Registry) MultiTableCandidates() []model.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Candidate
	for _, cand := range r.byKey {
		tables := make(map[string]struct{})
		for _, ref := range cand.SourceRefs {
			tables[ref.Table] = struct{}{}
		}
		if len(tables) > 1 {
			out = append(out, *cand)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
