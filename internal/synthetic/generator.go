// Package synthetic produces self-consistent CSV input sets for smoke
// runs: rosters, overlapping interview sheets with seeded duplicates and
// disagreements, a position table, and a short designation list.
package synthetic

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// Default generation parameters.
const (
	defaultSeed       = 42
	defaultCandidates = 200
	defaultSheets     = 3
	defaultPositions  = 8
	// duplicateRate is the fraction of candidates double-entered on one
	// sheet, conflictRate the fraction scored far apart across sheets.
	duplicateRate = 0.03
	conflictRate  = 0.05
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed fixes the random source so runs are reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.seed = seed }
}

// WithCandidates sets how many ordinary volunteers to generate.
func WithCandidates(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.candidates = n
		}
	}
}

// WithSheets sets how many interview sheets to generate.
func WithSheets(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.sheets = n
		}
	}
}

// WithPositions sets how many positions to generate.
func WithPositions(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.positions = n
		}
	}
}

// Generator emits one synthetic input set.
type Generator struct {
	seed       int64
	candidates int
	sheets     int
	positions  int

	rng *rand.Rand
}

// New creates a Generator with default parameters.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:       defaultSeed,
		candidates: defaultCandidates,
		sheets:     defaultSheets,
		positions:  defaultPositions,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rng = rand.New(rand.NewSource(g.seed)) //nolint:gosec // deterministic seed for reproducible fixtures
	return g
}

type person struct {
	name    string
	contact string
}

// WriteTo writes the full input set under dir and returns the file paths
// keyed by table name ("ordinary", "internal", ..., "sheet_1", ...).
func (g *Generator) WriteTo(dir string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	people := make([]person, g.candidates)
	for i := range people {
		people[i] = person{
			name:    fmt.Sprintf("Volunteer %04d", i),
			contact: fmt.Sprintf("1%09d", g.rng.Intn(1_000_000_000)),
		}
	}
	internals := make([]person, g.candidates/10+1)
	for i := range internals {
		internals[i] = person{
			name:    fmt.Sprintf("Internal %03d", i),
			contact: fmt.Sprintf("2%09d", g.rng.Intn(1_000_000_000)),
		}
	}

	paths := make(map[string]string)
	write := func(table string, header []string, rows [][]string) error {
		path := filepath.Join(dir, table+".csv")
		if err := writeCSV(path, header, rows); err != nil {
			return err
		}
		paths[table] = path
		return nil
	}

	ordinaryRows := make([][]string, 0, len(people))
	for _, p := range people {
		ordinaryRows = append(ordinaryRows, []string{p.name, p.contact})
	}
	if err := write("ordinary", []string{"name", "contact"}, ordinaryRows); err != nil {
		return nil, err
	}

	internalRows := make([][]string, 0, len(internals))
	for _, p := range internals {
		internalRows = append(internalRows, []string{p.name, p.contact})
	}
	if err := write("internal", []string{"name", "contact"}, internalRows); err != nil {
		return nil, err
	}

	// couples and families bind pairs from the front of the roster
	var coupleRows [][]string
	for i := 0; i+1 < len(people)/20*2; i += 2 {
		coupleRows = append(coupleRows, []string{
			people[i].name, people[i].contact,
			people[i+1].name, people[i+1].contact,
		})
	}
	if err := write("couples", []string{"name_a", "contact_a", "name_b", "contact_b"}, coupleRows); err != nil {
		return nil, err
	}

	var familyRows [][]string
	for i := 0; i < len(internals)/2; i++ {
		familyRows = append(familyRows, []string{
			fmt.Sprintf("Relative %03d", i), fmt.Sprintf("3%09d", g.rng.Intn(1_000_000_000)),
			internals[i].name, internals[i].contact,
		})
	}
	if err := write("family", []string{"name", "contact", "internal_name", "internal_contact"}, familyRows); err != nil {
		return nil, err
	}

	var groupRows [][]string
	groupSize := 4
	for gi := 0; gi < 2; gi++ {
		label := fmt.Sprintf("team-%d", gi)
		for m := 0; m < groupSize; m++ {
			groupRows = append(groupRows, []string{
				label,
				fmt.Sprintf("Member %d-%d", gi, m),
				fmt.Sprintf("4%09d", g.rng.Intn(1_000_000_000)),
			})
		}
	}
	if err := write("groups", []string{"group", "name", "contact"}, groupRows); err != nil {
		return nil, err
	}

	for s := 0; s < g.sheets; s++ {
		table := fmt.Sprintf("sheet_%d", s+1)
		var rows [][]string
		for _, p := range people {
			base := 40 + g.rng.Float64()*55
			if g.rng.Float64() < conflictRate {
				base += 20 // push one sheet's view past tolerance
				if base > 100 {
					base = 100
				}
			}
			rows = append(rows, []string{p.name, p.contact, formatScore(base), ""})
			if g.rng.Float64() < duplicateRate {
				rows = append(rows, []string{p.name, p.contact, formatScore(base - 5), "resubmitted"})
			}
		}
		if err := write(table, []string{"name", "contact", "score", "notes"}, rows); err != nil {
			return nil, err
		}
	}

	seats := g.candidates + len(internals)
	var positionRows [][]string
	for i := 0; i < g.positions; i++ {
		capacity := seats / g.positions
		if i == 0 {
			capacity += seats % g.positions
		}
		positionRows = append(positionRows, []string{
			fmt.Sprintf("pos-%02d", i),
			strconv.Itoa(capacity),
			strconv.Itoa(i),
			"",
		})
	}
	if err := write("positions", []string{"position_id", "capacity", "priority", "eligible"}, positionRows); err != nil {
		return nil, err
	}

	designationRows := [][]string{
		{internals[0].name, internals[0].contact, "pos-00"},
	}
	if err := write("designations", []string{"name", "contact", "position_id"}, designationRows); err != nil {
		return nil, err
	}

	return paths, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
