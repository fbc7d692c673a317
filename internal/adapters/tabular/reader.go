// Package tabular is the CSV boundary of the pipeline: it turns input
// tables into row structs for the core and exports the finished roster.
// Header layouts are fixed per table kind; the generic column-mapping
// utilities of the wider tooling live outside this module.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/muster/internal/diag"
	"github.com/okian/muster/internal/domain/model"
	"github.com/okian/muster/pkg/metrics"
)

// CandidateRow is one person row from a roster table.
type CandidateRow struct {
	Name    string
	Contact string
	Row     int
}

// CoupleRow declares two candidates as a couple.
type CoupleRow struct {
	NameA, ContactA string
	NameB, ContactB string
	Row             int
}

// FamilyRow ties a family volunteer to their internal relative.
type FamilyRow struct {
	Name, Contact                 string
	InternalName, InternalContact string
	Row                           int
}

// GroupMemberRow is one member line of a submitted group roster.
type GroupMemberRow struct {
	Group   string
	Name    string
	Contact string
	Row     int
}

// InterviewRow is one scoring line from an interview sheet.
type InterviewRow struct {
	Name    string
	Contact string
	Score   float64
	Notes   string
	Row     int
}

// DesignationRow is one line of the direct-assignment list.
type DesignationRow struct {
	Name       string
	Contact    string
	PositionID string
	Row        int
}

// Reader parses the fixed-layout CSV tables, recording recoverable row
// problems instead of aborting.
type Reader struct {
	diagnostic *diag.Collector
}

// NewReader creates a Reader recording into the given collector.
func NewReader(collector *diag.Collector) *Reader {
	return &Reader{diagnostic: collector}
}

// readAll consumes a CSV stream, checks the header, and hands each data
// row to parse along with its 1-based row number.
func (r *Reader) readAll(src io.Reader, table string, want []string, parse func(rec []string, row int)) error {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1 // ragged rows are handled per line
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("table %s: %w", table, ErrMissingHeader)
	}
	if err != nil {
		return fmt.Errorf("read %s header: %w", table, err)
	}
	if !headerMatches(header, want) {
		return fmt.Errorf("table %s wants columns %v, got %v: %w", table, want, header, ErrWrongColumns)
	}

	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s row %d: %w", table, row+1, err)
		}
		row++
		metrics.RecordRowParsed(table)
		if len(rec) < len(want) {
			r.recordMalformed(table, row, fmt.Sprintf("want %d columns, got %d", len(want), len(rec)))
			continue
		}
		parse(rec, row)
	}
}

func headerMatches(got, want []string) bool {
	if len(got) < len(want) {
		return false
	}
	for i, col := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), col) {
			return false
		}
	}
	return true
}

func (r *Reader) recordMalformed(table string, row int, detail string) {
	metrics.RecordMalformedRow()
	r.diagnostic.Record(diag.Issue{
		Kind:   diag.KindMalformedRow,
		Table:  table,
		Row:    row,
		Detail: detail,
	})
}

// Candidates parses a roster table: name,contact.
func (r *Reader) Candidates(src io.Reader, table string) ([]CandidateRow, error) {
	var rows []CandidateRow
	err := r.readAll(src, table, []string{"name", "contact"}, func(rec []string, row int) {
		rows = append(rows, CandidateRow{Name: rec[0], Contact: rec[1], Row: row})
	})
	return rows, err
}

// Couples parses the couple table: name_a,contact_a,name_b,contact_b.
func (r *Reader) Couples(src io.Reader, table string) ([]CoupleRow, error) {
	var rows []CoupleRow
	err := r.readAll(src, table, []string{"name_a", "contact_a", "name_b", "contact_b"}, func(rec []string, row int) {
		rows = append(rows, CoupleRow{
			NameA: rec[0], ContactA: rec[1],
			NameB: rec[2], ContactB: rec[3],
			Row: row,
		})
	})
	return rows, err
}

// Family parses the family-of-internal table:
// name,contact,internal_name,internal_contact.
func (r *Reader) Family(src io.Reader, table string) ([]FamilyRow, error) {
	var rows []FamilyRow
	err := r.readAll(src, table, []string{"name", "contact", "internal_name", "internal_contact"}, func(rec []string, row int) {
		rows = append(rows, FamilyRow{
			Name: rec[0], Contact: rec[1],
			InternalName: rec[2], InternalContact: rec[3],
			Row: row,
		})
	})
	return rows, err
}

// GroupMembers parses a submitted group roster: group,name,contact.
func (r *Reader) GroupMembers(src io.Reader, table string) ([]GroupMemberRow, error) {
	var rows []GroupMemberRow
	err := r.readAll(src, table, []string{"group", "name", "contact"}, func(rec []string, row int) {
		rows = append(rows, GroupMemberRow{Group: rec[0], Name: rec[1], Contact: rec[2], Row: row})
	})
	return rows, err
}

// Interviews parses one score sheet: name,contact,score,notes. Rows whose
// score does not parse as a number are skipped with a diagnostic; range
// checking is the aggregator's job.
func (r *Reader) Interviews(src io.Reader, table string) ([]InterviewRow, error) {
	var rows []InterviewRow
	err := r.readAll(src, table, []string{"name", "contact", "score", "notes"}, func(rec []string, row int) {
		score, parseErr := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if parseErr != nil {
			r.recordMalformed(table, row, fmt.Sprintf("score %q is not numeric", rec[2]))
			return
		}
		rows = append(rows, InterviewRow{Name: rec[0], Contact: rec[1], Score: score, Notes: rec[3], Row: row})
	})
	return rows, err
}

// Positions parses the position table:
// position_id,capacity,priority,eligible where eligible is a
// semicolon-separated category list (empty admits every category).
func (r *Reader) Positions(src io.Reader, table string) ([]model.Position, error) {
	var positions []model.Position
	err := r.readAll(src, table, []string{"position_id", "capacity", "priority", "eligible"}, func(rec []string, row int) {
		capacity, capErr := strconv.Atoi(strings.TrimSpace(rec[1]))
		if capErr != nil || capacity < 0 {
			r.recordMalformed(table, row, fmt.Sprintf("capacity %q must be a non-negative integer", rec[1]))
			return
		}
		priority, prioErr := strconv.Atoi(strings.TrimSpace(rec[2]))
		if prioErr != nil {
			r.recordMalformed(table, row, fmt.Sprintf("priority %q must be an integer", rec[2]))
			return
		}
		var eligible []model.Category
		for _, name := range strings.Split(rec[3], ";") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			cat, catErr := model.ParseCategory(name)
			if catErr != nil {
				r.recordMalformed(table, row, catErr.Error())
				return
			}
			eligible = append(eligible, cat)
		}
		positions = append(positions, model.Position{
			ID:       strings.TrimSpace(rec[0]),
			Capacity: capacity,
			Priority: priority,
			Eligible: eligible,
		})
	})
	return positions, err
}

// Designations parses the direct-assignment list: name,contact,position_id.
func (r *Reader) Designations(src io.Reader, table string) ([]DesignationRow, error) {
	var rows []DesignationRow
	err := r.readAll(src, table, []string{"name", "contact", "position_id"}, func(rec []string, row int) {
		rows = append(rows, DesignationRow{
			Name:       rec[0],
			Contact:    rec[1],
			PositionID: strings.TrimSpace(rec[2]),
			Row:        row,
		})
	})
	return rows, err
}
