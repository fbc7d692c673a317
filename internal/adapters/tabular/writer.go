package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/muster/internal/domain/model"
)

// rosterHeader is the consolidated roster export layout. Keep header order
// exact; downstream spreadsheets key off it.
var rosterHeader = []string{
	"position_id",
	"unit_id",
	"candidate_key",
	"name",
	"category",
	"unit_score",
	"designated",
}

// WriteRoster exports the assignment roster as CSV, one line per placed
// candidate, in the result's placement order.
func WriteRoster(w io.Writer, result *model.AssignmentResult, candidates map[string]model.Candidate) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(rosterHeader); err != nil {
		return fmt.Errorf("write roster header: %w", err)
	}
	for _, placement := range result.Assigned {
		for _, member := range placement.Unit.Members {
			cand := candidates[member]
			row := []string{
				placement.PositionID,
				placement.Unit.ID,
				member,
				cand.Name,
				cand.Category.String(),
				strconv.FormatFloat(placement.Unit.Score, 'g', -1, 64),
				strconv.FormatBool(placement.Designated),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write roster row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
