package schedule

import (
	"github.com/okian/starboard/internal/domain/calendar"
	"github.com/okian/starboard/internal/domain/model"
)

// Backfill adds an unassigned placeholder for every calendar slot the board
// is missing and sorts the result by date. Boards with a malformed month are
// returned sorted but otherwise unchanged.
func Backfill(board model.MonthlyBoard) model.MonthlyBoard {
	out := board.Clone()
	m, err := model.ParseMonth(board.Month)
	if err == nil {
		for _, slot := range calendar.ExpandMonth(m) {
			if out.Find(slot.Date, slot.Type) < 0 {
				out.Assignments = append(out.Assignments, slot.Placeholder())
			}
		}
	}
	if out.Assignments == nil {
		out.Assignments = []model.Assignment{}
	}
	model.SortAssignments(out.Assignments)
	return out
}

// BackfillAll applies Backfill to every board.
func BackfillAll(boards []model.MonthlyBoard) []model.MonthlyBoard {
	out := make([]model.MonthlyBoard, len(boards))
	for i := range boards {
		out[i] = Backfill(boards[i])
	}
	return out
}

// PropagateName rewrites the cached name on every assignment led by id and
// returns how many assignments changed. boards is modified in place.
func PropagateName(boards []model.MonthlyBoard, id, name string) int {
	if id == "" {
		return 0
	}
	changed := 0
	for b := range boards {
		for i := range boards[b].Assignments {
			a := &boards[b].Assignments[i]
			if a.CoordinatorID == id && a.CoordinatorName != name {
				a.CoordinatorName = name
				changed++
			}
		}
	}
	return changed
}
