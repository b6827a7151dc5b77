// Package schedule generates monthly boards and regenerates the future part
// of existing boards without touching the past.
package schedule

import (
	"errors"
	"fmt"

	"github.com/okian/starboard/internal/domain/calendar"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/picker"
)

// DefaultMonths is the horizon used when the caller passes zero months.
const DefaultMonths = 6

// Result is the output of a generation run.
type Result struct {
	Boards       []model.MonthlyBoard
	Coordinators []model.Coordinator
	// Assigned and Unassigned count slots that were picked for.
	Assigned   int
	Unassigned int
	// StarsSpent counts stars actually consumed (zero-star picks spend none).
	StarsSpent int
}

func (r *Result) add(s fillStats) {
	r.Assigned += s.assigned
	r.Unassigned += s.unassigned
	r.StarsSpent += s.spent
}

// Generator fills boards slot by slot with the weighted picker.
type Generator struct {
	picker *picker.Picker
}

// NewGenerator creates a generator drawing from p.
func NewGenerator(p *picker.Picker) *Generator {
	if p == nil {
		p = picker.New()
	}
	return &Generator{picker: p}
}

// Generate builds months consecutive boards starting at start. Star
// depletion carries from one month to the next; coords is not modified.
func (g *Generator) Generate(coords []model.Coordinator, start model.Month, months int) (Result, error) {
	if months < 0 {
		return Result{}, fmt.Errorf("%w: %d", model.ErrInvalidMonthCount, months)
	}
	if months == 0 {
		months = DefaultMonths
	}

	res := Result{
		Boards:       make([]model.MonthlyBoard, 0, months),
		Coordinators: model.CloneCoordinators(coords),
	}
	for i := 0; i < months; i++ {
		board, stats := g.fill(res.Coordinators, start.Add(i))
		res.Boards = append(res.Boards, board)
		res.add(stats)
	}
	return res, nil
}

type fillStats struct {
	assigned   int
	unassigned int
	spent      int
}

// fill expands month m and picks a coordinator for every slot. Slots for
// which nobody is eligible become unassigned placeholders. working is
// updated in place as stars are consumed.
func (g *Generator) fill(working []model.Coordinator, m model.Month) (model.MonthlyBoard, fillStats) {
	used := make(map[string]struct{})
	slots := calendar.ExpandMonth(m)
	board := model.MonthlyBoard{Month: m.String(), Assignments: make([]model.Assignment, 0, len(slots))}
	var stats fillStats

	for _, slot := range slots {
		a := slot.Placeholder()
		chosen, err := g.picker.Pick(picker.Eligible(working, used))
		if errors.Is(err, picker.ErrNoEligibleCoordinator) {
			stats.unassigned++
			board.Assignments = append(board.Assignments, a)
			continue
		}

		a.CoordinatorID = chosen.ID
		a.CoordinatorName = chosen.Name
		used[chosen.ID] = struct{}{}
		if i := model.IndexCoordinator(working, chosen.ID); i >= 0 && working[i].ConsumeStar() {
			stats.spent++
		}
		stats.assigned++
		board.Assignments = append(board.Assignments, a)
	}
	return board, stats
}
