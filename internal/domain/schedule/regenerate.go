package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/starboard/internal/domain/calendar"
	"github.com/okian/starboard/internal/domain/clock"
	"github.com/okian/starboard/internal/domain/model"
)

// RegenerateResult is the output of a partial regeneration.
type RegenerateResult struct {
	Result
	// Regenerated lists the months that were rewritten, ascending.
	Regenerated []string
	// Skipped lists historical months that were refused.
	Skipped []string
}

// Regenerator re-picks the slots in weeks after the current one.
type Regenerator struct {
	gen   *Generator
	clock clock.Clock
}

// NewRegenerator creates a regenerator over gen using clk for "now".
func NewRegenerator(gen *Generator, clk clock.Clock) *Regenerator {
	if clk == nil {
		clk = clock.System{}
	}
	return &Regenerator{gen: gen, clock: clk}
}

// RegenerateMonth rewrites the future weeks of month. Past months are
// refused with model.ErrHistoricalMonth. Inputs are not modified.
func (r *Regenerator) RegenerateMonth(
	boards []model.MonthlyBoard,
	coords []model.Coordinator,
	month model.Month,
) (RegenerateResult, error) {
	now := r.clock.Now()
	if calendar.IsPastMonth(month, now) {
		return RegenerateResult{}, fmt.Errorf("%w: %s", model.ErrHistoricalMonth, month)
	}
	res := RegenerateResult{Result: Result{
		Boards:       model.CloneBoards(boards),
		Coordinators: model.CloneCoordinators(coords),
	}}
	r.regenerate(&res, month, now)
	return res, nil
}

// RegenerateMonths regenerates each month in ascending order, threading the
// star balances through. Historical months are skipped and reported.
func (r *Regenerator) RegenerateMonths(
	boards []model.MonthlyBoard,
	coords []model.Coordinator,
	months []model.Month,
) (RegenerateResult, error) {
	if len(months) == 0 {
		return RegenerateResult{}, fmt.Errorf("%w: no months given", model.ErrInvalidMonthCount)
	}
	ordered := make([]model.Month, len(months))
	copy(ordered, months)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	now := r.clock.Now()
	res := RegenerateResult{Result: Result{
		Boards:       model.CloneBoards(boards),
		Coordinators: model.CloneCoordinators(coords),
	}}
	seen := make(map[model.Month]struct{}, len(ordered))
	for _, m := range ordered {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		if calendar.IsPastMonth(m, now) {
			res.Skipped = append(res.Skipped, m.String())
			continue
		}
		r.regenerate(&res, m, now)
	}
	return res, nil
}

func (r *Regenerator) regenerate(res *RegenerateResult, m model.Month, now time.Time) {
	// The candidate is a full one-month run, so every slot it picks spends
	// a star even when the merge keeps the original slot.
	candidate, stats := r.gen.fill(res.Coordinators, m)
	res.add(stats)

	var merged model.MonthlyBoard
	if idx := model.IndexBoard(res.Boards, m.String()); idx >= 0 {
		merged = Merge(res.Boards[idx], candidate, now)
	} else {
		merged = FutureOnly(candidate, now)
	}

	res.Boards = model.UpsertBoard(res.Boards, merged)
	res.Regenerated = append(res.Regenerated, m.String())
}

// Merge overlays candidate onto original: every slot of original in a week
// after now's week takes the candidate's slot with the same date and type
// (with joined cleared); everything else is kept as is. The result is
// sorted by date.
func Merge(original, candidate model.MonthlyBoard, now time.Time) model.MonthlyBoard {
	byKey := make(map[string]model.Assignment, len(candidate.Assignments))
	for _, a := range candidate.Assignments {
		byKey[a.Key()] = a
	}

	out := original.Clone()
	for i, a := range out.Assignments {
		if !calendar.IsFutureWeek(a.Date, now) {
			continue
		}
		if c, ok := byKey[a.Key()]; ok {
			c.Joined = false
			out.Assignments[i] = c
		}
	}
	model.SortAssignments(out.Assignments)
	return out
}

// FutureOnly keeps only the candidate slots in weeks after now's week. It is
// used for months that had no board yet.
func FutureOnly(candidate model.MonthlyBoard, now time.Time) model.MonthlyBoard {
	out := model.MonthlyBoard{Month: candidate.Month, Assignments: make([]model.Assignment, 0, len(candidate.Assignments))}
	for _, a := range candidate.Assignments {
		if calendar.IsFutureWeek(a.Date, now) {
			out.Assignments = append(out.Assignments, a)
		}
	}
	model.SortAssignments(out.Assignments)
	return out
}
