package conflict

import (
	"errors"
	"fmt"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/picker"
)

// ResolveAuto fills the conflicted slot of board with a weighted pick from
// the coordinators not already used elsewhere in the month and whose name
// does not already appear on another slot of the same type. The pick
// consumes a star. When nobody qualifies the slot is left unassigned and
// NoEligible is set.
func (r *Resolver) ResolveAuto(board model.MonthlyBoard, coords []model.Coordinator, c Conflict) (Outcome, error) {
	proposed, idx, err := conflictSlot(board, c)
	if err != nil {
		return Outcome{}, err
	}
	a := &proposed.Assignments[idx]
	prev := previous(*a, c)

	taken := make(map[string]struct{})
	for i, other := range proposed.Assignments {
		if i != idx && other.Type == a.Type && other.CoordinatorName != "" {
			taken[model.FoldName(other.CoordinatorName)] = struct{}{}
		}
	}
	pool := make([]model.Coordinator, 0, len(coords))
	for _, cand := range picker.Eligible(coords, proposed.UsedCoordinators(a.Key())) {
		if _, clash := taken[model.FoldName(cand.Name)]; !clash {
			pool = append(pool, cand)
		}
	}

	working := model.CloneCoordinators(coords)
	a.Joined = false
	a.YouthSunday = false
	out := Outcome{Board: proposed, Coordinators: working}

	chosen, err := r.picker.Pick(pool)
	if errors.Is(err, picker.ErrNoEligibleCoordinator) {
		a.Clear()
		out.NoEligible = true
	} else {
		a.CoordinatorID = chosen.ID
		a.CoordinatorName = chosen.Name
		if i := model.IndexCoordinator(working, chosen.ID); i >= 0 {
			working[i].ConsumeStar()
		}
	}

	out.Events = []model.AuditEvent{
		r.event(model.ActionDuplicateResolvedAuto, proposed.Month, *a, prev, model.TriggerConflictModal, model.ResolutionAutoReplace),
	}
	return out, nil
}

// ResolveManual puts the coordinator called name on the conflicted slot.
// The name must match a coordinator (case-insensitively) and must not
// itself duplicate another slot of the same type; otherwise the board is
// left alone and the conflict stays open.
func (r *Resolver) ResolveManual(board model.MonthlyBoard, coords []model.Coordinator, c Conflict, name string) (Outcome, error) {
	match, ok := model.FindCoordinatorByName(coords, name)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", model.ErrUnknownCoordinator, name)
	}
	proposed, idx, err := conflictSlot(board, c)
	if err != nil {
		return Outcome{}, err
	}
	a := &proposed.Assignments[idx]
	prev := previous(*a, c)

	a.CoordinatorID = match.ID
	a.CoordinatorName = match.Name
	a.Joined = false
	a.YouthSunday = false
	if HasDuplicate(proposed, a.Type, match.Name) {
		return Outcome{}, fmt.Errorf("%w: %q", model.ErrStillDuplicate, match.Name)
	}

	return Outcome{
		Board:        proposed,
		Coordinators: model.CloneCoordinators(coords),
		Events: []model.AuditEvent{
			r.event(model.ActionDuplicateResolvedManual, proposed.Month, *a, prev, model.TriggerConflictModal, model.ResolutionManualEntry),
		},
	}, nil
}

// Dismiss abandons a conflict. The board keeps its pre-conflict state.
func (r *Resolver) Dismiss(c Conflict) model.AuditEvent {
	next := model.Assignment{Date: c.Date, Type: c.Type, CoordinatorID: c.CoordinatorID, CoordinatorName: c.Name}
	prev := model.Assignment{CoordinatorID: c.PreviousCoordinatorID, CoordinatorName: c.PreviousCoordinatorName}
	return r.event(model.ActionConflictDismissed, c.Month, next, prev, c.Trigger, "")
}

func conflictSlot(board model.MonthlyBoard, c Conflict) (model.MonthlyBoard, int, error) {
	if board.Month != c.Month {
		return model.MonthlyBoard{}, -1, fmt.Errorf("%w: %s", model.ErrBoardNotFound, c.Month)
	}
	idx := board.Find(c.Date, c.Type)
	if idx < 0 {
		return model.MonthlyBoard{}, -1, fmt.Errorf("%w: %s %s", model.ErrSlotNotFound, c.Date, c.Type)
	}
	return board.Clone(), idx, nil
}

func previous(current model.Assignment, c Conflict) model.Assignment {
	if c.PreviousCoordinatorID != "" || c.PreviousCoordinatorName != "" {
		return model.Assignment{CoordinatorID: c.PreviousCoordinatorID, CoordinatorName: c.PreviousCoordinatorName}
	}
	return current
}
