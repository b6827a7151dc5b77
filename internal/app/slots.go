package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/starboard/internal/domain/conflict"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/schedule"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

// SlotResult is the outcome of a slot edit. When Conflict is set the edit
// was not applied and the conflict is pending.
type SlotResult struct {
	Board      model.MonthlyBoard `json:"board"`
	Conflict   *conflict.Conflict `json:"conflict,omitempty"`
	NoEligible bool               `json:"noEligible"`
}

type slotEdit func(board model.MonthlyBoard, coords []model.Coordinator) (conflict.Outcome, error)

// AssignSlot puts coordinatorID on a slot; an empty id clears it.
func (s *Service) AssignSlot(ctx context.Context, month, date string, typ model.MeetingType, coordinatorID string) (SlotResult, error) {
	return s.editSlot(ctx, month, func(b model.MonthlyBoard, c []model.Coordinator) (conflict.Outcome, error) {
		return s.resolver.Assign(b, c, date, typ, coordinatorID)
	})
}

// ToggleJoined sets or clears the joined-service flag of a slot.
func (s *Service) ToggleJoined(ctx context.Context, month, date string, typ model.MeetingType, on bool) (SlotResult, error) {
	res, err := s.editSlot(ctx, month, func(b model.MonthlyBoard, c []model.Coordinator) (conflict.Outcome, error) {
		return s.resolver.ToggleJoined(b, c, date, typ, on)
	})
	if err == nil {
		metrics.RecordToggle("joined", on)
	}
	return res, err
}

// ToggleYouth sets or clears the youth Sunday flag of a slot.
func (s *Service) ToggleYouth(ctx context.Context, month, date string, typ model.MeetingType, on bool) (SlotResult, error) {
	res, err := s.editSlot(ctx, month, func(b model.MonthlyBoard, c []model.Coordinator) (conflict.Outcome, error) {
		return s.resolver.ToggleYouth(b, c, date, typ, on)
	})
	if err == nil {
		metrics.RecordToggle("youth", on)
	}
	return res, err
}

func (s *Service) editSlot(ctx context.Context, month string, edit slotEdit) (SlotResult, error) {
	m, err := model.ParseMonth(month)
	if err != nil {
		return SlotResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	boards, coords, idx, err := s.loadBoard(ctx, m.String())
	if err != nil {
		return SlotResult{}, err
	}
	out, err := edit(boards[idx], coords)
	if err != nil {
		return SlotResult{}, err
	}

	if out.Conflict != nil {
		s.pending[out.Conflict.ID] = *out.Conflict
		metrics.RecordConflictDetected(string(out.Conflict.Trigger))
		metrics.UpdateConflictsPending(len(s.pending))
		s.record(ctx, out.Events)
		s.logger.Info(ctx, "duplicate detected",
			logger.String("conflict", out.Conflict.ID),
			logger.String("date", out.Conflict.Date),
			logger.String("type", string(out.Conflict.Type)),
			logger.String("name", out.Conflict.Name),
		)
		return SlotResult{Board: boards[idx], Conflict: out.Conflict}, nil
	}

	if err := s.commit(ctx, boards, coords, out); err != nil {
		return SlotResult{}, err
	}
	return SlotResult{Board: out.Board, NoEligible: out.NoEligible}, nil
}

// loadBoard loads every board and the roster and locates month, backfilled.
func (s *Service) loadBoard(ctx context.Context, month string) ([]model.MonthlyBoard, []model.Coordinator, int, error) {
	boards, err := s.store.LoadBoards(ctx)
	if err != nil {
		return nil, nil, -1, fmt.Errorf("load boards: %w", err)
	}
	idx := model.IndexBoard(boards, month)
	if idx < 0 {
		return nil, nil, -1, fmt.Errorf("%w: %s", model.ErrBoardNotFound, month)
	}
	boards[idx] = schedule.Backfill(boards[idx])
	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return nil, nil, -1, fmt.Errorf("load coordinators: %w", err)
	}
	return boards, coords, idx, nil
}

// commit saves an applied outcome and records its events. Boards go
// first; stars are only persisted once the slot they paid for is stored.
func (s *Service) commit(ctx context.Context, boards []model.MonthlyBoard, coords []model.Coordinator, out conflict.Outcome) error {
	if err := s.saveBoards(ctx, model.UpsertBoard(boards, out.Board)); err != nil {
		return err
	}
	if starsChanged(coords, out.Coordinators) {
		if err := s.saveCoordinators(ctx, out.Coordinators); err != nil {
			return err
		}
	}
	if out.NoEligible {
		metrics.RecordNoEligible()
	}
	s.record(ctx, out.Events)
	return nil
}

func starsChanged(before, after []model.Coordinator) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

// Conflicts lists pending conflicts, oldest first.
func (s *Service) Conflicts(_ context.Context) []conflict.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]conflict.Conflict, 0, len(s.pending))
	for _, c := range s.pending {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.Before(out[j].DetectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ResolveConflictAuto fills the conflicted slot with a fresh weighted pick.
func (s *Service) ResolveConflictAuto(ctx context.Context, id string) (SlotResult, error) {
	return s.resolve(ctx, id, model.ResolutionAutoReplace, func(b model.MonthlyBoard, c []model.Coordinator, cf conflict.Conflict) (conflict.Outcome, error) {
		return s.resolver.ResolveAuto(b, c, cf)
	})
}

// ResolveConflictManual puts the coordinator called name on the conflicted
// slot. On a rule error the conflict stays pending.
func (s *Service) ResolveConflictManual(ctx context.Context, id, name string) (SlotResult, error) {
	return s.resolve(ctx, id, model.ResolutionManualEntry, func(b model.MonthlyBoard, c []model.Coordinator, cf conflict.Conflict) (conflict.Outcome, error) {
		return s.resolver.ResolveManual(b, c, cf, name)
	})
}

func (s *Service) resolve(
	ctx context.Context,
	id string,
	resolution model.Resolution,
	run func(model.MonthlyBoard, []model.Coordinator, conflict.Conflict) (conflict.Outcome, error),
) (SlotResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.pending[id]
	if !ok {
		return SlotResult{}, fmt.Errorf("%w: %s", model.ErrConflictNotFound, id)
	}
	boards, coords, idx, err := s.loadBoard(ctx, c.Month)
	if err != nil {
		return SlotResult{}, err
	}
	out, err := run(boards[idx], coords, c)
	if err != nil {
		return SlotResult{}, err
	}
	if err := s.commit(ctx, boards, coords, out); err != nil {
		return SlotResult{}, err
	}

	delete(s.pending, id)
	metrics.RecordConflictResolved(string(resolution))
	metrics.UpdateConflictsPending(len(s.pending))
	s.logger.Info(ctx, "conflict resolved", logger.String("conflict", id), logger.String("resolution", string(resolution)))
	return SlotResult{Board: out.Board, NoEligible: out.NoEligible}, nil
}

// DismissConflict closes a conflict and leaves the board as it was.
func (s *Service) DismissConflict(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.pending[id]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrConflictNotFound, id)
	}
	delete(s.pending, id)
	metrics.RecordConflictResolved("dismissed")
	metrics.UpdateConflictsPending(len(s.pending))
	s.record(ctx, []model.AuditEvent{s.resolver.Dismiss(c)})
	return nil
}
