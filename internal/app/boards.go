package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/starboard/internal/domain/calendar"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/schedule"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

// Generation modes used as metric labels.
const (
	modeHorizon    = "horizon"
	modeMonth      = "month"
	modeRegenerate = "regenerate"
	modeAuto       = "auto"
)

// Boards returns every board with missing calendar slots filled in.
func (s *Service) Boards(ctx context.Context) ([]model.MonthlyBoard, error) {
	boards, err := s.store.LoadBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	return schedule.BackfillAll(boards), nil
}

// Board returns the backfilled board for month.
func (s *Service) Board(ctx context.Context, month string) (model.MonthlyBoard, error) {
	m, err := model.ParseMonth(month)
	if err != nil {
		return model.MonthlyBoard{}, err
	}
	boards, err := s.Boards(ctx)
	if err != nil {
		return model.MonthlyBoard{}, err
	}
	idx := model.IndexBoard(boards, m.String())
	if idx < 0 {
		return model.MonthlyBoard{}, fmt.Errorf("%w: %s", model.ErrBoardNotFound, m)
	}
	return boards[idx], nil
}

// ReplaceBoards overwrites every board after validating it. Cached names
// are taken from the roster for every coordinator id it knows.
func (s *Service) ReplaceBoards(ctx context.Context, boards []model.MonthlyBoard) ([]model.MonthlyBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return nil, fmt.Errorf("load coordinators: %w", err)
	}
	next := make([]model.MonthlyBoard, 0, len(boards))
	seen := make(map[string]struct{}, len(boards))
	for _, b := range boards {
		clean, err := validateBoard(b, coords)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[clean.Month]; dup {
			return nil, fmt.Errorf("%w: board %s given twice", model.ErrInvalidMonth, clean.Month)
		}
		seen[clean.Month] = struct{}{}
		next = append(next, clean)
	}
	model.SortBoards(next)
	if err := s.saveBoards(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func validateBoard(b model.MonthlyBoard, coords []model.Coordinator) (model.MonthlyBoard, error) {
	m, err := model.ParseMonth(b.Month)
	if err != nil {
		return model.MonthlyBoard{}, err
	}
	out := model.MonthlyBoard{Month: m.String(), Assignments: make([]model.Assignment, 0, len(b.Assignments))}
	slots := make(map[string]struct{}, len(b.Assignments))
	for _, a := range b.Assignments {
		day, err := model.ParseDate(a.Date, time.UTC)
		if err != nil {
			return model.MonthlyBoard{}, err
		}
		a.Date = day.Format(model.DateLayout)
		if !m.Contains(a.Date) {
			return model.MonthlyBoard{}, fmt.Errorf("%w: %q is not in %s", model.ErrInvalidDate, a.Date, m)
		}
		typ, err := model.ParseMeetingType(string(a.Type))
		if err != nil {
			return model.MonthlyBoard{}, err
		}
		if !meetsOn(typ, day.Weekday()) {
			return model.MonthlyBoard{}, fmt.Errorf("%w: %s is a %s", model.ErrInvalidType, a.Date, day.Weekday())
		}
		a.Type = typ
		if a.YouthSunday && typ != model.Sunday {
			return model.MonthlyBoard{}, fmt.Errorf("%w: %s", model.ErrYouthOnFriday, a.Date)
		}
		if a.Joined && a.YouthSunday {
			return model.MonthlyBoard{}, fmt.Errorf("%w: %s %s is both joined and youth", model.ErrInput, a.Date, typ)
		}
		if a.Joined || a.YouthSunday {
			a.Clear()
		}
		if i := model.IndexCoordinator(coords, a.CoordinatorID); a.CoordinatorID != "" && i >= 0 {
			a.CoordinatorName = coords[i].Name
		}
		if _, dup := slots[a.Key()]; dup {
			return model.MonthlyBoard{}, fmt.Errorf("%w: slot %s %s given twice", model.ErrInvalidDate, a.Date, typ)
		}
		slots[a.Key()] = struct{}{}
		out.Assignments = append(out.Assignments, a)
	}
	model.SortAssignments(out.Assignments)
	return out, nil
}

func meetsOn(typ model.MeetingType, day time.Weekday) bool {
	switch typ {
	case model.Friday:
		return day == time.Friday
	case model.Sunday:
		return day == time.Sunday
	}
	return false
}

// GenerateHorizon discards every board and generates months boards from
// start. A zero count uses the configured horizon.
func (s *Service) GenerateHorizon(ctx context.Context, start model.Month, months int) (schedule.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if months == 0 {
		months = s.horizon
	}
	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("load coordinators: %w", err)
	}
	res, err := s.gen.Generate(coords, start, months)
	if err != nil {
		return schedule.Result{}, err
	}
	if err := s.saveBoards(ctx, res.Boards); err != nil {
		return schedule.Result{}, err
	}
	if err := s.saveCoordinators(ctx, res.Coordinators); err != nil {
		return schedule.Result{}, err
	}
	observeGeneration(modeHorizon, len(res.Boards), res)
	s.logger.Info(ctx, "schedule generated",
		logger.String("start", start.String()),
		logger.Int("months", months),
		logger.Int("assigned", res.Assigned),
		logger.Int("unassigned", res.Unassigned),
	)
	return res, nil
}

// GenerateMonth generates a fresh board for month and replaces any board
// already stored for it. Past months are refused.
func (s *Service) GenerateMonth(ctx context.Context, month model.Month) (model.MonthlyBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateMonth(ctx, month, modeMonth)
}

func (s *Service) generateMonth(ctx context.Context, month model.Month, mode string) (model.MonthlyBoard, error) {
	if calendar.IsPastMonth(month, s.clock.Now()) {
		return model.MonthlyBoard{}, fmt.Errorf("%w: %s", model.ErrHistoricalMonth, month)
	}
	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return model.MonthlyBoard{}, fmt.Errorf("load coordinators: %w", err)
	}
	boards, err := s.store.LoadBoards(ctx)
	if err != nil {
		return model.MonthlyBoard{}, fmt.Errorf("load boards: %w", err)
	}
	res, err := s.gen.Generate(coords, month, 1)
	if err != nil {
		return model.MonthlyBoard{}, err
	}
	board := res.Boards[0]
	if err := s.saveBoards(ctx, model.UpsertBoard(boards, board)); err != nil {
		return model.MonthlyBoard{}, err
	}
	if err := s.saveCoordinators(ctx, res.Coordinators); err != nil {
		return model.MonthlyBoard{}, err
	}
	observeGeneration(mode, 1, res)
	s.logger.Info(ctx, "month generated", logger.String("month", month.String()), logger.String("mode", mode))
	return board, nil
}

// RegenerateMonth re-picks the slots of month that fall in weeks after the
// current one.
func (s *Service) RegenerateMonth(ctx context.Context, month model.Month) (schedule.RegenerateResult, error) {
	return s.regenerate(ctx, func(boards []model.MonthlyBoard, coords []model.Coordinator) (schedule.RegenerateResult, error) {
		return s.regen.RegenerateMonth(boards, coords, month)
	})
}

// RegenerateMonths regenerates several months in ascending order. Past
// months are skipped and listed in the result.
func (s *Service) RegenerateMonths(ctx context.Context, months []model.Month) (schedule.RegenerateResult, error) {
	return s.regenerate(ctx, func(boards []model.MonthlyBoard, coords []model.Coordinator) (schedule.RegenerateResult, error) {
		return s.regen.RegenerateMonths(boards, coords, months)
	})
}

func (s *Service) regenerate(
	ctx context.Context,
	run func([]model.MonthlyBoard, []model.Coordinator) (schedule.RegenerateResult, error),
) (schedule.RegenerateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return schedule.RegenerateResult{}, fmt.Errorf("load coordinators: %w", err)
	}
	boards, err := s.store.LoadBoards(ctx)
	if err != nil {
		return schedule.RegenerateResult{}, fmt.Errorf("load boards: %w", err)
	}
	res, err := run(schedule.BackfillAll(boards), coords)
	if err != nil {
		return schedule.RegenerateResult{}, err
	}
	if len(res.Regenerated) > 0 {
		if err := s.saveBoards(ctx, res.Boards); err != nil {
			return schedule.RegenerateResult{}, err
		}
		if err := s.saveCoordinators(ctx, res.Coordinators); err != nil {
			return schedule.RegenerateResult{}, err
		}
	}
	observeGeneration(modeRegenerate, len(res.Regenerated), res.Result)
	s.logger.Info(ctx, "boards regenerated",
		logger.Any("months", res.Regenerated),
		logger.Any("skipped", res.Skipped),
		logger.Int("assigned", res.Assigned),
	)
	return res, nil
}

// AutoGenerateNextMonth generates next month's board when today is the
// second-to-last day of the month and no board with assignments exists
// for it yet. It reports the month generated, if any.
func (s *Service) AutoGenerateNextMonth(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if !calendar.IsSecondToLastDay(now) {
		return "", false, nil
	}
	next := model.MonthOf(now).Next()
	boards, err := s.store.LoadBoards(ctx)
	if err != nil {
		return "", false, fmt.Errorf("load boards: %w", err)
	}
	if i := model.IndexBoard(boards, next.String()); i >= 0 && len(boards[i].Assignments) > 0 {
		return next.String(), false, nil
	}
	if _, err := s.generateMonth(ctx, next, modeAuto); err != nil {
		return "", false, err
	}
	return next.String(), true, nil
}

func observeGeneration(mode string, boards int, res schedule.Result) {
	metrics.RecordBoardsGenerated(mode, boards)
	metrics.RecordSlots(res.Assigned, res.Unassigned)
	metrics.RecordStarsConsumed(res.StarsSpent)
}
