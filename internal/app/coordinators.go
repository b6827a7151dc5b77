package service

import (
	"context"
	"fmt"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/roster"
	"github.com/okian/starboard/internal/domain/schedule"
	"github.com/okian/starboard/pkg/logger"
)

// Coordinators returns the roster in stored order.
func (s *Service) Coordinators(ctx context.Context) ([]model.Coordinator, error) {
	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return nil, fmt.Errorf("load coordinators: %w", err)
	}
	return coords, nil
}

// AddCoordinator appends a new coordinator.
func (s *Service) AddCoordinator(ctx context.Context, in roster.NewCoordinator) (model.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return model.Coordinator{}, fmt.Errorf("load coordinators: %w", err)
	}
	next, created, err := roster.Add(coords, in)
	if err != nil {
		return model.Coordinator{}, err
	}
	if err := s.saveCoordinators(ctx, next); err != nil {
		return model.Coordinator{}, err
	}
	s.logger.Info(ctx, "coordinator added", logger.String("id", created.ID), logger.String("name", created.Name))
	return created, nil
}

// UpdateCoordinator applies a partial edit. A rename is written through to
// every board assignment the coordinator holds.
func (s *Service) UpdateCoordinator(ctx context.Context, id string, p roster.Patch) (model.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return model.Coordinator{}, fmt.Errorf("load coordinators: %w", err)
	}
	var boards []model.MonthlyBoard
	if p.Name != nil {
		if boards, err = s.store.LoadBoards(ctx); err != nil {
			return model.Coordinator{}, fmt.Errorf("load boards: %w", err)
		}
	}

	nextCoords, nextBoards, err := roster.Update(coords, boards, id, p)
	if err != nil {
		return model.Coordinator{}, err
	}
	if p.Name != nil {
		if err := s.saveBoards(ctx, nextBoards); err != nil {
			return model.Coordinator{}, err
		}
	}
	if err := s.saveCoordinators(ctx, nextCoords); err != nil {
		return model.Coordinator{}, err
	}
	return nextCoords[model.IndexCoordinator(nextCoords, id)], nil
}

// RemoveCoordinator drops a coordinator from the active pool. Boards keep
// the cached name on assignments already made.
func (s *Service) RemoveCoordinator(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return fmt.Errorf("load coordinators: %w", err)
	}
	next, err := roster.Remove(coords, id)
	if err != nil {
		return err
	}
	if err := s.saveCoordinators(ctx, next); err != nil {
		return err
	}
	s.logger.Info(ctx, "coordinator removed", logger.String("id", id))
	return nil
}

// ReplaceCoordinators overwrites the roster after normalising it. Names are
// written through to the boards for every id the new roster holds.
func (s *Service) ReplaceCoordinators(ctx context.Context, coords []model.Coordinator) ([]model.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := roster.Normalize(coords)
	if err != nil {
		return nil, err
	}
	boards, err := s.store.LoadBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load boards: %w", err)
	}
	renamed := 0
	for _, c := range next {
		renamed += schedule.PropagateName(boards, c.ID, c.Name)
	}
	if renamed > 0 {
		if err := s.saveBoards(ctx, boards); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "names propagated", logger.Int("assignments", renamed))
	}
	if err := s.saveCoordinators(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
