// Package repository persists coordinators, boards, audit events and lead
// logs. Saves replace the whole collection; the last writer wins.
package repository

import (
	"context"
	"time"

	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/pkg/metrics"
)

// Store provides read/write access to the scheduling state.
type Store interface {
	// LoadCoordinators returns the roster in its stored order.
	LoadCoordinators(ctx context.Context) ([]model.Coordinator, error)
	// SaveCoordinators overwrites the roster.
	SaveCoordinators(ctx context.Context, coords []model.Coordinator) error

	// LoadBoards returns every board ordered by month.
	LoadBoards(ctx context.Context) ([]model.MonthlyBoard, error)
	// SaveBoards overwrites all boards.
	SaveBoards(ctx context.Context, boards []model.MonthlyBoard) error

	// AppendAuditEvent adds one event to the append-only log.
	AppendAuditEvent(ctx context.Context, ev model.AuditEvent) error
	// ListAuditEvents returns up to limit events, newest first. A limit of
	// zero or less returns everything.
	ListAuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error)

	// UpsertLeadLogs inserts or replaces logs keyed by (date, type).
	UpsertLeadLogs(ctx context.Context, logs []model.LeadLog) error
	// ListLeadLogs returns every lead log ordered by date.
	ListLeadLogs(ctx context.Context) ([]model.LeadLog, error)

	// Name identifies the backend ("memory", "file", "mongo").
	Name() string
	// Close releases the backend's resources.
	Close() error
}

// observe records the duration and outcome of a store call.
func observe(backend, op string, start time.Time, err error) {
	metrics.ObserveStoreOperation(backend, op, time.Since(start).Seconds(), err)
}

func newestFirst(events []model.AuditEvent, limit int) []model.AuditEvent {
	out := make([]model.AuditEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, events[i])
	}
	return out
}
