package service

import (
	"context"
	"fmt"

	"github.com/okian/starboard/internal/domain/model"
)

// AuditEvents returns up to limit audit events, newest first. A limit of
// zero or less returns everything.
func (s *Service) AuditEvents(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	events, err := s.store.ListAuditEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// LeadLogs returns who led every elapsed slot, ordered by date.
func (s *Service) LeadLogs(ctx context.Context) ([]model.LeadLog, error) {
	logs, err := s.store.ListLeadLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lead logs: %w", err)
	}
	return logs, nil
}
