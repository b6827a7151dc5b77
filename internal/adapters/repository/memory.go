package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/starboard/internal/domain/model"
)

const memoryBackend = "memory"

// MemoryStore keeps everything in process. Values are copied in and out so
// callers never share slices with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	coords []model.Coordinator
	boards []model.MonthlyBoard
	audit  []model.AuditEvent
	leads  map[string]model.LeadLog
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{leads: make(map[string]model.LeadLog)}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return memoryBackend }

// LoadCoordinators implements Store.
func (s *MemoryStore) LoadCoordinators(ctx context.Context) (out []model.Coordinator, err error) {
	defer func(start time.Time) { observe(memoryBackend, "load_coordinators", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out = model.CloneCoordinators(s.coords)
	if out == nil {
		out = []model.Coordinator{}
	}
	return out, nil
}

// SaveCoordinators implements Store.
func (s *MemoryStore) SaveCoordinators(ctx context.Context, coords []model.Coordinator) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "save_coordinators", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.coords = model.CloneCoordinators(coords)
	return nil
}

// LoadBoards implements Store.
func (s *MemoryStore) LoadBoards(ctx context.Context) (out []model.MonthlyBoard, err error) {
	defer func(start time.Time) { observe(memoryBackend, "load_boards", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out = model.CloneBoards(s.boards)
	if out == nil {
		out = []model.MonthlyBoard{}
	}
	return out, nil
}

// SaveBoards implements Store.
func (s *MemoryStore) SaveBoards(ctx context.Context, boards []model.MonthlyBoard) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "save_boards", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.boards = model.CloneBoards(boards)
	model.SortBoards(s.boards)
	return nil
}

// AppendAuditEvent implements Store.
func (s *MemoryStore) AppendAuditEvent(ctx context.Context, ev model.AuditEvent) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "append_audit", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.audit = append(s.audit, ev)
	return nil
}

// ListAuditEvents implements Store.
func (s *MemoryStore) ListAuditEvents(ctx context.Context, limit int) (out []model.AuditEvent, err error) {
	defer func(start time.Time) { observe(memoryBackend, "list_audit", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return newestFirst(s.audit, limit), nil
}

// UpsertLeadLogs implements Store.
func (s *MemoryStore) UpsertLeadLogs(ctx context.Context, logs []model.LeadLog) (err error) {
	defer func(start time.Time) { observe(memoryBackend, "upsert_leads", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	for _, l := range logs {
		s.leads[l.Key()] = l
	}
	return nil
}

// ListLeadLogs implements Store.
func (s *MemoryStore) ListLeadLogs(ctx context.Context) (out []model.LeadLog, err error) {
	defer func(start time.Time) { observe(memoryBackend, "list_leads", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	out = make([]model.LeadLog, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l)
	}
	sortLeads(out)
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func sortLeads(logs []model.LeadLog) {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].Date != logs[j].Date {
			return logs[i].Date < logs[j].Date
		}
		return logs[i].Type < logs[j].Type
	})
}
