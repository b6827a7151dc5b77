// Package service orchestrates the scheduling core over a store: every
// operation loads state, transforms it with the domain packages and saves
// the result.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/starboard/internal/adapters/mq/worker"
	"github.com/okian/starboard/internal/adapters/repository"
	"github.com/okian/starboard/internal/domain/calendar"
	"github.com/okian/starboard/internal/domain/clock"
	"github.com/okian/starboard/internal/domain/conflict"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/internal/domain/picker"
	"github.com/okian/starboard/internal/domain/schedule"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

const defaultAuditQueueSize = 1024

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, events ...model.AuditEvent) error
}

// Health describes the running service.
type Health struct {
	Status           string    `json:"status"`
	Time             time.Time `json:"time"`
	Backend          string    `json:"backend"`
	DBConfigured     bool      `json:"db_configured"`
	Env              string    `json:"env"`
	PendingConflicts int       `json:"pendingConflicts"`
}

// Service implements the operations behind the HTTP API and CLI.
type Service struct {
	// mu serialises every load-transform-save cycle.
	mu sync.Mutex

	store    repository.Store
	audit    AuditRecorder
	sink     *worker.Sink
	clock    clock.Clock
	picker   *picker.Picker
	gen      *schedule.Generator
	regen    *schedule.Regenerator
	resolver *conflict.Resolver
	newID    func() string

	pending map[string]conflict.Conflict

	env            string
	horizon        int
	auditQueueSize int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithAuditRecorder replaces the queued audit writer.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithAuditQueueSize sets the audit queue capacity.
func WithAuditQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.auditQueueSize = n
		}
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPicker sets the weighted picker used for every draw.
func WithPicker(p *picker.Picker) Option {
	return func(s *Service) {
		if p != nil {
			s.picker = p
		}
	}
}

// WithIDGenerator overrides how conflict and audit ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithHorizon sets the default number of months GenerateHorizon covers.
func WithHorizon(months int) Option {
	return func(s *Service) {
		if months > 0 {
			s.horizon = months
		}
	}
}

// WithEnvironment labels the deployment in Health.
func WithEnvironment(env string) Option {
	return func(s *Service) {
		s.env = env
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without WithStore it keeps state in memory.
func New(opts ...Option) *Service {
	s := &Service{
		clock:          clock.System{},
		pending:        make(map[string]conflict.Conflict),
		horizon:        schedule.DefaultMonths,
		auditQueueSize: defaultAuditQueueSize,
		env:            "development",
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.picker == nil {
		s.picker = picker.New()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.audit == nil {
		s.sink = worker.NewSink(s.store, worker.WithQueueCapacity(s.auditQueueSize))
		s.audit = s.sink
	}

	var resolverOpts []conflict.Option
	if s.newID != nil {
		resolverOpts = append(resolverOpts, conflict.WithIDGenerator(s.newID))
	}
	s.gen = schedule.NewGenerator(s.picker)
	s.regen = schedule.NewRegenerator(s.gen, s.clock)
	s.resolver = conflict.NewResolver(s.picker, s.clock, resolverOpts...)
	return s
}

// Start launches background components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.sink != nil {
		s.sink.Start(ctx)
	}
	s.started = true

	coords, err := s.store.LoadCoordinators(ctx)
	if err != nil {
		return fmt.Errorf("load coordinators: %w", err)
	}
	updateRosterMetrics(coords)
	s.logger.Info(ctx, "service started",
		logger.String("backend", s.store.Name()),
		logger.Int("coordinators", len(coords)),
		logger.Int("horizon", s.horizon),
	)
	return nil
}

// Stop drains the audit queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "audit drain incomplete", logger.Error(err))
		}
	}
	s.started = false
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	s.logger.Info(ctx, "service stopped")
	return nil
}

// Health reports the backend and pending conflict count.
func (s *Service) Health(_ context.Context) Health {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()

	return Health{
		Status:           "ok",
		Time:             s.clock.Now(),
		Backend:          s.store.Name(),
		DBConfigured:     s.store.Name() != repository.BackendMemory,
		Env:              s.env,
		PendingConflicts: pending,
	}
}

// saveCoordinators persists the roster and refreshes roster gauges.
func (s *Service) saveCoordinators(ctx context.Context, coords []model.Coordinator) error {
	if err := s.store.SaveCoordinators(ctx, coords); err != nil {
		return fmt.Errorf("save coordinators: %w", err)
	}
	updateRosterMetrics(coords)
	return nil
}

// saveBoards persists boards and records who led every slot whose week has
// ended.
func (s *Service) saveBoards(ctx context.Context, boards []model.MonthlyBoard) error {
	if err := s.store.SaveBoards(ctx, boards); err != nil {
		return fmt.Errorf("save boards: %w", err)
	}
	if logs := s.leadLogs(boards); len(logs) > 0 {
		if err := s.store.UpsertLeadLogs(ctx, logs); err != nil {
			return fmt.Errorf("save lead logs: %w", err)
		}
	}
	return nil
}

func (s *Service) leadLogs(boards []model.MonthlyBoard) []model.LeadLog {
	now := s.clock.Now()
	var logs []model.LeadLog
	for _, b := range boards {
		m, err := model.ParseMonth(b.Month)
		if err != nil {
			continue
		}
		for _, a := range b.Assignments {
			if !a.Assigned() || !calendar.WeekEnded(a.Date, now) {
				continue
			}
			logs = append(logs, model.LeadLog{
				Date:            a.Date,
				Type:            a.Type,
				CoordinatorID:   a.CoordinatorID,
				CoordinatorName: a.CoordinatorName,
				MonthStart:      m.Start(),
				RecordedAt:      now,
			})
		}
	}
	return logs
}

// record hands events to the audit recorder. Failures are logged, not
// returned: the state change they describe is already committed.
func (s *Service) record(ctx context.Context, events []model.AuditEvent) {
	if len(events) == 0 {
		return
	}
	if err := s.audit.Record(ctx, events...); err != nil {
		s.logger.Error(ctx, "audit record failed", logger.Int("events", len(events)), logger.Error(err))
	}
}

func updateRosterMetrics(coords []model.Coordinator) {
	available := 0
	for _, c := range coords {
		if c.Available {
			available++
		}
	}
	metrics.UpdateRoster(len(coords), available)
}
