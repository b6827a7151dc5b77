package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/starboard/internal/adapters/mq/queue"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

// Sink records audit events off the request path. Events the queue refuses
// are written inline so nothing is lost.
type Sink struct {
	appender     Appender
	queue        *queue.InMemoryQueue
	worker       *InMemoryWorker
	writeTimeout time.Duration
	logger       logger.Logger

	mu      sync.Mutex
	started bool
}

// NewSink creates a sink writing to appender. It writes synchronously until
// Start is called.
func NewSink(appender Appender, opts ...SinkOption) *Sink {
	s := &Sink{
		appender:     appender,
		writeTimeout: defaultWriteTimeout,
		logger:       logger.Get().Named("audit"),
	}
	var cfg sinkConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.writeTimeout > 0 {
		s.writeTimeout = cfg.writeTimeout
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.capacity))
	s.worker = NewInMemoryWorker(s.queue, appender,
		WithWriteTimeout(s.writeTimeout),
		WithLogger(s.logger.Named("writer")),
	)
	return s
}

// Start launches the background writer. Canceling ctx does not stop it;
// call Shutdown to drain and stop.
func (s *Sink) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.queue.IsClosed() {
		return
	}
	s.started = true
	go s.worker.Run(context.WithoutCancel(ctx))
}

// Record persists events in order.
func (s *Sink) Record(ctx context.Context, events ...model.AuditEvent) error {
	var errs []error
	for i := range events {
		ev := events[i]
		if reason, queued := s.enqueue(ctx, ev); !queued {
			metrics.RecordAuditFallback(reason)
			if err := appendEvent(ctx, s.appender, s.writeTimeout, ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) enqueue(ctx context.Context, ev model.AuditEvent) (string, bool) { //nolint:gocritic // hugeParam
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	switch {
	case !started:
		return "not_started", false
	case s.queue.IsClosed():
		return "closed", false
	case !s.queue.Enqueue(ctx, ev):
		return "full", false
	default:
		return "", true
	}
}

// Pending returns the number of queued events.
func (s *Sink) Pending(ctx context.Context) int {
	return s.queue.Len(ctx)
}

// Shutdown stops accepting queued events and waits for the writer to drain.
func (s *Sink) Shutdown(ctx context.Context) error {
	if err := s.queue.Close(); err != nil {
		return fmt.Errorf("close audit queue: %w", err)
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.worker.Done():
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "audit queue not drained", logger.Int("pending", s.queue.Len(ctx)))
		return s.worker.Shutdown(ctx)
	}
}
