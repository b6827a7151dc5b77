// Package worker drains the audit queue into the store.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/starboard/internal/adapters/mq/queue"
	"github.com/okian/starboard/internal/domain/model"
	"github.com/okian/starboard/pkg/logger"
	"github.com/okian/starboard/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// Appender persists one audit event.
type Appender interface {
	AppendAuditEvent(ctx context.Context, ev model.AuditEvent) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker consumes events until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker writes queued audit events one at a time, preserving
// queue order.
type InMemoryWorker struct {
	queue        Queue
	appender     Appender
	name         string
	writeTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, appender Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        q,
		appender:     appender,
		name:         "audit-writer",
		writeTimeout: defaultWriteTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.write(ctx, ev); err != nil {
				w.logger.Error(ctx, "audit event dropped",
					logger.String("event_id", ev.ID),
					logger.String("action", string(ev.Action)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) write(ctx context.Context, ev model.AuditEvent) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	return appendEvent(ctx, w.appender, w.writeTimeout, ev)
}

func appendEvent(ctx context.Context, appender Appender, timeout time.Duration, ev model.AuditEvent) error { //nolint:gocritic // hugeParam
	start := time.Now()
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := appender.AppendAuditEvent(writeCtx, ev)
	metrics.RecordAuditWrite(time.Since(start).Seconds(), err)
	if err != nil {
		metrics.RecordErrorByComponent("audit_writer", "append")
		return fmt.Errorf("append audit event %s: %w", ev.ID, err)
	}
	return nil
}
