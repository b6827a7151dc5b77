package worker

import (
	"time"

	"github.com/okian/starboard/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.writeTimeout = d
		}
	}
}

type sinkConfig struct {
	capacity     int
	writeTimeout time.Duration
}

// SinkOption configures a Sink.
type SinkOption func(*sinkConfig)

// WithQueueCapacity sets how many events may wait for the writer.
func WithQueueCapacity(n int) SinkOption {
	return func(c *sinkConfig) { c.capacity = n }
}

// WithSinkWriteTimeout bounds each store write made by the sink.
func WithSinkWriteTimeout(d time.Duration) SinkOption {
	return func(c *sinkConfig) { c.writeTimeout = d }
}
