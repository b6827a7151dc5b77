package repository

import "time"

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithLockTimeout bounds how long a call waits for the cross-process lock.
func WithLockTimeout(d time.Duration) FileOption {
	return func(s *FileStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithOperationTimeout bounds every Mongo round trip.
func WithOperationTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}
