package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrClosed         = errors.New("store is closed")
	ErrLockTimeout    = errors.New("timed out waiting for data directory lock")
	ErrUnknownBackend = errors.New("unknown storage backend")
)
