package repository

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory = memoryBackend
	BackendFile   = fileBackend
	BackendMongo  = mongoBackend
)

// Settings selects and configures a backend.
type Settings struct {
	Backend       string
	DataDir       string
	LockTimeout   time.Duration
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration
}

// Open builds the Store named by s.Backend.
func Open(ctx context.Context, s Settings) (Store, error) {
	switch s.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile, "":
		return NewFileStore(s.DataDir, WithLockTimeout(s.LockTimeout))
	case BackendMongo:
		return NewMongoStore(ctx, s.MongoURI, s.MongoDatabase, WithOperationTimeout(s.MongoTimeout))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}
