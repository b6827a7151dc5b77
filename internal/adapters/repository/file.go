package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/starboard/internal/domain/model"
)

const fileBackend = "file"

// File names inside the data directory.
const (
	CoordinatorsFile = "coordinators.json"
	BoardsFile       = "boards.json"
	AuditFile        = "audit.jsonl"
	LeadsFile        = "leads.json"
	lockFile         = ".starboard.lock"
)

const (
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 20 * time.Millisecond
)

// FileStore keeps JSON documents in a data directory. Writes go to a temp
// file that is renamed into place, and a lock file serializes processes
// sharing the directory. Missing files read as empty.
type FileStore struct {
	dir         string
	mu          sync.Mutex
	lock        *flock.Flock
	lockTimeout time.Duration
}

// NewFileStore opens (creating if needed) the data directory dir.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s := &FileStore{
		dir:         dir,
		lock:        flock.New(filepath.Join(dir, lockFile)),
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Store.
func (s *FileStore) Name() string { return fileBackend }

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// LoadCoordinators implements Store.
func (s *FileStore) LoadCoordinators(ctx context.Context) (out []model.Coordinator, err error) {
	defer func(start time.Time) { observe(fileBackend, "load_coordinators", start, err) }(time.Now())
	out = []model.Coordinator{}
	err = s.withLock(ctx, true, func() error {
		return s.readJSON(CoordinatorsFile, &out)
	})
	return out, err
}

// SaveCoordinators implements Store.
func (s *FileStore) SaveCoordinators(ctx context.Context, coords []model.Coordinator) (err error) {
	defer func(start time.Time) { observe(fileBackend, "save_coordinators", start, err) }(time.Now())
	if coords == nil {
		coords = []model.Coordinator{}
	}
	return s.withLock(ctx, false, func() error {
		return s.writeJSON(CoordinatorsFile, coords)
	})
}

// LoadBoards implements Store.
func (s *FileStore) LoadBoards(ctx context.Context) (out []model.MonthlyBoard, err error) {
	defer func(start time.Time) { observe(fileBackend, "load_boards", start, err) }(time.Now())
	out = []model.MonthlyBoard{}
	err = s.withLock(ctx, true, func() error {
		return s.readJSON(BoardsFile, &out)
	})
	model.SortBoards(out)
	return out, err
}

// SaveBoards implements Store.
func (s *FileStore) SaveBoards(ctx context.Context, boards []model.MonthlyBoard) (err error) {
	defer func(start time.Time) { observe(fileBackend, "save_boards", start, err) }(time.Now())
	sorted := model.CloneBoards(boards)
	if sorted == nil {
		sorted = []model.MonthlyBoard{}
	}
	model.SortBoards(sorted)
	return s.withLock(ctx, false, func() error {
		return s.writeJSON(BoardsFile, sorted)
	})
}

// AppendAuditEvent implements Store.
func (s *FileStore) AppendAuditEvent(ctx context.Context, ev model.AuditEvent) (err error) {
	defer func(start time.Time) { observe(fileBackend, "append_audit", start, err) }(time.Now())
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	line = append(line, '\n')
	return s.withLock(ctx, false, func() error {
		f, err := os.OpenFile(s.path(AuditFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path inside data dir
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		if _, err := f.Write(line); err != nil {
			_ = f.Close()
			return fmt.Errorf("appending audit log: %w", err)
		}
		return f.Close()
	})
}

// ListAuditEvents implements Store.
func (s *FileStore) ListAuditEvents(ctx context.Context, limit int) (out []model.AuditEvent, err error) {
	defer func(start time.Time) { observe(fileBackend, "list_audit", start, err) }(time.Now())
	var all []model.AuditEvent
	err = s.withLock(ctx, true, func() error {
		data, err := os.ReadFile(s.path(AuditFile))
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading audit log: %w", err)
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for n := 1; sc.Scan(); n++ {
			raw := bytes.TrimSpace(sc.Bytes())
			if len(raw) == 0 {
				continue
			}
			var ev model.AuditEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				return fmt.Errorf("parsing audit log line %d: %w", n, err)
			}
			all = append(all, ev)
		}
		return sc.Err()
	})
	if err != nil {
		return nil, err
	}
	return newestFirst(all, limit), nil
}

// UpsertLeadLogs implements Store.
func (s *FileStore) UpsertLeadLogs(ctx context.Context, logs []model.LeadLog) (err error) {
	defer func(start time.Time) { observe(fileBackend, "upsert_leads", start, err) }(time.Now())
	if len(logs) == 0 {
		return nil
	}
	return s.withLock(ctx, false, func() error {
		var existing []model.LeadLog
		if err := s.readJSON(LeadsFile, &existing); err != nil {
			return err
		}
		byKey := make(map[string]model.LeadLog, len(existing)+len(logs))
		for _, l := range existing {
			byKey[l.Key()] = l
		}
		for _, l := range logs {
			byKey[l.Key()] = l
		}
		merged := make([]model.LeadLog, 0, len(byKey))
		for _, l := range byKey {
			merged = append(merged, l)
		}
		sortLeads(merged)
		return s.writeJSON(LeadsFile, merged)
	})
}

// ListLeadLogs implements Store.
func (s *FileStore) ListLeadLogs(ctx context.Context) (out []model.LeadLog, err error) {
	defer func(start time.Time) { observe(fileBackend, "list_leads", start, err) }(time.Now())
	out = []model.LeadLog{}
	err = s.withLock(ctx, true, func() error {
		return s.readJSON(LeadsFile, &out)
	})
	sortLeads(out)
	return out, err
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Close()
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// withLock runs fn holding the in-process mutex and the lock file, shared
// for reads and exclusive for writes.
func (s *FileStore) withLock(ctx context.Context, shared bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = s.lock.TryRLockContext(lctx, lockRetryDelay)
	} else {
		ok, err = s.lock.TryLockContext(lctx, lockRetryDelay)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return fmt.Errorf("locking data directory: %w", err)
	}
	if !ok {
		return ErrLockTimeout
	}
	defer func() { _ = s.lock.Unlock() }()

	return fn()
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
