package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/astromechza/todoboard/pkg/board"
)

const (
	lockTimeout    = 5 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// FileStore keeps the board as a json file. Writes go to a temp file that is
// renamed over the original, and an flock on a sibling .lock file keeps other
// processes from reading a half-finished write.
type FileStore struct {
	path  string
	lists int
	lock  *flock.Flock
}

func NewFileStore(path string, lists int) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &FileStore{path: path, lists: lists, lock: flock.New(path + ".lock")}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (board.Board, error) {
	if err := s.acquireLock(ctx); err != nil {
		return board.Board{}, err
	}
	defer func() { _ = s.lock.Unlock() }()

	raw, found, err := s.read()
	if err != nil {
		return board.Board{}, err
	}
	return resolve(ctx, raw, found, s.lists, s.write)
}

func (s *FileStore) Save(ctx context.Context, b board.Board) error {
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()
	return s.write(ctx, b)
}

// Update holds the file lock across reading, applying fn and writing, so
// processes sharing the file never lose each other's changes.
func (s *FileStore) Update(ctx context.Context, _ string, fn UpdateFunc) (board.Board, error) {
	if err := s.acquireLock(ctx); err != nil {
		return board.Board{}, err
	}
	defer func() { _ = s.lock.Unlock() }()

	raw, found, err := s.read()
	if err != nil {
		return board.Board{}, err
	}
	latest, _ := decodeOrDefault(raw, found, s.lists)
	next, err := fn(latest)
	if err != nil {
		return latest, err
	}
	if err := s.write(ctx, next); err != nil {
		return latest, err
	}
	return next, nil
}

func (s *FileStore) Close() error {
	return s.lock.Close()
}

func (s *FileStore) acquireLock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", s.lock.Path())
	}
	return nil
}

// read must be called with the lock held. found is false when the file does
// not exist yet.
func (s *FileStore) read() ([]byte, bool, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to read board file: %w", err)
	}
	return raw, true, nil
}

// write must be called with the lock held.
func (s *FileStore) write(_ context.Context, b board.Board) error {
	raw, err := Encode(b)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
