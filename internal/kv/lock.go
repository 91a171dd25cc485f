package kv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

// DirLock is a cross-process lock on a data directory. The index has a
// single writer; a second indexing process fails fast instead of interleaving.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock whose file lives at <dir>/.cognito.lock.
func NewDirLock(dir string) *DirLock {
	lockPath := filepath.Join(dir, ".cognito.lock")
	return &DirLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking.
// A lock held by another process yields an ErrCodeLocked error.
func (l *DirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return cerrors.New(cerrors.ErrCodeLocked, "data directory is in use by another cognito process", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other process (watch or serve) or use a different data_dir")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}

// IsLocked reports whether this process holds the lock.
func (l *DirLock) IsLocked() bool {
	return l.locked
}
