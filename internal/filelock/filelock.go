// Package filelock serializes writers of shared files across processes and
// replaces file contents atomically.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// retryDelay is how often a blocked Lock polls for the lock
const retryDelay = 50 * time.Millisecond

// FileLock wraps a flock file lock guarding a single target file.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// New returns the lock guarding target. The lock lives in target + ".lock".
func New(target string) *FileLock {
	path := target + ".lock"
	return &FileLock{flock: flock.New(path), path: path}
}

// Lock blocks until the exclusive lock is held or ctx is done.
func (fl *FileLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", fl.path, err)
	}
	locked, err := fl.flock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", fl.path)
	}
	return nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// AtomicWrite replaces path with data via a temp file in the same directory
// and a rename, so readers see either the old or the new contents.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	// renamed; nothing left to clean up
	tempFile = nil
	return nil
}

// Update runs a locked read-modify-write of path. fn receives the current
// contents (nil when the file does not exist yet) and returns the new ones.
func Update(ctx context.Context, path string, fn func(current []byte) ([]byte, error)) error {
	lock := New(path)
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()

	current, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	return AtomicWrite(path, next)
}
