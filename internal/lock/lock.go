// Package lock guards a destination tree against concurrent prebuilt runs.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileName is the lock file created inside the base directory
	FileName = ".prebuilt.lock"
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
)

// ErrLockExists is returned while another run holds the lock
var ErrLockExists = errors.New("prebuilt lock exists: another fetch may be in progress")

// Lock represents a held lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the exclusive lock for baseDir, creating the directory if
// needed. A lock older than StaleLockThreshold is removed and retaken once.
func Acquire(ctx context.Context, baseDir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(baseDir, FileName)

	file, err := create(lockPath)
	if errors.Is(err, os.ErrExist) {
		if stale, _ := isLockStale(lockPath, time.Now()); !stale {
			return nil, ErrLockExists
		}
		_ = os.Remove(lockPath)
		file, err = create(lockPath)
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLockExists
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		path := l.path
		l.path = ""
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}
	return nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
}

// isLockStale checks if a lock file is older than StaleLockThreshold at now.
func isLockStale(lockPath string, now time.Time) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}
	return now.Sub(info.ModTime()) > StaleLockThreshold, nil
}
