package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquire(t *testing.T) {
	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := Acquire(context.Background(), dir)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer lock.Release()

		if lock.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %v", lock.Path())
		}
		data, err := os.ReadFile(lock.Path())
		if err != nil {
			t.Fatalf("lock file not created: %v", err)
		}
		if !strings.HasPrefix(string(data), "pid=") {
			t.Errorf("lock data = %q, want pid line", data)
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := Acquire(context.Background(), dir)
		if err != nil {
			t.Fatalf("first Acquire failed: %v", err)
		}
		defer lock1.Release()

		_, err = Acquire(context.Background(), dir)
		if !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Acquire(ctx, t.TempDir())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "third_party")

		lock, err := Acquire(context.Background(), dir)
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory not created: %v", err)
		}
	})

	t.Run("replaces stale lock", func(t *testing.T) {
		dir := t.TempDir()
		lockPath := filepath.Join(dir, FileName)
		if err := os.WriteFile(lockPath, []byte("pid=1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		old := time.Now().Add(-2 * StaleLockThreshold)
		if err := os.Chtimes(lockPath, old, old); err != nil {
			t.Fatal(err)
		}

		lock, err := Acquire(context.Background(), dir)
		if err != nil {
			t.Fatalf("Acquire over stale lock failed: %v", err)
		}
		defer lock.Release()
	})

	t.Run("keeps fresh foreign lock", func(t *testing.T) {
		dir := t.TempDir()
		lockPath := filepath.Join(dir, FileName)
		if err := os.WriteFile(lockPath, []byte("pid=1\n"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := Acquire(context.Background(), dir); !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
		if _, err := os.Stat(lockPath); err != nil {
			t.Errorf("foreign lock removed: %v", err)
		}
	})
}

func TestLock_Release(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	path := lock.Path()

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file should be removed")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release failed: %v", err)
	}

	lock2, err := Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("re-Acquire after Release failed: %v", err)
	}
	lock2.Release()
}

func TestIsLockStale(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(lockPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if stale, _ := isLockStale(lockPath, time.Now()); stale {
		t.Error("fresh lock reported stale")
	}
	if stale, _ := isLockStale(lockPath, time.Now().Add(StaleLockThreshold+time.Minute)); !stale {
		t.Error("old lock not reported stale")
	}
	if _, err := isLockStale(filepath.Join(t.TempDir(), "missing"), time.Now()); err == nil {
		t.Error("expected error for missing lock")
	}
}
