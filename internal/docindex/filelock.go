package docindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrLockTimeout indicates the lock acquisition timed out
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrLockWouldBlock indicates the lock is held by another process
	ErrLockWouldBlock = errors.New("lock is held by another process")
)

const (
	minLockPoll = 10 * time.Millisecond
	maxLockPoll = 500 * time.Millisecond
)

// FileLock is an exclusive advisory lock backed by flock(2).
// It coordinates indexing between server processes sharing one base
// directory; the kernel releases it when the holder exits.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock at path. The file and its parent directories
// are created on first use.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock attempts to acquire the lock without blocking. It reports false
// with a nil error when another process holds it.
func (l *FileLock) TryLock() (bool, error) {
	err := l.flock()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrLockWouldBlock):
		l.release()
		return false, nil
	default:
		l.release()
		return false, err
	}
}

// Lock blocks until the lock is acquired or timeout expires.
func (l *FileLock) Lock(timeout time.Duration) error {
	return l.LockWithContext(context.Background(), timeout)
}

// LockWithContext blocks until the lock is acquired, timeout expires or ctx is
// done. Polling backs off exponentially between attempts.
func (l *FileLock) LockWithContext(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	poll := minLockPoll
	for {
		err := l.flock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockWouldBlock) {
			l.release()
			return err
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.release()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrLockTimeout
			}
			return ctx.Err()
		case <-timer.C:
			poll = min(poll*2, maxLockPoll)
		}
	}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsLocked reports whether this instance holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// flock opens the lock file if needed and makes one non-blocking attempt.
func (l *FileLock) flock() error {
	if err := l.open(); err != nil {
		return err
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrLockWouldBlock
	}
	return fmt.Errorf("flock failed: %w", err)
}

func (l *FileLock) open() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	l.file = file
	return nil
}

func (l *FileLock) release() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
