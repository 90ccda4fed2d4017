package docindex

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// unlockLock is a test helper that unlocks and logs any error
func unlockLock(t *testing.T, lock *FileLock) {
	t.Helper()
	if err := lock.Unlock(); err != nil {
		t.Logf("Warning: Unlock failed: %v", err)
	}
}

func mustTryLock(t *testing.T, lock *FileLock) {
	t.Helper()
	acquired, err := lock.TryLock()
	if err != nil || !acquired {
		t.Fatalf("TryLock() = %v, %v, want true, nil", acquired, err)
	}
}

func TestFileLock_TryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sync.lock")

	first := NewFileLock(lockPath)
	mustTryLock(t, first)
	defer unlockLock(t, first)
	if !first.IsLocked() {
		t.Error("IsLocked() = false, want true")
	}

	second := NewFileLock(lockPath)
	acquired, err := second.TryLock()
	if err != nil {
		t.Fatalf("second TryLock() error = %v", err)
	}
	if acquired {
		t.Error("second TryLock() = true, want false")
		unlockLock(t, second)
	}
	if second.IsLocked() {
		t.Error("second IsLocked() = true, want false")
	}
}

func TestFileLock_Lock_Timeout(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sync.lock")
	holder := NewFileLock(lockPath)
	mustTryLock(t, holder)
	defer unlockLock(t, holder)

	start := time.Now()
	err := NewFileLock(lockPath).Lock(100 * time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Lock() error = %v, want ErrLockTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Lock() returned after %v, want at least 100ms", elapsed)
	}
}

func TestFileLock_Lock_AcquiresAfterRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sync.lock")
	first := NewFileLock(lockPath)
	second := NewFileLock(lockPath)
	mustTryLock(t, first)

	var wg sync.WaitGroup
	var lockErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		lockErr = second.Lock(2 * time.Second)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	wg.Wait()

	if lockErr != nil {
		t.Errorf("Lock() error = %v, want nil", lockErr)
	}
	if !second.IsLocked() {
		t.Error("IsLocked() = false, want true")
	}
	unlockLock(t, second)
}

func TestFileLock_LockWithContext_Cancellation(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sync.lock")
	holder := NewFileLock(lockPath)
	mustTryLock(t, holder)
	defer unlockLock(t, holder)

	ctx, cancel := context.WithCancel(context.Background())
	waiter := NewFileLock(lockPath)

	var wg sync.WaitGroup
	var lockErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		lockErr = waiter.LockWithContext(ctx, 10*time.Second)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	if !errors.Is(lockErr, context.Canceled) {
		t.Errorf("LockWithContext() error = %v, want context.Canceled", lockErr)
	}
	if waiter.IsLocked() {
		t.Error("IsLocked() = true after cancellation")
	}
}

func TestFileLock_Unlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sync.lock")

	lock := NewFileLock(lockPath)
	if err := lock.Unlock(); err != nil {
		t.Errorf("Unlock() on unheld lock error = %v", err)
	}

	mustTryLock(t, lock)
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Errorf("second Unlock() error = %v", err)
	}
	if lock.IsLocked() {
		t.Error("IsLocked() = true after Unlock")
	}

	again := NewFileLock(lockPath)
	mustTryLock(t, again)
	unlockLock(t, again)
}

func TestFileLock_CreatesDirectories(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "nested", "dirs", "sync.lock")

	lock := NewFileLock(lockPath)
	mustTryLock(t, lock)
	defer unlockLock(t, lock)

	info, err := os.Stat(filepath.Dir(lockPath))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Error("parent path is not a directory")
	}
	if lock.Path() != lockPath {
		t.Errorf("Path() = %q, want %q", lock.Path(), lockPath)
	}
}

func TestFileLock_ConcurrentGoroutines(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "concurrent.lock")

	const workers = 8
	const rounds = 4

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		total   int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				lock := NewFileLock(lockPath)
				if err := lock.Lock(5 * time.Second); err != nil {
					t.Errorf("Lock() error = %v", err)
					return
				}
				mu.Lock()
				holders++
				if holders > 1 {
					t.Error("lock held by more than one goroutine")
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				holders--
				total++
				mu.Unlock()
				if err := lock.Unlock(); err != nil {
					t.Errorf("Unlock() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if total != workers*rounds {
		t.Errorf("total = %d, want %d", total, workers*rounds)
	}
}

func TestFileLock_CrossProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping cross-process test in short mode")
	}
	if _, err := exec.LookPath("flock"); err != nil {
		t.Skip("Skipping cross-process test: flock command not available")
	}

	lockPath := filepath.Join(t.TempDir(), "crossprocess.lock")
	probe := func() string {
		out, err := exec.Command("sh", "-c", `flock -n "$1" -c "echo acquired" 2>/dev/null || echo "blocked"`, "_", lockPath).Output()
		if err != nil {
			t.Fatalf("child process failed: %v", err)
		}
		return string(out)
	}

	lock := NewFileLock(lockPath)
	mustTryLock(t, lock)
	if got := probe(); got != "blocked\n" {
		t.Errorf("child while held = %q, want blocked", got)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if got := probe(); got != "acquired\n" {
		t.Errorf("child after release = %q, want acquired", got)
	}
}
