// Package proclock enforces single-instance execution through an exclusive
// advisory lock on a well-known PID file, and provides the liveness probing
// and graceful-stop control the toggle mode is built on.
package proclock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// DefaultPath is the conventional lock location shared by every invocation.
const DefaultPath = "/tmp/bongocat.pid"

// DefaultGracePeriod bounds how long Stop waits for a graceful exit before
// force-killing.
const DefaultGracePeriod = 5 * time.Second

const livenessPollInterval = 100 * time.Millisecond

// ErrAlreadyRunning reports lock contention: another live instance holds the
// PID file. It is distinct from I/O failure so callers can exit with the
// dedicated "already running" message.
var ErrAlreadyRunning = errors.New("another bongocat instance is already running")

// Handle owns the acquired lock for the process lifetime. Release is safe to
// call on every exit path, including more than once.
type Handle struct {
	path string
	lock *flock.Flock

	mu       sync.Mutex
	released bool
}

// Acquire creates or opens the PID file at path and takes a non-blocking
// exclusive lock. Contention yields ErrAlreadyRunning without blocking. On
// success the current PID is written and the lock is held until Release (or
// process exit, whichever comes first).
func Acquire(path string) (*Handle, error) {
	if path == "" {
		path = DefaultPath
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock pid file %q: %w", path, err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	pid := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(pid), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("write pid file %q: %w", path, err)
	}

	return &Handle{path: path, lock: lock}, nil
}

// Path returns the locked PID file location.
func (h *Handle) Path() string {
	return h.path
}

// Release unlinks the PID file and drops the lock. Idempotent.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	_ = os.Remove(h.path)
	_ = h.lock.Unlock()
}

// FindRunning reads the PID file at path and probes the recorded process for
// liveness. A PID file pointing at a dead process is removed so a stale lock
// never wedges future startups.
func FindRunning(path string) (int, bool) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	if processAlive(pid) {
		return pid, true
	}

	// Stale PID file; self-heal.
	_ = os.Remove(path)
	return 0, false
}

// Stop asks pid to terminate gracefully, polling liveness every 100 ms up to
// grace, then force-kills. The returned bool reports whether the process
// exited within the grace period.
func Stop(pid int, grace time.Duration) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid pid %d", pid)
	}
	if pid == os.Getpid() {
		return false, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return false, fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return true, nil
		}
		time.Sleep(livenessPollInterval)
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return false, fmt.Errorf("force kill pid %d: %w", pid, err)
	}
	return false, nil
}

// processAlive probes pid with signal 0. EPERM means the process exists but
// belongs to another user, which still counts as alive.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
