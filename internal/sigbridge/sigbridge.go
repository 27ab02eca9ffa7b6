// Package sigbridge translates OS signals into two race-safe flags: a
// stop request and a child-reap request.
//
// The delivery path does nothing but set atomic flags; logging, reaping, and
// subsystem teardown all happen in the main loop that polls the flags. Within
// the Go runtime the low-level handler is already async-signal-safe, but
// keeping the drain goroutine allocation- and logging-free preserves the same
// discipline: nothing consequential runs in signal context.
package sigbridge

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Bridge owns the process-wide stop and reap flags.
type Bridge struct {
	stop atomic.Bool
	reap atomic.Bool

	ch   chan os.Signal
	done chan struct{}
	once sync.Once
}

// New returns a bridge with both flags cleared. Install must be called before
// signals are observed.
func New() *Bridge {
	return &Bridge{
		ch:   make(chan os.Signal, 8),
		done: make(chan struct{}),
	}
}

// Install registers the signal routing: SIGINT and SIGTERM set the stop flag,
// SIGCHLD sets the reap flag, SIGPIPE is suppressed so a closed log pipe can
// never terminate the overlay.
func (b *Bridge) Install() {
	signal.Ignore(syscall.SIGPIPE)
	signal.Notify(b.ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD)

	go func() {
		for {
			select {
			case sig := <-b.ch:
				// Flag writes only; everything else waits for the
				// main loop's poll.
				if sig == syscall.SIGCHLD {
					b.reap.Store(true)
				} else {
					b.stop.Store(true)
				}
			case <-b.done:
				return
			}
		}
	}()
}

// Uninstall detaches from signal delivery and stops the drain goroutine.
func (b *Bridge) Uninstall() {
	b.once.Do(func() {
		signal.Stop(b.ch)
		close(b.done)
	})
}

// StopRequested reports whether a terminating signal has been observed.
// Repeated signals after the first are no-ops; the flag is never cleared.
func (b *Bridge) StopRequested() bool {
	return b.stop.Load()
}

// RequestStop sets the stop flag programmatically, for failures that should
// take the same cooperative shutdown route as a signal.
func (b *Bridge) RequestStop() {
	b.stop.Store(true)
}

// TakeReap atomically consumes the reap request.
func (b *Bridge) TakeReap() bool {
	return b.reap.Swap(false)
}

// ReapChildren collects every terminated child without blocking and returns
// how many were reaped. Called from the main loop, never from the signal
// drain goroutine.
func ReapChildren() int {
	reaped := 0
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return reaped
		}
		reaped++
	}
}
