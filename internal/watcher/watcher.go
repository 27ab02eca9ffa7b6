// Package watcher observes a single configuration file and coalesces change
// notifications into reload callbacks. It combines inotify events (via
// fsnotify, watching the parent directory so editor rename-and-replace saves
// are still seen) with a stat-based polling fallback for filesystems where
// inotify is unreliable.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bongocat/internal/logging"
)

// DefaultPollInterval is the stat cadence for the polling fallback.
const DefaultPollInterval = 2 * time.Second

// Watcher monitors one file and invokes a callback when it changes. Callback
// invocations are single-flight: notifications arriving while a callback runs
// set a dirty bit and coalesce into exactly one follow-up call.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func()
	logger   *slog.Logger

	fs *fsnotify.Watcher

	mu       sync.Mutex
	inFlight bool
	dirty    bool

	lastMod  time.Time
	lastSize int64
	existed  bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Options tunes watcher behavior. Zero values select defaults.
type Options struct {
	// PollInterval overrides the stat polling cadence.
	PollInterval time.Duration
	// Logger receives watch lifecycle and error events.
	Logger *slog.Logger
}

// New prepares a watcher for path. onChange runs on a watcher-owned goroutine;
// it must re-read the file itself so coalesced notifications still observe the
// latest content.
func New(path string, onChange func(), opts Options) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watcher: path is required")
	}
	if onChange == nil {
		return nil, fmt.Errorf("watcher: change callback is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve %s: %w", path, err)
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		path:     abs,
		interval: interval,
		onChange: onChange,
		logger:   logger.With(logging.String(logging.FieldComponent, "watcher")),
		stop:     make(chan struct{}),
	}, nil
}

// Start records the file's current state and begins watching. The inotify
// layer is best effort: if the kernel watch cannot be established the watcher
// runs on polling alone.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.path)
	switch {
	case err == nil:
		w.lastMod = info.ModTime()
		w.lastSize = info.Size()
		w.existed = true
	case os.IsNotExist(err):
		w.existed = false
	default:
		return fmt.Errorf("watcher: stat %s: %w", w.path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := fs.Add(filepath.Dir(w.path)); addErr != nil {
			fs.Close()
			fs = nil
			w.logger.Warn("inotify watch unavailable, polling only",
				logging.String(logging.FieldPath, w.path),
				logging.Error(addErr))
		}
	} else {
		fs = nil
		w.logger.Warn("inotify unavailable, polling only", logging.Error(err))
	}
	w.fs = fs

	w.wg.Add(1)
	go w.run()
	w.logger.Info("watching config file",
		logging.String(logging.FieldPath, w.path),
		logging.Duration("poll_interval", w.interval))
	return nil
}

// Stop halts watching and waits for the event loop and any in-flight callback
// to finish. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fs != nil {
		defer w.fs.Close()
		events = w.fs.Events
		errs = w.fs.Errors
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !w.matches(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
				w.refreshStat()
				w.trigger()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("inotify error", logging.Error(err))
		case <-ticker.C:
			if w.changedSinceLastStat() {
				w.trigger()
			}
		}
	}
}

func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return abs == w.path
}

// changedSinceLastStat compares the file's mtime, size, and existence with the
// last observation and updates the baseline.
func (w *Watcher) changedSinceLastStat() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		if w.existed {
			w.existed = false
			return true
		}
		return false
	}
	changed := !w.existed || !info.ModTime().Equal(w.lastMod) || info.Size() != w.lastSize
	w.existed = true
	w.lastMod = info.ModTime()
	w.lastSize = info.Size()
	return changed
}

// refreshStat re-baselines after an inotify event so the poll ticker does not
// fire a duplicate notification for the same change.
func (w *Watcher) refreshStat() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.existed = false
		return
	}
	w.existed = true
	w.lastMod = info.ModTime()
	w.lastSize = info.Size()
}

// trigger runs the callback single-flight. Notifications during a run mark
// the watcher dirty; the running goroutine loops until the bit clears.
func (w *Watcher) trigger() {
	w.mu.Lock()
	if w.inFlight {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.inFlight = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			w.invoke()
			w.mu.Lock()
			if !w.dirty {
				w.inFlight = false
				w.mu.Unlock()
				return
			}
			w.dirty = false
			w.mu.Unlock()
		}
	}()
}

// invoke isolates callback failures so a panicking reload cannot take the
// watcher down with it.
func (w *Watcher) invoke() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reload callback panicked", logging.Any("panic", r))
		}
	}()
	w.onChange()
}
