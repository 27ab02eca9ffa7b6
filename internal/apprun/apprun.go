// Package apprun assembles and runs the overlay runtime: singleton lock,
// signal handling, subsystem wiring, the optional config watcher, and the
// main supervision loop.
package apprun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bongocat/internal/animator"
	"bongocat/internal/audit"
	"bongocat/internal/config"
	"bongocat/internal/input"
	"bongocat/internal/logging"
	"bongocat/internal/orchestrator"
	"bongocat/internal/proclock"
	"bongocat/internal/render"
	"bongocat/internal/sigbridge"
	"bongocat/internal/watcher"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
)

const supervisePollInterval = 100 * time.Millisecond

// Options controls a runtime invocation.
type Options struct {
	// ConfigPath locates the configuration file. Empty selects the default.
	ConfigPath string
	// WatchConfig enables hot reload of the configuration file.
	WatchConfig bool
	// PollInterval overrides the watcher's stat cadence.
	PollInterval time.Duration
	// LockPath overrides the PID lock location.
	LockPath string
	// JournalPath overrides the audit journal location.
	JournalPath string
	// LogFormat is "console" or "json".
	LogFormat string
	// LogOutput receives log records. Defaults to stdout.
	LogOutput io.Writer
	// Surface overrides the render target. Defaults to an in-memory surface.
	Surface render.Surface
	// Version is stamped into the startup log line.
	Version string
}

// DefaultJournalPath places the journal under the user cache directory,
// falling back to /tmp when none is available.
func DefaultJournalPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "bongocat", "journal.db")
	}
	return "/tmp/bongocat-journal.db"
}

// Run executes the overlay until a stop signal or context cancellation and
// returns the process exit code.
func Run(ctx context.Context, opts Options) int {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	snap, report, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bongocat: load config: %v\n", err)
		return ExitError
	}

	sessionID := uuid.NewString()
	level := "info"
	if snap.EnableDebug {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Level:     level,
		Format:    opts.LogFormat,
		Output:    opts.LogOutput,
		SessionID: sessionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bongocat: configure logging: %v\n", err)
		return ExitError
	}

	logger.Info("starting",
		logging.String("version", opts.Version),
		logging.String(logging.FieldPath, report.Path),
		logging.Bool("config_exists", report.Exists))
	for _, w := range report.Warnings {
		logger.Warn("config warning",
			logging.Int(logging.FieldLine, w.Line),
			logging.String("detail", w.Message))
	}

	lockPath := opts.LockPath
	if lockPath == "" {
		lockPath = proclock.DefaultPath
	}
	lock, err := proclock.Acquire(lockPath)
	if err != nil {
		if errors.Is(err, proclock.ErrAlreadyRunning) {
			logger.Error("another instance is already running",
				logging.String(logging.FieldPath, lockPath))
		} else {
			logger.Error("cannot acquire process lock", logging.Error(err))
		}
		return ExitError
	}

	bridge := sigbridge.New()
	bridge.Install()
	defer bridge.Uninstall()

	journalPath := opts.JournalPath
	if journalPath == "" {
		journalPath = DefaultJournalPath()
	}
	journal, err := audit.Open(journalPath, sessionID, logger)
	if err != nil {
		// The journal is best effort; run without it.
		logger.Warn("audit journal unavailable", logging.Error(err))
		journal = nil
	}

	live := config.NewLive(snap)

	surface := opts.Surface
	if surface == nil {
		surface = render.NewMemorySurface()
	}
	renderer, err := render.New(surface, render.GeometryFromSnapshot(snap), logger)
	if err != nil {
		logger.Error("cannot create renderer", logging.Error(err))
		_ = journal.Close()
		lock.Release()
		return ExitError
	}

	frames, err := animator.New(live, renderer, logger)
	if err != nil {
		logger.Error("cannot create animator", logging.Error(err))
		_ = renderer.Close()
		_ = journal.Close()
		lock.Release()
		return ExitError
	}

	keys, err := input.New(frames.Keypress, logger)
	if err != nil {
		logger.Error("cannot create input monitor", logging.Error(err))
		_ = renderer.Close()
		_ = journal.Close()
		lock.Release()
		return ExitError
	}

	orc, err := orchestrator.New(orchestrator.Options{
		ConfigPath: cfgPath,
		Live:       live,
		Renderer:   renderer,
		Animator:   frames,
		Input:      keys,
		Journal:    journal,
		Lock:       lock,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("cannot assemble runtime", logging.Error(err))
		_ = renderer.Close()
		_ = journal.Close()
		lock.Release()
		return ExitError
	}

	if err := orc.Init(ctx); err != nil {
		logger.Error("startup failed", logging.Error(err))
		_ = renderer.Close()
		_ = journal.Close()
		lock.Release()
		return ExitError
	}

	if opts.WatchConfig {
		w, err := watcher.New(cfgPath, func() {
			if rerr := orc.Reload(context.Background()); rerr != nil &&
				!errors.Is(rerr, orchestrator.ErrNotRunning) {
				logger.Warn("hot reload failed", logging.Error(rerr))
			}
		}, watcher.Options{PollInterval: opts.PollInterval, Logger: logger})
		if err != nil {
			logger.Error("cannot watch config", logging.Error(err))
			_ = orc.Shutdown(ctx)
			return ExitError
		}
		if err := w.Start(); err != nil {
			logger.Error("cannot start config watcher", logging.Error(err))
			_ = orc.Shutdown(ctx)
			return ExitError
		}
		orc.SetWatcher(w)
		journal.Record(ctx, audit.EventWatchStarted, cfgPath)
	}

	supervise(ctx, bridge, journal, logger)

	if err := orc.Shutdown(ctx); err != nil {
		logger.Warn("shutdown reported errors", logging.Error(err))
		return ExitError
	}
	return ExitOK
}

// supervise polls the signal bridge flags until a stop is requested. Child
// reaping and logging happen here, never in the signal handler goroutine.
func supervise(ctx context.Context, bridge *sigbridge.Bridge, journal *audit.Journal, logger *slog.Logger) {
	ticker := time.NewTicker(supervisePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("context cancelled, stopping")
			journal.Record(context.Background(), audit.EventSignalStop, "context")
			return
		case <-ticker.C:
			if bridge.TakeReap() {
				if n := sigbridge.ReapChildren(); n > 0 {
					logger.Debug("reaped child processes", logging.Int("count", n))
					journal.Record(ctx, audit.EventChildReaped, fmt.Sprintf("count=%d", n))
				}
			}
			if bridge.StopRequested() {
				logger.Info("stop signal received")
				journal.Record(ctx, audit.EventSignalStop, "signal")
				return
			}
		}
	}
}
