// Package orchestrator coordinates the runtime subsystems: it starts them in
// dependency order, applies configuration reloads atomically across them, and
// tears everything down exactly once on shutdown.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"bongocat/internal/audit"
	"bongocat/internal/config"
	"bongocat/internal/logging"
)

// State tracks the orchestrator lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateInitializing
	StateRunning
	StateReloading
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateReloading:
		return "reloading"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotRunning is returned by Reload when the orchestrator is not in a state
// that can accept a reload.
var ErrNotRunning = errors.New("orchestrator: not running")

// Renderer is the overlay drawing subsystem.
type Renderer interface {
	Reconfigure(*config.Snapshot) error
	Close() error
}

// Animator drives the sprite frame clock.
type Animator interface {
	Start() error
	Reconfigure(*config.Snapshot) error
	Stop()
}

// InputMonitor watches keyboard devices.
type InputMonitor interface {
	Start(devices []string) error
	Restart(devices []string)
	Stop()
}

// Stopper is anything shut down by a bare Stop, like the config watcher.
type Stopper interface {
	Stop()
}

// Releaser frees an external resource at the very end of shutdown, like the
// process lock.
type Releaser interface {
	Release()
}

// Options wires the orchestrator. Renderer, Animator, and InputMonitor are
// required; Journal, Watcher, and Lock may be nil.
type Options struct {
	ConfigPath string
	Live       *config.Live
	Renderer   Renderer
	Animator   Animator
	Input      InputMonitor
	Journal    *audit.Journal
	Lock       Releaser
	Logger     *slog.Logger
}

// Orchestrator owns subsystem lifecycle and reload coordination.
type Orchestrator struct {
	cfgPath  string
	live     *config.Live
	renderer Renderer
	animator Animator
	input    InputMonitor
	journal  *audit.Journal
	lock     Releaser
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	watcher Stopper

	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates the wiring and returns an orchestrator in StateNotStarted.
func New(opts Options) (*Orchestrator, error) {
	if opts.Live == nil {
		return nil, fmt.Errorf("orchestrator: live config is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("orchestrator: renderer is required")
	}
	if opts.Animator == nil {
		return nil, fmt.Errorf("orchestrator: animator is required")
	}
	if opts.Input == nil {
		return nil, fmt.Errorf("orchestrator: input monitor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfgPath:  opts.ConfigPath,
		live:     opts.Live,
		renderer: opts.Renderer,
		animator: opts.Animator,
		input:    opts.Input,
		journal:  opts.Journal,
		lock:     opts.Lock,
		logger:   logger.With(logging.String(logging.FieldComponent, "orchestrator")),
	}, nil
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SetWatcher attaches the config watcher so Shutdown stops it first. Called
// after Init because the watcher's callback needs the orchestrator.
func (o *Orchestrator) SetWatcher(w Stopper) {
	o.mu.Lock()
	o.watcher = w
	o.mu.Unlock()
}

// Init starts the subsystems in order: animator, then input readers. A
// failure unwinds whatever already started and leaves the orchestrator
// terminated.
func (o *Orchestrator) Init(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateNotStarted {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: init from state %s", state)
	}
	o.state = StateInitializing
	o.mu.Unlock()

	snap := o.live.Current()

	if err := o.animator.Start(); err != nil {
		o.failInit(ctx, "animator", err)
		return fmt.Errorf("orchestrator: start animator: %w", err)
	}
	if err := o.input.Start(snap.Devices); err != nil {
		o.animator.Stop()
		o.failInit(ctx, "input", err)
		return fmt.Errorf("orchestrator: start input monitor: %w", err)
	}

	o.mu.Lock()
	o.state = StateRunning
	o.mu.Unlock()

	o.logger.Info("runtime started",
		logging.Int("fps", snap.FPS),
		logging.Int("devices", len(snap.Devices)))
	o.journal.Record(ctx, audit.EventStartup,
		fmt.Sprintf("devices=%s fps=%d", strings.Join(snap.Devices, ","), snap.FPS))
	return nil
}

func (o *Orchestrator) failInit(ctx context.Context, component string, err error) {
	o.mu.Lock()
	o.state = StateTerminated
	o.mu.Unlock()
	o.logger.Error("startup failed",
		logging.String(logging.FieldComponent, component),
		logging.Error(err))
}

// Reload re-reads the configuration file and publishes the new snapshot to
// every subsystem. A parse failure leaves the running configuration
// untouched. Concurrent reloads are serialized by the watcher's single-flight
// callback; a reload racing shutdown is rejected.
func (o *Orchestrator) Reload(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateRunning {
		state := o.state
		o.mu.Unlock()
		if state == StateShuttingDown || state == StateTerminated {
			return ErrNotRunning
		}
		return fmt.Errorf("orchestrator: reload from state %s: %w", state, ErrNotRunning)
	}
	o.state = StateReloading
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if o.state == StateReloading {
			o.state = StateRunning
		}
		o.mu.Unlock()
	}()

	next, report, err := config.Load(o.cfgPath)
	if err != nil {
		o.logger.Warn("reload failed, keeping current configuration",
			logging.String(logging.FieldPath, o.cfgPath),
			logging.Error(err))
		o.journal.Record(ctx, audit.EventReloadFailed, err.Error())
		return fmt.Errorf("orchestrator: reload: %w", err)
	}
	for _, w := range report.Warnings {
		o.logger.Warn("config warning",
			logging.String(logging.FieldPath, o.cfgPath),
			logging.Int(logging.FieldLine, w.Line),
			logging.String("detail", w.Message))
	}

	prev := o.live.Replace(next)
	devicesChanged := !config.DevicesEqual(prev.Devices, next.Devices)

	if err := o.renderer.Reconfigure(next); err != nil {
		o.logger.Warn("renderer reconfigure failed", logging.Error(err))
	}
	if err := o.animator.Reconfigure(next); err != nil {
		o.logger.Warn("animator reconfigure failed", logging.Error(err))
	}
	if devicesChanged {
		o.input.Restart(next.Devices)
		o.journal.Record(ctx, audit.EventDeviceChange, strings.Join(next.Devices, ","))
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldPath, o.cfgPath),
		logging.Int("warnings", len(report.Warnings)),
		logging.Bool("devices_changed", devicesChanged),
	}
	if devicesChanged {
		attrs = append(attrs, logging.String("devices", strings.Join(next.Devices, ",")))
	}
	o.logger.Info("configuration reloaded", logging.Args(attrs...)...)
	o.journal.Record(ctx, audit.EventConfigReload,
		fmt.Sprintf("warnings=%d devices_changed=%t", len(report.Warnings), devicesChanged))
	return nil
}

// Shutdown tears the runtime down in reverse start order: watcher, animator,
// renderer, input readers, journal, and finally the process lock. Later calls
// return the first result.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		o.state = StateShuttingDown
		watcher := o.watcher
		o.mu.Unlock()

		o.logger.Info("shutting down")
		if watcher != nil {
			watcher.Stop()
		}
		o.animator.Stop()

		var errs []error
		if err := o.renderer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close renderer: %w", err))
		}
		o.input.Stop()

		o.journal.Record(ctx, audit.EventShutdown, "")
		if err := o.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
		if o.lock != nil {
			o.lock.Release()
		}

		o.mu.Lock()
		o.state = StateTerminated
		o.mu.Unlock()

		o.shutdownErr = errors.Join(errs...)
		if o.shutdownErr != nil {
			o.logger.Warn("shutdown finished with errors", logging.Error(o.shutdownErr))
		} else {
			o.logger.Info("shutdown complete")
		}
	})
	return o.shutdownErr
}
