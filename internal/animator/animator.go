// Package animator advances the cat sprite. An idle frame is shown until a
// keypress arrives, which plays the active animation frames for the
// configured hold duration. An optional periodic test animation keeps the
// overlay visibly alive when no input devices produce events.
package animator

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bongocat/internal/config"
	"bongocat/internal/logging"
	"bongocat/internal/render"
)

// FrameSink receives frames to present. *render.Renderer satisfies it.
type FrameSink interface {
	Submit(frame render.Frame)
}

// Animator drives the frame clock. Configuration is re-read from the live
// snapshot every tick, so FPS, animation, and duration changes take effect
// without restarting the loop.
type Animator struct {
	live   *config.Live
	sink   FrameSink
	logger *slog.Logger

	// activeUntil is the wall-clock deadline (UnixNano) until which keypress
	// animation frames play instead of the idle frame. Zero means idle.
	activeUntil atomic.Int64

	mu           sync.Mutex
	frameCursor  int
	lastTestAnim time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool
}

// New wires an animator to the live configuration and a frame sink.
func New(live *config.Live, sink FrameSink, logger *slog.Logger) (*Animator, error) {
	if live == nil {
		return nil, fmt.Errorf("animator: live config is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("animator: frame sink is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Animator{
		live:   live,
		sink:   sink,
		logger: logger.With(logging.String(logging.FieldComponent, "animator")),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the frame loop. Calling Start twice is an error.
func (a *Animator) Start() error {
	if !a.started.CompareAndSwap(false, true) {
		return fmt.Errorf("animator: already started")
	}
	a.mu.Lock()
	a.lastTestAnim = time.Now()
	a.mu.Unlock()
	go a.loop()
	return nil
}

// Keypress marks input activity: the active animation plays until the
// configured hold duration elapses. Safe from any goroutine.
func (a *Animator) Keypress() {
	snap := a.live.Current()
	hold := time.Duration(snap.KeypressDuration) * time.Millisecond
	deadline := time.Now().Add(hold).UnixNano()
	// Extend, never shorten: rapid keypresses keep pushing the deadline out.
	for {
		cur := a.activeUntil.Load()
		if cur >= deadline {
			return
		}
		if a.activeUntil.CompareAndSwap(cur, deadline) {
			return
		}
	}
}

// Reconfigure is called after a config swap. The loop reads the live snapshot
// every tick, so only the test-animation timer needs resetting here.
func (a *Animator) Reconfigure(*config.Snapshot) error {
	a.mu.Lock()
	a.lastTestAnim = time.Now()
	a.mu.Unlock()
	return nil
}

// Stop halts the frame loop and waits for it to exit. Safe to call more than
// once, including before Start.
func (a *Animator) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	if a.started.Load() {
		<-a.done
	}
}

func (a *Animator) loop() {
	defer close(a.done)

	snap := a.live.Current()
	ticker := time.NewTicker(frameInterval(snap.FPS))
	defer ticker.Stop()
	lastFPS := snap.FPS

	for {
		select {
		case <-a.stop:
			return
		case now := <-ticker.C:
			snap = a.live.Current()
			if snap.FPS != lastFPS {
				ticker.Reset(frameInterval(snap.FPS))
				lastFPS = snap.FPS
				a.logger.Debug("frame rate changed", logging.Int("fps", snap.FPS))
			}
			a.maybeStartTestAnimation(now, snap)
			a.sink.Submit(a.nextFrame(now, snap))
		}
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}

// maybeStartTestAnimation triggers a short animation burst when the idle
// interval elapsed. Interval zero disables the feature.
func (a *Animator) maybeStartTestAnimation(now time.Time, snap *config.Snapshot) {
	if snap.TestAnimationInterval <= 0 {
		return
	}
	a.mu.Lock()
	due := now.Sub(a.lastTestAnim) >= time.Duration(snap.TestAnimationInterval)*time.Second
	if due {
		a.lastTestAnim = now
	}
	a.mu.Unlock()
	if !due {
		return
	}
	if a.activeUntil.Load() >= now.UnixNano() {
		// Real input is already animating; skip the synthetic burst.
		return
	}
	burst := time.Duration(snap.TestAnimationDuration) * time.Millisecond
	deadline := now.Add(burst).UnixNano()
	for {
		cur := a.activeUntil.Load()
		if cur >= deadline || a.activeUntil.CompareAndSwap(cur, deadline) {
			return
		}
	}
}

// nextFrame picks the frame for this tick: cycling animation frames while
// active, the configured idle frame otherwise.
func (a *Animator) nextFrame(now time.Time, snap *config.Snapshot) render.Frame {
	anim := config.AnimationAt(snap.AnimationIndex)
	if now.UnixNano() >= a.activeUntil.Load() {
		a.mu.Lock()
		a.frameCursor = 0
		a.mu.Unlock()
		return render.Frame{Animation: snap.AnimationIndex, Index: snap.IdleFrame}
	}
	a.mu.Lock()
	idx := a.frameCursor % anim.Frames
	a.frameCursor++
	a.mu.Unlock()
	return render.Frame{Animation: snap.AnimationIndex, Index: idx}
}
