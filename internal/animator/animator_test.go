package animator_test

import (
	"sync"
	"testing"
	"time"

	"bongocat/internal/animator"
	"bongocat/internal/config"
	"bongocat/internal/logging"
	"bongocat/internal/render"
)

// captureSink records every submitted frame.
type captureSink struct {
	mu     sync.Mutex
	frames []render.Frame
}

func (c *captureSink) Submit(frame render.Frame) {
	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()
}

func (c *captureSink) snapshot() []render.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]render.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func testSnapshot() *config.Snapshot {
	s := config.Default()
	s.FPS = 120
	s.KeypressDuration = 200
	s.TestAnimationInterval = 0
	s.Validate()
	return &s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func startAnimator(t *testing.T, live *config.Live, sink animator.FrameSink) *animator.Animator {
	t.Helper()
	a, err := animator.New(live, sink, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Stop)
	return a
}

func TestIdleShowsIdleFrame(t *testing.T) {
	snap := testSnapshot()
	snap.IdleFrame = 1
	live := config.NewLive(snap)
	sink := &captureSink{}
	startAnimator(t, live, sink)

	if !waitFor(t, 2*time.Second, func() bool { return sink.count() >= 5 }) {
		t.Fatal("no frames produced")
	}
	for _, f := range sink.snapshot() {
		if f.Index != 1 {
			t.Fatalf("idle loop produced frame %d, want idle frame 1", f.Index)
		}
	}
}

func TestKeypressCyclesFrames(t *testing.T) {
	live := config.NewLive(testSnapshot())
	sink := &captureSink{}
	a := startAnimator(t, live, sink)

	a.Keypress()
	if !waitFor(t, 2*time.Second, func() bool { return sink.count() >= 10 }) {
		t.Fatal("no frames produced")
	}

	seen := map[int]bool{}
	for _, f := range sink.snapshot() {
		seen[f.Index] = true
	}
	// With a 200ms hold at 120fps the full 4-frame cycle should appear.
	for i := 0; i < 4; i++ {
		if !seen[i] {
			t.Fatalf("frame %d never presented during keypress animation: %v", i, seen)
		}
	}
}

func TestReturnsToIdleAfterHold(t *testing.T) {
	snap := testSnapshot()
	snap.KeypressDuration = 50
	live := config.NewLive(snap)
	sink := &captureSink{}
	a := startAnimator(t, live, sink)

	a.Keypress()
	time.Sleep(200 * time.Millisecond)

	// Frames after the hold expired must all be the idle frame.
	before := sink.count()
	if !waitFor(t, 2*time.Second, func() bool { return sink.count() >= before+5 }) {
		t.Fatal("loop stalled after keypress expired")
	}
	tail := sink.snapshot()[before:]
	for _, f := range tail {
		if f.Index != snap.IdleFrame {
			t.Fatalf("expected idle frame %d after hold, got %d", snap.IdleFrame, f.Index)
		}
	}
}

func TestConfigSwapChangesAnimation(t *testing.T) {
	live := config.NewLive(testSnapshot())
	sink := &captureSink{}
	a := startAnimator(t, live, sink)

	next := *live.Current()
	idx, ok := config.AnimationByName("agumon")
	if !ok {
		t.Fatal("agumon animation missing from registry")
	}
	next.AnimationIndex = idx
	next.Validate()
	live.Replace(&next)
	if err := a.Reconfigure(&next); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		frames := sink.snapshot()
		return len(frames) > 0 && frames[len(frames)-1].Animation == idx
	}) {
		t.Fatal("swapped animation never reached the sink")
	}
}

func TestTestAnimationFiresWhenIdle(t *testing.T) {
	snap := testSnapshot()
	snap.TestAnimationInterval = 1
	snap.TestAnimationDuration = 100
	live := config.NewLive(snap)
	sink := &captureSink{}
	startAnimator(t, live, sink)

	// Within a couple of seconds the synthetic burst should produce a
	// non-idle frame with no Keypress call at all.
	if !waitFor(t, 4*time.Second, func() bool {
		for _, f := range sink.snapshot() {
			if f.Index != snap.IdleFrame {
				return true
			}
		}
		return false
	}) {
		t.Fatal("test animation never fired")
	}
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	a, err := animator.New(config.NewLive(testSnapshot()), &captureSink{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	a.Stop()
	a.Stop()
}
