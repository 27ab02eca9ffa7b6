package watcher_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bongocat/internal/watcher"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestNewRequiresPathAndCallback(t *testing.T) {
	if _, err := watcher.New("", func() {}, watcher.Options{}); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := watcher.New("x.conf", nil, watcher.Options{}); err == nil {
		t.Fatal("expected error for nil callback")
	}
}

func TestDetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bongocat.conf")
	writeFile(t, path, "fps=60\n")

	var calls atomic.Int64
	w, err := watcher.New(path, func() { calls.Add(1) }, watcher.Options{
		PollInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, path, "fps=30\n")
	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() > 0 }) {
		t.Fatal("write was not observed")
	}
}

func TestDetectsRenameReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bongocat.conf")
	writeFile(t, path, "fps=60\n")

	var calls atomic.Int64
	w, err := watcher.New(path, func() { calls.Add(1) }, watcher.Options{
		PollInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Editor-style atomic save: write sibling, rename over target.
	tmp := filepath.Join(dir, "bongocat.conf.tmp")
	writeFile(t, tmp, "fps=30 # replaced\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() > 0 }) {
		t.Fatal("rename-replace was not observed")
	}
}

func TestDetectsCreationOfMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bongocat.conf")

	var calls atomic.Int64
	w, err := watcher.New(path, func() { calls.Add(1) }, watcher.Options{
		PollInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, path, "fps=30\n")
	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() > 0 }) {
		t.Fatal("file creation was not observed")
	}
}

func TestCoalescesBurstsSingleFlight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bongocat.conf")
	writeFile(t, path, "fps=60\n")

	var mu sync.Mutex
	var running int
	var maxRunning int
	var calls int
	release := make(chan struct{})

	cb := func() {
		mu.Lock()
		running++
		calls++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()
		<-release
		mu.Lock()
		running--
		mu.Unlock()
	}

	w, err := watcher.New(path, cb, watcher.Options{PollInterval: 30 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		writeFile(t, path, "fps=30\n# rev\n")
		writeFile(t, path, "fps=60\n")
		time.Sleep(40 * time.Millisecond)
	}
	// Let the first callback block long enough to absorb the burst, then
	// drain every queued run.
	time.Sleep(200 * time.Millisecond)
	close(release)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if maxRunning != 1 {
		t.Fatalf("callbacks overlapped: max concurrency %d", maxRunning)
	}
	if calls < 1 {
		t.Fatal("expected at least one callback")
	}
	// Ten writes coalesced through the dirty bit; while the first call was
	// blocked only one follow-up should have been queued.
	if calls > 2 {
		t.Fatalf("burst was not coalesced: %d calls", calls)
	}
}

func TestCallbackPanicIsContained(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bongocat.conf")
	writeFile(t, path, "fps=60\n")

	var calls atomic.Int64
	w, err := watcher.New(path, func() {
		calls.Add(1)
		panic("boom")
	}, watcher.Options{PollInterval: 30 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, path, "fps=30\n")
	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() >= 1 }) {
		t.Fatal("first change not observed")
	}

	// The watcher must survive the panic and report subsequent changes.
	first := calls.Load()
	writeFile(t, path, "fps=45\n# again\n")
	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() > first }) {
		t.Fatal("watcher died after callback panic")
	}
}

func TestStopWaitsForInFlightCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bongocat.conf")
	writeFile(t, path, "fps=60\n")

	started := make(chan struct{})
	var finished atomic.Bool
	w, err := watcher.New(path, func() {
		close(started)
		time.Sleep(150 * time.Millisecond)
		finished.Store(true)
	}, watcher.Options{PollInterval: 30 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "fps=30\n")
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("callback never started")
	}

	w.Stop()
	if !finished.Load() {
		t.Fatal("Stop returned before the in-flight callback finished")
	}
}
