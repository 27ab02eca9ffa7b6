package config

import "sync/atomic"

// Live holds the configuration snapshot currently in effect. It is
// single-writer (the orchestrator's reload path) and multi-reader: subsystems
// call Current once per frame tick or loop iteration instead of caching the
// pointer, so a reload becomes visible at the next iteration boundary.
//
// Snapshots are never mutated after publication; readers that obtained the
// previous snapshot keep a consistent view until they re-read, and the
// garbage collector reclaims superseded snapshots once no reader holds them.
type Live struct {
	p atomic.Pointer[Snapshot]
}

// NewLive publishes the initial snapshot.
func NewLive(snap *Snapshot) *Live {
	l := &Live{}
	l.p.Store(snap)
	return l
}

// Current returns the live snapshot. The result must be treated as read-only.
func (l *Live) Current() *Snapshot {
	return l.p.Load()
}

// Replace atomically publishes next and returns the snapshot it superseded.
func (l *Live) Replace(next *Snapshot) *Snapshot {
	return l.p.Swap(next)
}
