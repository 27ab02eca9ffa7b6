package render

import (
	"fmt"
	"sync"
)

// MemorySurface is an in-process surface that records what would have been
// drawn. The runtime uses it when no compositor connection is available, and
// tests use it to observe presentation.
type MemorySurface struct {
	mu        sync.Mutex
	geo       Geometry
	last      Frame
	presented int
	resizes   int
	closed    bool
}

// NewMemorySurface returns an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

func (m *MemorySurface) Resize(geo Geometry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("render: surface closed")
	}
	if geo.Width <= 0 || geo.Height <= 0 {
		return fmt.Errorf("render: invalid geometry %dx%d", geo.Width, geo.Height)
	}
	m.geo = geo
	m.resizes++
	return nil
}

func (m *MemorySurface) Present(frame Frame, geo Geometry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("render: surface closed")
	}
	m.last = frame
	m.presented++
	return nil
}

func (m *MemorySurface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// LastFrame returns the most recently presented frame and whether any frame
// has been presented at all.
func (m *MemorySurface) LastFrame() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.presented > 0
}

// PresentCount reports how many frames reached the surface.
func (m *MemorySurface) PresentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presented
}

// ResizeCount reports how many geometry changes were applied.
func (m *MemorySurface) ResizeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resizes
}

// Geometry returns the current surface shape.
func (m *MemorySurface) Geometry() Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geo
}
