// Package render owns the overlay drawing loop. Frames are submitted by the
// animator and presented onto a Surface; the loop never blocks its producer,
// dropping frames when presentation falls behind.
package render

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"bongocat/internal/config"
	"bongocat/internal/logging"
)

// Frame identifies one sprite cell to present.
type Frame struct {
	Animation int
	Index     int
}

// Geometry describes the overlay placement derived from configuration.
type Geometry struct {
	Width    int
	Height   int
	XOffset  int
	YOffset  int
	Position string
	Layer    string
	Opacity  int
}

// GeometryFromSnapshot projects the render-relevant fields of a config
// snapshot.
func GeometryFromSnapshot(s *config.Snapshot) Geometry {
	return Geometry{
		Width:    s.ScreenWidth,
		Height:   s.OverlayHeight,
		XOffset:  s.CatXOffset,
		YOffset:  s.CatYOffset,
		Position: string(s.OverlayPosition),
		Layer:    string(s.Layer),
		Opacity:  s.OverlayOpacity,
	}
}

// Surface is the drawing target. The in-process implementation is
// MemorySurface; a compositor-backed surface satisfies the same contract.
type Surface interface {
	// Resize reshapes the target. Called while no Present is in flight.
	Resize(geo Geometry) error
	// Present draws one frame.
	Present(frame Frame, geo Geometry) error
	Close() error
}

const frameQueueDepth = 2

// Renderer drains submitted frames onto a surface from its own goroutine.
type Renderer struct {
	surface Surface
	logger  *slog.Logger

	mu  sync.Mutex
	geo Geometry

	frames  chan Frame
	dropped atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	closeErr error
}

// New wires a renderer to surface with the initial geometry applied.
func New(surface Surface, geo Geometry, logger *slog.Logger) (*Renderer, error) {
	if surface == nil {
		return nil, fmt.Errorf("render: surface is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := surface.Resize(geo); err != nil {
		return nil, fmt.Errorf("render: initial resize: %w", err)
	}
	r := &Renderer{
		surface: surface,
		logger:  logger.With(logging.String(logging.FieldComponent, "render")),
		geo:     geo,
		frames:  make(chan Frame, frameQueueDepth),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// Submit queues a frame without blocking. When the queue is full the frame is
// dropped; the animator will submit a fresher one next tick.
func (r *Renderer) Submit(frame Frame) {
	select {
	case r.frames <- frame:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many frames were discarded because presentation lagged.
func (r *Renderer) Dropped() int64 {
	return r.dropped.Load()
}

// Reconfigure applies a new snapshot. The surface is resized only when the
// geometry actually changed.
func (r *Renderer) Reconfigure(s *config.Snapshot) error {
	geo := GeometryFromSnapshot(s)
	r.mu.Lock()
	defer r.mu.Unlock()
	if geo == r.geo {
		return nil
	}
	if err := r.surface.Resize(geo); err != nil {
		return fmt.Errorf("render: resize: %w", err)
	}
	r.logger.Info("overlay geometry updated",
		logging.Int("width", geo.Width),
		logging.Int("height", geo.Height),
		logging.String("position", geo.Position))
	r.geo = geo
	return nil
}

// Close stops the draw loop and releases the surface. Safe to call more than
// once; later calls return the first result.
func (r *Renderer) Close() error {
	r.stopOnce.Do(func() {
		close(r.stop)
		<-r.done
		if n := r.dropped.Load(); n > 0 {
			r.logger.Debug("frames dropped during session", logging.Int64("dropped_frames", n))
		}
		r.closeErr = r.surface.Close()
	})
	return r.closeErr
}

func (r *Renderer) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case frame := <-r.frames:
			r.mu.Lock()
			geo := r.geo
			err := r.surface.Present(frame, geo)
			r.mu.Unlock()
			if err != nil {
				r.logger.Warn("present failed",
					logging.Int("animation", frame.Animation),
					logging.Int("frame", frame.Index),
					logging.Error(err))
			}
		}
	}
}
