package config

import "fmt"

// Validate is a total, deterministic, idempotent sanitizer: every field is
// forced into its documented bound and the snapshot is always usable
// afterwards. It never fails; problems surface as warnings. Load calls it on
// every snapshot before returning; callers constructing snapshots by hand
// should do the same.
//
// The idle frame bound depends on the selected animation, so the animation
// index is finalized first.
func (s *Snapshot) Validate() []Warning {
	var warnings []Warning
	warnf := func(format string, args ...any) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(format, args...)})
	}

	clamp := func(field string, v *int, lo, hi int) {
		if *v < lo || *v > hi {
			old := *v
			if *v < lo {
				*v = lo
			} else {
				*v = hi
			}
			warnf("%s %d out of range [%d-%d], clamping to %d", field, old, lo, hi, *v)
		}
	}

	clamp("cat_height", &s.CatHeight, minCatHeight, maxCatHeight)
	clamp("overlay_height", &s.OverlayHeight, minOverlayHeight, maxOverlayHeight)
	clamp("fps", &s.FPS, minFPS, maxFPS)
	clamp("keypress_duration", &s.KeypressDuration, minDuration, maxDuration)
	clamp("test_animation_duration", &s.TestAnimationDuration, minDuration, maxDuration)
	clamp("test_animation_interval", &s.TestAnimationInterval, 0, maxInterval)
	clamp("overlay_opacity", &s.OverlayOpacity, 0, maxOpacity)
	clamp("padding_x", &s.PaddingX, 0, maxPadding)
	clamp("padding_y", &s.PaddingY, 0, maxPadding)

	if s.AnimationIndex < 0 || s.AnimationIndex >= len(animations) {
		warnf("animation index %d out of range [0-%d], resetting to %d",
			s.AnimationIndex, len(animations)-1, DefaultAnimationIndex)
		s.AnimationIndex = DefaultAnimationIndex
	}

	// Bounded by the selected animation's frame count, not a global maximum.
	frames := animations[s.AnimationIndex].Frames
	clamp("idle_frame", &s.IdleFrame, 0, frames-1)

	switch s.OverlayPosition {
	case PositionTop, PositionBottom:
	default:
		warnf("invalid overlay_position %q, resetting to %q", s.OverlayPosition, PositionTop)
		s.OverlayPosition = PositionTop
	}

	switch s.Layer {
	case LayerTop, LayerOverlay:
	default:
		warnf("invalid layer %q, resetting to %q", s.Layer, LayerTop)
		s.Layer = LayerTop
	}

	if s.ScreenWidth <= 0 {
		s.ScreenWidth = defaultScreenWidth
	}

	// Off-screen offsets are permitted; the user may be targeting a
	// multi-monitor layout the overlay cannot see.
	if abs(s.CatXOffset) > s.ScreenWidth {
		warnf("cat_x_offset %d may position the overlay off-screen (screen width %d)",
			s.CatXOffset, s.ScreenWidth)
	}

	if len(s.Devices) == 0 {
		s.Devices = []string{defaultKeyboardDevice}
	}

	s.BarHeight = s.OverlayHeight

	return warnings
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
