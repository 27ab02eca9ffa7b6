package config_test

import (
	"reflect"
	"testing"

	"bongocat/internal/config"
)

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name  string
		file  string
		check func(*config.Snapshot) (int, int)
	}{
		{"fps high", "fps = 500\n", func(s *config.Snapshot) (int, int) { return s.FPS, 120 }},
		{"fps low", "fps = 0\n", func(s *config.Snapshot) (int, int) { return s.FPS, 1 }},
		{"interval negative", "test_animation_interval = -5\n", func(s *config.Snapshot) (int, int) { return s.TestAnimationInterval, 0 }},
		{"opacity high", "overlay_opacity = 999\n", func(s *config.Snapshot) (int, int) { return s.OverlayOpacity, 255 }},
		{"cat height low", "cat_height = 2\n", func(s *config.Snapshot) (int, int) { return s.CatHeight, 10 }},
		{"cat height high", "cat_height = 900\n", func(s *config.Snapshot) (int, int) { return s.CatHeight, 200 }},
		{"overlay height low", "overlay_height = 1\n", func(s *config.Snapshot) (int, int) { return s.OverlayHeight, 20 }},
		{"keypress duration low", "keypress_duration = 1\n", func(s *config.Snapshot) (int, int) { return s.KeypressDuration, 10 }},
		{"test duration high", "test_animation_duration = 90000\n", func(s *config.Snapshot) (int, int) { return s.TestAnimationDuration, 5000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, report, err := config.Load(writeConfig(t, tc.file))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			got, want := tc.check(snap)
			if got != want {
				t.Fatalf("clamped value = %d, want %d", got, want)
			}
			if len(report.Warnings) == 0 {
				t.Fatal("expected a clamp warning")
			}
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	inputs := []config.Snapshot{
		{},
		{FPS: -100, CatHeight: 100000, OverlayOpacity: 300, TestAnimationInterval: -1},
		{AnimationIndex: 99, IdleFrame: 99, OverlayPosition: "diagonal", Layer: "bottom"},
		func() config.Snapshot {
			s := config.Default()
			s.Devices = []string{"/dev/input/event9"}
			return s
		}(),
	}
	for i, in := range inputs {
		once := in
		once.Validate()
		twice := once
		warnings := twice.Validate()
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("case %d: validate not idempotent:\n once %+v\ntwice %+v", i, once, twice)
		}
		for _, w := range warnings {
			// A second pass may re-warn about permissive conditions
			// (off-screen offsets) but must not change any field.
			_ = w
		}
	}
}

func TestValidateCoercesBooleans(t *testing.T) {
	snap, _, err := config.Load(writeConfig(t, "enable_debug = 5\ninvert_color = 0\ncrop_sprite = -1\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.EnableDebug {
		t.Fatal("enable_debug = 5 should coerce to true")
	}
	if snap.InvertColor {
		t.Fatal("invert_color = 0 should be false")
	}
	if !snap.CropSprite {
		t.Fatal("crop_sprite = -1 should coerce to true")
	}
}

func TestIdleFrameBoundDependsOnSelectedAnimation(t *testing.T) {
	bongocatFrames := config.AnimationAt(0).Frames
	agumonFrames := config.AnimationAt(1).Frames
	if agumonFrames >= bongocatFrames {
		t.Fatalf("test requires agumon (%d) to have fewer frames than bongocat (%d)",
			agumonFrames, bongocatFrames)
	}

	// An idle frame valid for bongocat must be clamped to agumon's own
	// bound when agumon is selected.
	file := writeConfig(t, "animation_name = agumon\nidle_frame = 3\n")
	snap, report, err := config.Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.IdleFrame != agumonFrames-1 {
		t.Fatalf("idle_frame = %d, want clamp to %d", snap.IdleFrame, agumonFrames-1)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("expected a clamp warning")
	}

	// The same idle frame is in range for bongocat.
	file = writeConfig(t, "animation_name = bongocat\nidle_frame = 3\n")
	snap, report, err = config.Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.IdleFrame != 3 {
		t.Fatalf("idle_frame = %d, want 3 unchanged", snap.IdleFrame)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestValidateAnimationIndexResetBeforeIdleFrameCheck(t *testing.T) {
	s := config.Snapshot{AnimationIndex: 42, IdleFrame: 2, OverlayPosition: config.PositionTop, Layer: config.LayerTop}
	s.Validate()
	if s.AnimationIndex != config.DefaultAnimationIndex {
		t.Fatalf("animation index = %d, want default", s.AnimationIndex)
	}
	if s.IdleFrame != 2 {
		t.Fatalf("idle frame = %d, want 2 (valid for default animation)", s.IdleFrame)
	}
}

func TestValidateOffScreenOffsetWarnsWithoutClamping(t *testing.T) {
	snap, report, err := config.Load(writeConfig(t, "cat_x_offset = -99999\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.CatXOffset != -99999 {
		t.Fatalf("cat_x_offset = %d, offsets must not be clamped", snap.CatXOffset)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one advisory", report.Warnings)
	}
}
