package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bongocat/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bongocat.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	snap, report, err := config.Load(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if report.Exists {
		t.Fatal("expected Exists=false for missing file")
	}

	want := config.Default()
	want.Devices = []string{"/dev/input/event4"}
	if !reflect.DeepEqual(*snap, want) {
		t.Fatalf("defaults mismatch:\n got %+v\nwant %+v", *snap, want)
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	path := writeConfig(t, "cat_height = 55\nfps = 30\nkeyboard_device = /dev/input/event3\n")

	first, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestLoadPartialFileOverridesOnlySetFields(t *testing.T) {
	path := writeConfig(t, "fps = 30\n")

	snap, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.FPS != 30 {
		t.Fatalf("fps = %d, want 30", snap.FPS)
	}
	if snap.CatHeight != config.Default().CatHeight {
		t.Fatalf("cat height changed without being configured: %d", snap.CatHeight)
	}
	if snap.OverlayOpacity != config.Default().OverlayOpacity {
		t.Fatalf("opacity changed without being configured: %d", snap.OverlayOpacity)
	}
}

func TestBarHeightFollowsOverlayHeight(t *testing.T) {
	path := writeConfig(t, "overlay_height = 80\n")

	snap, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.BarHeight != 80 {
		t.Fatalf("bar height = %d, want 80", snap.BarHeight)
	}
}

func TestCreateSampleLoadsWithoutWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "bongocat.conf")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	_, report, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !report.Exists {
		t.Fatal("expected sample file to exist")
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("sample config produced warnings: %v", report.Warnings)
	}
}

func TestDevicesEqualIgnoresOrder(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want bool
	}{
		{"identical", []string{"/dev/a", "/dev/b"}, []string{"/dev/a", "/dev/b"}, true},
		{"reordered", []string{"/dev/a", "/dev/b"}, []string{"/dev/b", "/dev/a"}, true},
		{"different", []string{"/dev/a"}, []string{"/dev/b"}, false},
		{"subset", []string{"/dev/a", "/dev/b"}, []string{"/dev/a"}, false},
		{"superset", []string{"/dev/a"}, []string{"/dev/a", "/dev/b"}, false},
		{"both empty", nil, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := config.DevicesEqual(tc.a, tc.b); got != tc.want {
				t.Fatalf("DevicesEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestLiveReplaceReturnsPrevious(t *testing.T) {
	first := config.Default()
	first.Devices = []string{"/dev/input/event4"}
	live := config.NewLive(&first)

	if live.Current() != &first {
		t.Fatal("Current should return the published snapshot")
	}

	second := config.Default()
	second.FPS = 30
	second.Devices = []string{"/dev/input/event4"}

	prev := live.Replace(&second)
	if prev != &first {
		t.Fatal("Replace should return the superseded snapshot")
	}
	if live.Current() != &second {
		t.Fatal("Current should observe the replacement")
	}
	if first.FPS != config.Default().FPS {
		t.Fatal("superseded snapshot must remain unchanged")
	}
}
