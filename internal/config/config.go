package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed sample_config.conf
var sampleConfig string

// OverlayPosition anchors the overlay bar to a screen edge.
type OverlayPosition string

const (
	PositionTop    OverlayPosition = "top"
	PositionBottom OverlayPosition = "bottom"
)

// Layer selects the compositor layer the overlay surface is placed on.
type Layer string

const (
	LayerTop     Layer = "top"
	LayerOverlay Layer = "overlay"
)

// Snapshot is a fully-validated configuration value. It is immutable once
// constructed: a reload produces a new Snapshot and swaps it into Live, it
// never mutates one that other goroutines may be reading.
type Snapshot struct {
	// Screen geometry.
	ScreenWidth int
	BarHeight   int

	// Overlay geometry.
	CatXOffset    int
	CatYOffset    int
	CatHeight     int
	OverlayHeight int
	PaddingX      int
	PaddingY      int

	// Timing, durations in milliseconds, interval in seconds.
	KeypressDuration      int
	TestAnimationDuration int
	TestAnimationInterval int
	FPS                   int

	// Visual options.
	OverlayOpacity  int
	InvertColor     bool
	CropSprite      bool
	Layer           Layer
	OverlayPosition OverlayPosition

	AnimationIndex int
	IdleFrame      int

	EnableDebug bool

	// Devices is the ordered list of input device paths; validation
	// guarantees at least one entry.
	Devices []string
}

// Warning describes a recoverable problem found while loading configuration.
// Line is zero for warnings not tied to a specific config line.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// Report captures where configuration was loaded from and every warning the
// parse and validation passes produced.
type Report struct {
	Path     string
	Exists   bool
	Warnings []Warning
}

// DefaultConfigPath returns the conventional config file location, the
// bongocat.conf next to the working directory.
func DefaultConfigPath() string {
	return "bongocat.conf"
}

// Load reads and sanitizes the configuration file at path. A missing file is
// not an error: defaults are returned and Report.Exists is false. Malformed
// content never fails the load; it is reported through Report.Warnings. The
// returned Snapshot always satisfies every documented bound.
func Load(path string) (*Snapshot, Report, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	snap := Default()
	report := Report{Path: path}

	file, err := os.Open(path)
	switch {
	case err == nil:
		report.Exists = true
		warnings, parseErr := parse(file, &snap)
		closeErr := file.Close()
		report.Warnings = append(report.Warnings, warnings...)
		if parseErr != nil {
			return nil, report, parseErr
		}
		if closeErr != nil {
			return nil, report, fmt.Errorf("close config: %w", closeErr)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	default:
		return nil, report, fmt.Errorf("open config: %w", err)
	}

	report.Warnings = append(report.Warnings, snap.Validate()...)
	return &snap, report, nil
}

// CreateSample writes an annotated sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// DevicesEqual reports whether two device lists describe the same set of
// paths, ignoring order and duplicates. The reload path uses this to decide
// whether the input monitor must be restarted.
func DevicesEqual(a, b []string) bool {
	seen := make(map[string]struct{}, len(a))
	for _, dev := range a {
		seen[dev] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, dev := range b {
		if _, ok := seen[dev]; !ok {
			return false
		}
		other[dev] = struct{}{}
	}
	return len(seen) == len(other)
}
