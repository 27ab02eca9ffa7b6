package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineLen bounds a single config line. Longer lines are skipped with a
// warning instead of being silently truncated.
const maxLineLen = 4096

// parse applies key = value lines from r onto snap, which must already carry
// defaults. Device keys accumulate; every other key overwrites. Malformed
// content is reported as warnings and parsing continues on the next line;
// only an I/O failure returns an error.
func parse(r io.Reader, snap *Snapshot) ([]Warning, error) {
	var warnings []Warning
	warnf := func(line int, format string, args ...any) {
		warnings = append(warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
	}

	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		line, tooLong, err := readLine(reader)
		if err != nil && err != io.EOF {
			return warnings, fmt.Errorf("read config: %w", err)
		}
		if err == io.EOF && line == "" {
			break
		}
		lineNo++
		if tooLong {
			warnf(lineNo, "line exceeds %d bytes, skipped", maxLineLen)
			if err == io.EOF {
				break
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if err == io.EOF {
				break
			}
			continue
		}

		key, value, ok := splitKeyValue(trimmed)
		if !ok {
			warnf(lineNo, "invalid configuration line: %s", trimmed)
		} else {
			applyKey(snap, key, value, lineNo, warnf)
		}
		if err == io.EOF {
			break
		}
	}

	return warnings, nil
}

// readLine returns the next line without its terminator. tooLong is set when
// the line exceeded maxLineLen; the overlong remainder is consumed so the
// next call starts on a fresh line.
func readLine(r *bufio.Reader) (string, bool, error) {
	var b strings.Builder
	tooLong := false
	for {
		chunk, err := r.ReadString('\n')
		if !tooLong {
			if b.Len()+len(chunk) > maxLineLen {
				tooLong = true
			} else {
				b.WriteString(chunk)
			}
		}
		if err != nil || strings.HasSuffix(chunk, "\n") {
			return strings.TrimSuffix(b.String(), "\n"), tooLong, err
		}
	}
}

// splitKeyValue parses "key = value" where the value is a single maximal run
// of non-whitespace characters. Values containing spaces are a documented
// limitation of the format.
func splitKeyValue(line string) (string, string, bool) {
	key, rest, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	fields := strings.Fields(rest)
	if key == "" || len(fields) == 0 {
		return "", "", false
	}
	return key, fields[0], true
}

func applyKey(snap *Snapshot, key, value string, line int, warnf func(int, string, ...any)) {
	setInt := func(dst *int) {
		n, err := strconv.Atoi(value)
		if err != nil {
			warnf(line, "%s: invalid integer %q", key, value)
			return
		}
		*dst = n
	}
	setBool := func(dst *bool) {
		n, err := strconv.Atoi(value)
		if err != nil {
			warnf(line, "%s: invalid integer %q", key, value)
			return
		}
		*dst = n != 0
	}

	switch key {
	case "cat_x_offset":
		setInt(&snap.CatXOffset)
	case "cat_y_offset":
		setInt(&snap.CatYOffset)
	case "cat_height":
		setInt(&snap.CatHeight)
	case "overlay_height":
		setInt(&snap.OverlayHeight)
	case "padding_x":
		setInt(&snap.PaddingX)
	case "padding_y":
		setInt(&snap.PaddingY)
	case "idle_frame":
		setInt(&snap.IdleFrame)
	case "keypress_duration":
		setInt(&snap.KeypressDuration)
	case "test_animation_duration":
		setInt(&snap.TestAnimationDuration)
	case "test_animation_interval":
		setInt(&snap.TestAnimationInterval)
	case "fps":
		setInt(&snap.FPS)
	case "overlay_opacity":
		setInt(&snap.OverlayOpacity)
	case "enable_debug":
		setBool(&snap.EnableDebug)
	case "invert_color":
		setBool(&snap.InvertColor)
	case "crop_sprite":
		setBool(&snap.CropSprite)
	case "overlay_position":
		switch OverlayPosition(value) {
		case PositionTop, PositionBottom:
			snap.OverlayPosition = OverlayPosition(value)
		default:
			warnf(line, "invalid overlay_position %q, using %q", value, PositionTop)
			snap.OverlayPosition = PositionTop
		}
	case "layer":
		switch Layer(value) {
		case LayerTop, LayerOverlay:
			snap.Layer = Layer(value)
		default:
			warnf(line, "invalid layer %q, using %q", value, LayerTop)
			snap.Layer = LayerTop
		}
	case "animation_name":
		if idx, ok := AnimationByName(value); ok {
			snap.AnimationIndex = idx
		} else {
			warnf(line, "invalid animation_name %q, using %q", value, animations[DefaultAnimationIndex].Name)
			snap.AnimationIndex = DefaultAnimationIndex
		}
	case "keyboard_device", "keyboard_devices":
		snap.Devices = append(snap.Devices, value)
	default:
		warnf(line, "unknown configuration key %q", key)
	}
}
