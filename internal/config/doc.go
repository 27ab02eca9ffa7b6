// Package config loads, sanitizes, and publishes bongocat overlay
// configuration.
//
// Load parses the line-oriented bongocat.conf format into an immutable
// Snapshot. Parsing is forgiving: a missing file yields defaults, malformed
// lines and unknown keys produce warnings, and out-of-range values are clamped
// during validation. Validation is total and idempotent; it never fails.
//
// Live holds the snapshot currently in effect. It is written by the reload
// path only and read concurrently by the render, animation, and input
// subsystems; replacement is a single atomic pointer swap, so readers never
// observe a partially updated snapshot.
package config
