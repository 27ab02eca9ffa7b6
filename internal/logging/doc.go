// Package logging provides slog-based logging for the bongocat overlay.
//
// The package exposes a constructor returning a standard *slog.Logger backed
// by either a human-readable console handler or a JSON handler, plus small
// helpers for building attributes and per-component child loggers. Console
// output is colorized only when the destination is a terminal.
package logging
