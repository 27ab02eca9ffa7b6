// Package audit records lifecycle events (startup, reloads, shutdown,
// device changes) to a local SQLite journal. Recording is best effort:
// a broken journal degrades to a log warning, never to a runtime failure.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bongocat/internal/logging"
)

// Event names written to the journal.
const (
	EventStartup      = "startup"
	EventShutdown     = "shutdown"
	EventConfigReload = "config_reload"
	EventReloadFailed = "config_reload_failed"
	EventDeviceChange = "device_change"
	EventToggleStop   = "toggle_stop"
	EventSignalStop   = "signal_stop"
	EventChildReaped  = "child_reaped"
	EventWatchStarted = "watch_started"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    at         TEXT NOT NULL,
    event      TEXT NOT NULL,
    detail     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
`

// Entry is one journal row.
type Entry struct {
	ID        int64
	SessionID string
	At        time.Time
	Event     string
	Detail    string
}

// Journal appends lifecycle events to SQLite. A nil *Journal is valid and
// drops every record, so callers never need to branch on whether auditing
// is enabled.
type Journal struct {
	db        *sql.DB
	sessionID string
	logger    *slog.Logger
}

// Open initializes or connects to the journal database at path, creating
// parent directories as needed.
func Open(path, sessionID string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("audit: journal path is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open journal db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit: apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}

	return &Journal{
		db:        db,
		sessionID: sessionID,
		logger:    logger.With(logging.String(logging.FieldComponent, "audit")),
	}, nil
}

// Record appends one event. Failures are logged and swallowed; auditing never
// blocks or fails the caller.
func (j *Journal) Record(ctx context.Context, event, detail string) {
	if j == nil || j.db == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO events (session_id, at, event, detail) VALUES (?, ?, ?, ?)",
		j.sessionID, time.Now().UTC().Format(time.RFC3339Nano), event, detail)
	if err != nil {
		j.logger.Warn("journal record failed",
			logging.String(logging.FieldEventType, event),
			logging.Error(err))
	}
}

// Recent returns up to limit entries, newest first. A nil journal returns an
// empty slice.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, session_id, at, event, detail FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.SessionID, &at, &e.Event, &e.Detail); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, at); parseErr == nil {
			e.At = ts
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return entries, nil
}

// Close releases the database handle. Safe on a nil journal.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
