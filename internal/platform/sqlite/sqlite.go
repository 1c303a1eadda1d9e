// Package sqlite stores screening sessions and their articles in a local
// SQLite file so the field CLI can run and resume screenings without a
// network connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS screening_sessions (
    id             TEXT PRIMARY KEY,
    operator_id    TEXT      NOT NULL,
    child_ref      TEXT      NOT NULL,
    phase          TEXT      NOT NULL,
    state          BLOB      NOT NULL,
    outcome_status TEXT,
    triage_level   TEXT,
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL,
    expires_at     TIMESTAMP NOT NULL,
    completed_at   TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_operator ON screening_sessions (operator_id, updated_at);

CREATE TABLE IF NOT EXISTS education_articles (
    id          TEXT PRIMARY KEY,
    session_id  TEXT      NOT NULL REFERENCES screening_sessions (id) ON DELETE CASCADE,
    topic       TEXT      NOT NULL,
    title       TEXT      NOT NULL,
    description TEXT      NOT NULL,
    link        TEXT      NOT NULL,
    image       TEXT      NOT NULL DEFAULT '',
    model       TEXT      NOT NULL,
    created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_session ON education_articles (session_id, created_at);
`

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; transactions serialize on the single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}
