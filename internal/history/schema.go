// Package history keeps an optional SQLite audit log of generation outcomes.
// Only metadata and checksums are stored, never prompts or graphs.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS generations (
	id              TEXT PRIMARY KEY,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	mode            TEXT NOT NULL DEFAULT '',
	state           TEXT NOT NULL DEFAULT '',
	outcome         TEXT NOT NULL DEFAULT '',
	prompt_checksum TEXT NOT NULL DEFAULT '',
	prior_checksum  TEXT NOT NULL DEFAULT '',
	result_checksum TEXT NOT NULL DEFAULT '',
	nodes           INTEGER NOT NULL DEFAULT 0,
	edges           INTEGER NOT NULL DEFAULT 0,
	repairs         INTEGER NOT NULL DEFAULT 0,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
`

// DB wraps a sql.DB holding the generations table.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
