package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcomes recorded for a generation.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeQuota    = "quota"
	OutcomeFailure  = "failure"
	OutcomeInvalid  = "invalid"
)

// Entry is one audit row.
type Entry struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Mode           string    `json:"mode"`
	State          string    `json:"state"`
	Outcome        string    `json:"outcome"`
	PromptChecksum string    `json:"prompt_checksum"`
	PriorChecksum  string    `json:"prior_checksum,omitempty"`
	ResultChecksum string    `json:"result_checksum,omitempty"`
	Nodes          int       `json:"nodes"`
	Edges          int       `json:"edges"`
	Repairs        int       `json:"repairs"`
	DurationMS     int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
}

// Recorder stores and lists audit entries.
// Consumers depend on this interface so tests can run without SQLite.
type Recorder interface {
	Record(ctx context.Context, e Entry) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Verify *DB satisfies Recorder at compile time.
var _ Recorder = (*DB)(nil)

// MaxRecent caps the number of entries Recent returns.
const MaxRecent = 200

// Record inserts e, assigning an id and timestamp when they are unset.
func (db *DB) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO generations (id, created_at, mode, state, outcome,
			prompt_checksum, prior_checksum, result_checksum,
			nodes, edges, repairs, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.CreatedAt, e.Mode, e.State, e.Outcome,
		e.PromptChecksum, e.PriorChecksum, e.ResultChecksum,
		e.Nodes, e.Edges, e.Repairs, e.DurationMS, e.Error)
	if err != nil {
		return Entry{}, fmt.Errorf("history: insert: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// means the default of 20.
func (db *DB) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxRecent {
		limit = MaxRecent
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, created_at, mode, state, outcome,
			prompt_checksum, prior_checksum, result_checksum,
			nodes, edges, repairs, duration_ms, error
		FROM generations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Mode, &e.State, &e.Outcome,
			&e.PromptChecksum, &e.PriorChecksum, &e.ResultChecksum,
			&e.Nodes, &e.Edges, &e.Repairs, &e.DurationMS, &e.Error); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
