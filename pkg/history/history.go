// Package history records launch and close events so users can see what
// the skill did on their behalf.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/db"
)

// Event is one recorded controller action.
type Event struct {
	ID        int64     `json:"id" db:"id"`
	App       string    `json:"app" db:"app"`
	Action    string    `json:"action" db:"action"`
	OK        bool      `json:"ok" db:"ok"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Store persists events in the shared SQLite database.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a history store on an already-migrated database.
func NewStore(database *sqlx.DB) *Store {
	return &Store{db: database}
}

// Migrations returns the schema migrations the history store needs.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			Version:     20250811120500,
			Description: "create launch_history table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS launch_history (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						app TEXT NOT NULL,
						action TEXT NOT NULL,
						ok BOOLEAN NOT NULL,
						created_at DATETIME NOT NULL
					);
					CREATE INDEX IF NOT EXISTS idx_launch_history_created_at
						ON launch_history (created_at DESC);
				`)
				return err
			},
		},
	}
}

// Record stores one event.
func (s *Store) Record(ctx context.Context, app, action string, ok bool) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO launch_history (app, action, ok, created_at) VALUES (?, ?, ?, ?)",
		app, action, ok, time.Now())
	return errors.Wrap(err, "failed to record history event")
}

// Recent returns the newest events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}

	var events []Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT id, app, action, ok, created_at FROM launch_history ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load history")
	}
	return events, nil
}

// TopApps returns the most launched applications with their launch counts.
func (s *Store) TopApps(ctx context.Context, limit int) (map[string]int, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT app, COUNT(*) AS launches FROM launch_history
		WHERE action = 'launch' AND ok = 1
		GROUP BY app ORDER BY launches DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load top apps")
	}
	defer rows.Close()

	top := make(map[string]int)
	for rows.Next() {
		var app string
		var launches int
		if err := rows.Scan(&app, &launches); err != nil {
			return nil, errors.Wrap(err, "failed to scan top apps")
		}
		top[app] = launches
	}
	return top, rows.Err()
}
