package apps

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/db"
)

// Store persists the scanned catalog so a restart does not force a rescan.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a catalog store on an already-migrated database.
func NewStore(database *sqlx.DB) *Store {
	return &Store{db: database}
}

// Migrations returns the schema migrations the catalog store needs.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			Version:     20250811120000,
			Description: "create app_catalog tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS app_catalog (
						name TEXT PRIMARY KEY,
						path TEXT NOT NULL,
						source TEXT NOT NULL
					);
					CREATE TABLE IF NOT EXISTS app_catalog_meta (
						id INTEGER PRIMARY KEY CHECK (id = 1),
						refreshed_at DATETIME NOT NULL
					);
				`)
				return err
			},
		},
	}
}

// Save replaces the stored catalog with the given entries.
func (s *Store) Save(ctx context.Context, apps []Application) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM app_catalog"); err != nil {
		return errors.Wrap(err, "failed to clear catalog")
	}

	for _, app := range apps {
		// User commands are rebuilt from settings on every start.
		if app.Source == SourceUserCommand {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO app_catalog (name, path, source) VALUES (?, ?, ?)",
			app.Name, app.Path, app.Source); err != nil {
			return errors.Wrapf(err, "failed to store %s", app.Name)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO app_catalog_meta (id, refreshed_at) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET refreshed_at = excluded.refreshed_at
	`, time.Now()); err != nil {
		return errors.Wrap(err, "failed to record refresh time")
	}

	return tx.Commit()
}

// Load returns the stored catalog entries and when they were scanned.
// An empty store returns no entries and a zero time, not an error.
func (s *Store) Load(ctx context.Context) ([]Application, time.Time, error) {
	var refreshedAt time.Time
	err := s.db.GetContext(ctx, &refreshedAt, "SELECT refreshed_at FROM app_catalog_meta WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to load refresh time")
	}

	var apps []Application
	if err := s.db.SelectContext(ctx, &apps, "SELECT name, path, source FROM app_catalog ORDER BY name"); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to load catalog")
	}

	return apps, refreshedAt, nil
}
