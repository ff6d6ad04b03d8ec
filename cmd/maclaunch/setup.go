package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/db"
	"github.com/ovoskit/maclaunch/pkg/history"
)

// openDatabase opens the shared SQLite database and applies all schema
// migrations. The caller owns the returned handle.
func openDatabase(ctx context.Context) (*sqlx.DB, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	migrations := append(apps.Migrations(), history.Migrations()...)
	if err := db.NewMigrationRunner(database).Run(ctx, migrations); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return database, nil
}

// buildController assembles the catalog and controller from settings.
// The catalog is primed from the persistent store when the stored scan
// is still fresh; otherwise the first resolve triggers a rescan.
func buildController(ctx context.Context, settings *config.Settings, store *apps.Store) (*apps.Controller, error) {
	catalog, err := apps.NewCatalog(apps.CatalogConfig{
		Dirs:            settings.AppDirs,
		ExcludePatterns: settings.ExcludePatterns,
		Aliases:         settings.Aliases,
		UserCommands:    settings.UserCommands,
		Threshold:       settings.MatchThreshold,
		TTL:             settings.CacheTTL(),
		Store:           store,
	})
	if err != nil {
		return nil, err
	}

	if loaded, err := catalog.Load(ctx); err != nil {
		return nil, err
	} else if !loaded {
		if err := catalog.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	return apps.NewController(catalog), nil
}
