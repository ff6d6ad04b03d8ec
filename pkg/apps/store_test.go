package apps

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoskit/maclaunch/pkg/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.NewMigrationRunner(database).Run(context.Background(), Migrations()))
	return NewStore(database)
}

func TestStoreEmptyLoad(t *testing.T) {
	store := newTestStore(t)

	apps, refreshedAt, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, apps)
	assert.True(t, refreshedAt.IsZero())
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []Application{
		{Name: "Safari", Path: "/Applications/Safari.app", Source: SourceScan},
		{Name: "Mail", Path: "/Applications/Mail.app", Source: SourceScan},
		{Name: "my tool", Path: "/usr/local/bin/mytool", Source: SourceUserCommand},
	}))

	apps, refreshedAt, err := store.Load(ctx)
	require.NoError(t, err)

	// User commands are rebuilt from settings, not persisted.
	require.Len(t, apps, 2)
	assert.Equal(t, "Mail", apps[0].Name)
	assert.Equal(t, "Safari", apps[1].Name)
	assert.WithinDuration(t, time.Now(), refreshedAt, 5*time.Second)
}

func TestStoreSaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []Application{
		{Name: "Safari", Path: "/Applications/Safari.app", Source: SourceScan},
	}))
	require.NoError(t, store.Save(ctx, []Application{
		{Name: "Mail", Path: "/Applications/Mail.app", Source: SourceScan},
	}))

	apps, _, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "Mail", apps[0].Name)
}

func TestCatalogLoadsFromStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []Application{
		{Name: "Safari", Path: "/Applications/Safari.app", Source: SourceScan},
	}))

	catalog, err := NewCatalog(CatalogConfig{
		Dirs:  []string{t.TempDir()},
		TTL:   time.Hour,
		Store: store,
	})
	require.NoError(t, err)

	loaded, err := catalog.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.True(t, catalog.Valid())

	safari, ok := catalog.Get("Safari")
	require.True(t, ok)
	assert.Equal(t, "/Applications/Safari.app", safari.Path)
}

func TestCatalogRefreshPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := makeAppDir(t, "Notes.app")
	catalog, err := NewCatalog(CatalogConfig{Dirs: []string{dir}, Store: store})
	require.NoError(t, err)
	require.NoError(t, catalog.Refresh(ctx))

	stored, _, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Notes", stored[0].Name)
}
