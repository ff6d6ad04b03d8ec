package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/db"
	"github.com/ovoskit/maclaunch/pkg/history"
)

type stubRunner struct{}

func (stubRunner) Run(context.Context, string, ...string) (string, error) {
	return "", nil
}

type stubProcs struct {
	procs []apps.ProcessInfo
}

func (p *stubProcs) List(context.Context) ([]apps.ProcessInfo, error) {
	return p.procs, nil
}

func (p *stubProcs) Terminate(context.Context, int32) error {
	return nil
}

func newTestServer(t *testing.T, procs *stubProcs, hist *history.Store) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	for _, bundle := range []string{"Safari.app", "Mail.app"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, bundle), 0o755))
	}

	catalog, err := apps.NewCatalog(apps.CatalogConfig{Dirs: []string{dir}})
	require.NoError(t, err)

	ctrl := apps.NewController(catalog,
		apps.WithRunner(stubRunner{}),
		apps.WithProcessManager(procs))

	server, err := NewServer(ctrl, hist, &ServerConfig{Host: "localhost", Port: 8765})
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{"valid", ServerConfig{Host: "localhost", Port: 8765}, false},
		{"empty host", ServerConfig{Port: 8765}, true},
		{"port too low", ServerConfig{Host: "localhost", Port: 0}, true},
		{"port too high", ServerConfig{Host: "localhost", Port: 70000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubProcs{}, nil)

	var body map[string]any
	status := getJSON(t, srv.URL+"/healthz", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
}

func TestListApps(t *testing.T) {
	srv := newTestServer(t, &stubProcs{}, nil)

	var body struct {
		Apps []apps.Application `json:"apps"`
	}
	status := getJSON(t, srv.URL+"/api/apps", &body)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Apps, 2)
	assert.Equal(t, "Mail", body.Apps[0].Name)
	assert.Equal(t, "Safari", body.Apps[1].Name)
}

func TestGetApp(t *testing.T) {
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	srv := newTestServer(t, procs, nil)

	t.Run("resolves fuzzy name", func(t *testing.T) {
		var body struct {
			App       apps.Application   `json:"app"`
			Running   bool               `json:"running"`
			Processes []apps.ProcessInfo `json:"processes"`
		}
		status := getJSON(t, srv.URL+"/api/apps/safari", &body)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Safari", body.App.Name)
		assert.True(t, body.Running)
		require.Len(t, body.Processes, 1)
		assert.Equal(t, int32(42), body.Processes[0].PID)
	})

	t.Run("unknown name is 404", func(t *testing.T) {
		var body map[string]any
		status := getJSON(t, srv.URL+"/api/apps/fluxcapacitor", &body)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestRunning(t *testing.T) {
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	srv := newTestServer(t, procs, nil)

	var body struct {
		Running []struct {
			App apps.Application `json:"app"`
		} `json:"running"`
	}
	status := getJSON(t, srv.URL+"/api/running", &body)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Running, 1)
	assert.Equal(t, "Safari", body.Running[0].App.Name)
}

func TestHistoryEndpoint(t *testing.T) {
	t.Run("disabled history is 404", func(t *testing.T) {
		srv := newTestServer(t, &stubProcs{}, nil)

		var body map[string]any
		status := getJSON(t, srv.URL+"/api/history", &body)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("returns recorded events", func(t *testing.T) {
		database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "storage.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		require.NoError(t, db.NewMigrationRunner(database).Run(context.Background(), history.Migrations()))

		store := history.NewStore(database)
		require.NoError(t, store.Record(context.Background(), "Safari", "launch", true))

		srv := newTestServer(t, &stubProcs{}, store)

		var body struct {
			Events []history.Event `json:"events"`
		}
		status := getJSON(t, srv.URL+"/api/history?limit=5", &body)

		assert.Equal(t, http.StatusOK, status)
		require.Len(t, body.Events, 1)
		assert.Equal(t, "Safari", body.Events[0].App)
	})
}
