// Package status provides a local HTTP API for inspecting the skill:
// the application catalog, the live process matches, and the usage
// history. It is a debugging surface, bound to localhost by default.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/logger"
	"github.com/ovoskit/maclaunch/pkg/presenter"
	"github.com/ovoskit/maclaunch/pkg/version"
)

// Server serves the status API.
type Server struct {
	router  *mux.Router
	ctrl    *apps.Controller
	history *history.Store
	config  *ServerConfig
	server  *http.Server
}

// ServerConfig holds the listen address configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// NewServer creates a status server. The history store may be nil, in
// which case the history endpoints report 404.
func NewServer(ctrl *apps.Controller, hist *history.Store, config *ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:  mux.NewRouter(),
		ctrl:    ctrl,
		history: hist,
		config:  config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/apps", s.handleListApps).Methods("GET")
	api.HandleFunc("/apps/{name}", s.handleGetApp).Methods("GET")
	api.HandleFunc("/running", s.handleRunning).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	presenter.Info(fmt.Sprintf("Starting status server on http://%s", address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("status server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Close immediately closes the underlying HTTP server, if started.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, map[string]any{
		"status":  "ok",
		"version": version.Get().Version,
	})
}

// handleListApps handles GET /api/apps
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.ctrl.Catalog().EnsureFresh(ctx); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to refresh application catalog", err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"apps": s.ctrl.Catalog().Apps(),
	})
}

// handleGetApp handles GET /api/apps/{name}. The name is resolved the
// same way a spoken phrase is, so fuzzy names work.
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	match, err := s.ctrl.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, apps.ErrNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "application not found", err)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to resolve application", err)
		return
	}

	procs, err := s.ctrl.MatchProcess(ctx, match.App.Name)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to inspect process table", err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"app":       match.App,
		"score":     match.Score,
		"running":   len(procs) > 0,
		"processes": procs,
	})
}

// handleRunning handles GET /api/running: the catalog entries with at
// least one live process.
func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.ctrl.Catalog().EnsureFresh(ctx); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to refresh application catalog", err)
		return
	}

	type runningApp struct {
		App       apps.Application   `json:"app"`
		Processes []apps.ProcessInfo `json:"processes"`
	}

	var running []runningApp
	for _, app := range s.ctrl.Catalog().Apps() {
		procs, err := s.ctrl.MatchProcess(ctx, app.Name)
		if err != nil {
			s.writeErrorResponse(w, http.StatusInternalServerError, "failed to inspect process table", err)
			return
		}
		if len(procs) > 0 {
			running = append(running, runningApp{App: app, Processes: procs})
		}
	}

	s.writeJSONResponse(w, map[string]any{
		"running": running,
	})
}

// handleHistory handles GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.history == nil {
		s.writeErrorResponse(w, http.StatusNotFound, "history is not enabled", nil)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	events, err := s.history.Recent(ctx, limit)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	s.writeJSONResponse(w, map[string]any{
		"events": events,
	})
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a JSON error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode error response")
	}
}
