// Package server exposes the latest compiled schema over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	cerrors "github.com/needs-tools/needschema/internal/compiler/errors"
	"github.com/needs-tools/needschema/internal/compiler/schema"
)

// Snapshot is one compilation published by the server
type Snapshot struct {
	Input       string
	Document    *schema.Document
	Output      []byte
	Diagnostics cerrors.ErrorList
	// Err is set when the input could not be loaded; the previous document
	// stays in service.
	Err       error
	UpdatedAt time.Time
}

// Server holds the current snapshot behind a lock; the watcher swaps it
type Server struct {
	router chi.Router
	hub    *Hub
	logger *zap.Logger

	mu      sync.RWMutex
	current *Snapshot
}

// New creates a server with no snapshot. Routes answer 503 until Update.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router: chi.NewRouter(),
		hub:    NewHub(logger),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestID, requestLogger(s.logger), recovery(s.logger))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/schema", s.handleSchema)
	s.router.Get("/diagnostics", s.handleDiagnostics)
	s.router.Get("/defs/{key}", s.handleDef)
	s.router.Get("/schemas/{id}", s.handleEntry)
	s.router.Get("/events", s.hub.ServeHTTP)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, http.StatusNotFound, "not_found", "No route for "+r.URL.Path)
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Update publishes a new compilation. A snapshot carrying a load error or
// error-severity diagnostics is not served: the previous document stays in
// service, or none when there is no previous one. Its error and diagnostics
// still replace the diagnostics view; a load error keeps the previous findings.
func (s *Server) Update(snap Snapshot) {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	if snap.Err != nil || snap.Diagnostics.HasErrors() {
		snap.Document, snap.Output = nil, nil
		if prev := s.current; prev != nil {
			snap.Document, snap.Output = prev.Document, prev.Output
			if snap.Err != nil {
				snap.Diagnostics = prev.Diagnostics
			}
		}
	}
	s.current = &snap
	s.mu.Unlock()

	event := &Event{Type: "compiled", Input: snap.Input, Timestamp: snap.UpdatedAt.Unix()}
	if snap.Document != nil {
		event.Schemas = len(snap.Document.Schemas)
	}
	event.Errors, event.Warnings, _ = snap.Diagnostics.ErrorCount()
	if snap.Err != nil {
		event.Type = "failed"
		event.Message = snap.Err.Error()
	} else if event.Errors > 0 {
		event.Type = "failed"
	}
	s.hub.Publish(event)
}

// Current returns the published snapshot
func (s *Server) Current() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Current()
	body := map[string]any{"status": "ok", "ready": ok}
	if ok {
		body["input"] = snap.Input
		body["updated_at"] = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	renderJSON(w, http.StatusOK, body)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.ready(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.Output)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Current()
	if !ok {
		renderError(w, http.StatusServiceUnavailable, "not_ready", "No metamodel has been compiled yet")
		return
	}

	diags := snap.Diagnostics
	if diags == nil {
		diags = cerrors.ErrorList{}
	}
	body := map[string]any{
		"success":     snap.Err == nil && !diags.HasErrors(),
		"input":       snap.Input,
		"diagnostics": diags,
	}
	if snap.Err != nil {
		body["error"] = snap.Err.Error()
	}
	renderJSON(w, http.StatusOK, body)
}

func (s *Server) handleDef(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.ready(w)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	frag, found := snap.Document.Defs[key]
	if !found {
		renderError(w, http.StatusNotFound, "unknown_definition", "No definition named "+key)
		return
	}
	renderJSON(w, http.StatusOK, frag)
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.ready(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	entry, found := snap.Document.Entry(id)
	if !found {
		renderError(w, http.StatusNotFound, "unknown_schema", "No schema entry with id "+id)
		return
	}
	renderJSON(w, http.StatusOK, entry)
}

// ready returns the snapshot when a document is available, answering 503 otherwise
func (s *Server) ready(w http.ResponseWriter) (*Snapshot, bool) {
	snap, ok := s.Current()
	if !ok || snap.Document == nil {
		renderError(w, http.StatusServiceUnavailable, "not_ready", "No schema has been compiled yet")
		return nil, false
	}
	return snap, true
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving schema", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
