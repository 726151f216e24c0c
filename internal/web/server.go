// Package web serves the dashboard and the read-only query surface over
// HTTP. It consumes snapshots from the lifecycle controller; the only
// mutating route is the explicit history reset.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/powerlog"
)

// Querier is the controller surface the web layer needs.
type Querier interface {
	// Snapshot returns a stable state copy plus the reconciled now.
	Snapshot() (powerlog.Snapshot, time.Time)

	// ClockValid reports whether absolute time was ever recovered.
	ClockValid() bool

	// RawLog returns the persisted blob for export.
	RawLog() ([]byte, error)

	// Reset clears all history.
	Reset() error
}

// Server serves the status dashboard over HTTP.
type Server struct {
	httpServer *http.Server
	querier    Querier
}

// New creates a Server that reads state from the given querier.
func New(addr string, querier Querier) *Server {
	s := &Server{querier: querier}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/logs", s.handleLogs)
	mux.HandleFunc("/clear", s.handleClear)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

// Handler exposes the route mux for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}

	snap, now := s.querier.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, buildStatus(snap, now, s.querier.ClockValid()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, now := s.querier.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatJSON(snap, now, s.querier.ClockValid()))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	data, err := s.querier.RawLog()
	if err != nil {
		http.Error(w, "no log", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="powerlog.json"`)
	w.Write(data)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.querier.Reset(); err != nil {
		logger.Error().Err(err).Msg("Reset failed to persist")
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("Cleared"))
}
