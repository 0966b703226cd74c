// Package server exposes the automation service over HTTP: REST endpoints
// for run control and a WebSocket stream for progress events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/automation"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/metrics"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/notify"
)

// PromptStore is the prompt persistence slice the server needs.
type PromptStore interface {
	GetPrompt(ctx context.Context, tool string) (string, error)
	SavePrompt(ctx context.Context, tool, prompt, description string) error
}

// Server routes automation requests.
type Server struct {
	svc     *automation.Service
	hub     *notify.Hub
	usage   *metrics.UsageCollector
	prompts PromptStore
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds the HTTP surface around an automation service.
func New(svc *automation.Service, hub *notify.Hub, usage *metrics.UsageCollector, prompts PromptStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:     svc,
		hub:     hub,
		usage:   usage,
		prompts: prompts,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// tools maps URL path segments onto run kinds. Registered explicitly so
// the tool routes cannot collide with the prompt routes.
var tools = map[string]automation.RunKind{
	"renamer":              automation.KindRenamer,
	"categorizer":          automation.KindCategorizer,
	"categorizer-targeted": automation.KindTargeted,
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /ws", s.hub)

	for tool, kind := range tools {
		base := "/api/" + tool
		s.mux.HandleFunc("POST "+base+"/start", s.handleStart(kind))
		s.mux.HandleFunc("POST "+base+"/stop", s.handleStop(kind))
		s.mux.HandleFunc("GET "+base+"/status", s.handleStatus(kind))
		s.mux.HandleFunc("GET "+base+"/logs", s.handleLogs(kind))
		s.mux.HandleFunc("POST "+base+"/undo", s.handleUndo(kind))
		s.mux.HandleFunc("GET "+base+"/undo-info", s.handleUndoInfo(kind))
	}

	s.mux.HandleFunc("GET /api/prompts/{tool}", s.handleGetPrompt)
	s.mux.HandleFunc("PUT /api/prompts/{tool}", s.handleSavePrompt)

	s.mux.HandleFunc("GET /api/usage/today", s.handleUsageToday)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
