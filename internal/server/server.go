// Package server implements the HTTP surface of gitchat: the JSON API for
// posting, listing, importing, and pushing messages, plus the embedded
// static front end.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/gitchat/internal/config"
	"github.com/edgard/gitchat/internal/database"
	"github.com/edgard/gitchat/internal/github"
	"github.com/edgard/gitchat/internal/logger"
	"github.com/edgard/gitchat/internal/mirror"
	"github.com/edgard/gitchat/internal/push"
)

//go:embed static
var staticFS embed.FS

// Server holds the HTTP server and its collaborators.
type Server struct {
	cfg     *config.Config
	store   database.Store
	mirror  *mirror.Writer
	pusher  *push.Service
	github  *github.Client
	logger  *slog.Logger
	httpSrv *http.Server
}

// New wires the routes and returns a Server ready to Serve.
func New(cfg *config.Config, store database.Store, mw *mirror.Writer, pusher *push.Service, gh *github.Client, log *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		store:  store,
		mirror: mw,
		pusher: pusher,
		github: gh,
		logger: log.With("component", "server"),
	}

	mux := http.NewServeMux()

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("getting static subfs: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("POST /send_message", s.handleSendMessage)
	mux.HandleFunc("GET /get_messages", s.handleGetMessages)
	mux.HandleFunc("GET /messages", s.handleGetMessages)
	mux.HandleFunc("GET /repositories", s.handleRepositories)
	mux.HandleFunc("POST /push_to_github", s.handlePush)
	mux.HandleFunc("POST /import_repository", s.handleImportRepository)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           logger.Middleware(log)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Serve starts handling HTTP requests. Blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info("HTTP server listening", "addr", s.cfg.Server.ListenAddr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler exposes the configured handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.logger.Error("Failed to read index page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		s.logger.Error("Failed to write index page", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON serializes v with the given status. Every code path of the
// API answers through this or writeError so no internal error escapes as
// an unstructured response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
