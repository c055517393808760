// Package web serves the chat UI and the HTTP JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/nholloway/solace-agent/internal/buildinfo"
	"github.com/nholloway/solace-agent/internal/coach"
	"github.com/nholloway/solace-agent/internal/config"
	"github.com/nholloway/solace-agent/internal/google"
	"github.com/nholloway/solace-agent/internal/llm"
	"github.com/nholloway/solace-agent/internal/memory"
)

//go:embed static/*
var staticFiles embed.FS

// Server is the HTTP server for the chat UI and API.
type Server struct {
	cfg      *config.Config
	client   llm.Client
	store    *memory.FileStore
	archive  *memory.Archive
	google   *google.Manager
	registry *coach.Registry
	logger   *slog.Logger
	server   *http.Server
}

// NewServer wires the web layer to its collaborators. archive and
// google may be nil when those features are disabled.
func NewServer(cfg *config.Config, client llm.Client, store *memory.FileStore, archive *memory.Archive, gm *google.Manager, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		client:   client,
		store:    store,
		archive:  archive,
		google:   gm,
		registry: coach.NewRegistry(),
		logger:   logger,
	}
}

// newCoach builds a coach for a conversation id ("" for a new one).
func (s *Server) newCoach(id string) *coach.Coach {
	var archiver coach.SessionArchiver
	if s.archive != nil {
		archiver = s.archive
	}
	var integrations coach.Integrations
	if s.google != nil {
		integrations = s.google
	}
	opts := llm.Options{
		Temperature: s.cfg.Model.Temperature,
		MaxTokens:   s.cfg.Model.MaxTokens,
	}
	return coach.New(id, s.client, s.store, archiver, integrations, opts, s.logger)
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Listen.Address, s.cfg.Listen.Port),
		Handler:      s.withLogging(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	s.logger.Info("starting server",
		"address", s.cfg.Listen.Address,
		"port", s.cfg.Listen.Port,
		"version", buildinfo.Version,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// routes builds the full handler without starting a listener. Tests
// serve it through httptest.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/end_session", s.handleEndSession)
	mux.HandleFunc("GET /api/memories", s.handleMemoriesList)
	mux.HandleFunc("POST /api/memories", s.handleMemoriesAdd)
	mux.HandleFunc("PUT /api/memories/{id}", s.handleMemoriesUpdate)
	mux.HandleFunc("DELETE /api/memories/{id}", s.handleMemoriesDelete)
	mux.HandleFunc("GET /api/integration_status", s.handleIntegrationStatus)
	mux.HandleFunc("GET /api/google/auth_url", s.handleGoogleAuthURL)
	mux.HandleFunc("GET /api/google/check_auth", s.handleGoogleCheckAuth)
	mux.HandleFunc("GET /api/google/auth_qr", s.handleGoogleAuthQR)
	mux.HandleFunc("GET /google/callback", s.handleGoogleCallback)
	mux.HandleFunc("GET /api/archive", s.handleArchive)
	mux.HandleFunc("GET /ws/chat", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /", s.staticHandler())
	return mux
}

func (s *Server) staticHandler() http.Handler {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(subFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "" {
			r.URL.Path = "/index.html"
		}
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"status":  "healthy",
		"version": buildinfo.Version,
	})
}

// writeJSON encodes v to w. Failures usually mean the client went
// away, so they log at debug only.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	s.writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	})
}
