package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cookchat-oss/cookchat/internal/chat"
	"github.com/cookchat-oss/cookchat/internal/config"
	"github.com/cookchat-oss/cookchat/internal/telemetry"
)

// Server is the cookchat HTTP relay.
type Server struct {
	cfg          *config.Config
	orchestrator *chat.Orchestrator
	logger       *telemetry.Logger
}

// New creates a new server instance.
func New(cfg *config.Config, orchestrator *chat.Orchestrator, logger *telemetry.Logger) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := s.setupRoutes()

	srv := &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting cookchat relay", "addr", addr, "backend", s.cfg.Memory.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler returns the full request handler (used by tests).
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.setupRoutes())
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/memory", s.handleGetMemory)
	mux.HandleFunc("DELETE /api/memory", s.handleDeleteMemory)

	// Static frontend; unmatched /api/ paths 404 inside the handler.
	mux.Handle("/", staticHandler())

	return mux
}

// corsMiddleware adds the CORS headers every API response carries and
// answers preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
