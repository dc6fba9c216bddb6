package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"moderbot/internal/api"
	"moderbot/internal/config"
	"moderbot/internal/logging"
)

// StatusFunc reports daemon runtime state for GET /api/status.
type StatusFunc func(ctx context.Context) api.DaemonStatus

// Server owns the HTTP listener and router.
type Server struct {
	bind   string
	token  string
	logger *slog.Logger
	svc    *api.Service
	status StatusFunc

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New builds a server bound to cfg.Paths.APIBind. An empty bind address
// disables the API and returns nil.
func New(cfg *config.Config, svc *api.Service, status StatusFunc, logger *slog.Logger) *Server {
	if cfg == nil || svc == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logging.NewComponentLogger(logger, "api-server"),
		svc:    svc,
		status: status,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(requireToken(s.token))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/logs", s.handleLogs)

		r.Get("/posts", s.handlePosts)
		r.Get("/posts/{id}", s.handlePost)

		r.Get("/bans", s.handleBans)
		r.Post("/bans", s.handleBan)
		r.Delete("/bans/{userID}", s.handleUnban)

		r.Get("/keywords", s.handleKeywords)
		r.Post("/keywords", s.handleAddKeyword)
		r.Delete("/keywords/{keyword}", s.handleRemoveKeyword)

		r.Get("/subscriptions", s.handleSubscriptions)
		r.Post("/subscriptions", s.handleAddSubscription)
		r.Delete("/subscriptions/{index}", s.handleRemoveSubscription)

		r.Post("/broadcast", s.handleBroadcast)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Start listens on the bind address and serves until ctx is cancelled or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}
