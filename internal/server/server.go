package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"ragquery/config"
	"ragquery/internal/domain"
	"ragquery/internal/port"
	"ragquery/internal/validation"
)

// QueryExecutor answers validated query requests.
type QueryExecutor interface {
	Execute(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

// Server manages the HTTP server and routes
type Server struct {
	cfg       config.ServerConfig
	queries   QueryExecutor
	store     port.ChunkStore
	validator *validation.Validator
	limiter   *rate.Limiter
	logger    *log.Logger
	router    *http.ServeMux
	server    *http.Server
}

// New creates a new HTTP server. A non-positive RateLimitRPS disables rate
// limiting.
func New(cfg config.ServerConfig, queries QueryExecutor, store port.ChunkStore, logger *log.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		queries:   queries,
		store:     store,
		validator: validation.New(),
		logger:    logger,
	}

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  seconds(cfg.ReadTimeoutSec, 15),
		WriteTimeout: seconds(cfg.WriteTimeoutSec, 30),
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.Addr()).
		Bool("rate_limited", s.limiter != nil).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
