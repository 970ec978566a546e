package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hookbridge/hookbridge/internal/auth"
	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/events"
	"github.com/hookbridge/hookbridge/internal/pipeline"
)

// ExecutorStats reports pipeline execution counters.
type ExecutorStats interface {
	Snapshot() pipeline.Snapshot
}

// StatusStore is the slice of the document store the ops API reads:
// reachability for /readyz and collection sizes for /stats.
type StatusStore interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context, collection string) (int64, error)
}

// Config holds ops API server configuration.
type Config struct {
	Listen string
	// Tokens are the bearer tokens accepted on protected routes.
	Tokens []auth.TokenConfig
	// Collections are the sink collections reported by GET /stats.
	Collections []string
}

// FromConfig builds the ops API configuration from the service config.
// Collections are collected from every configured sink, deduplicated and
// sorted.
func FromConfig(cfg *config.Config) Config {
	out := Config{Listen: cfg.API.Listen}
	for _, t := range cfg.API.Auth.Tokens {
		out.Tokens = append(out.Tokens, auth.TokenConfig{Token: t.Token, Scopes: t.Scopes})
	}

	seen := map[string]struct{}{}
	for _, integ := range cfg.Integrations {
		for _, p := range integ.Pipelines {
			for _, sink := range p.Sinks {
				if sink.Collection == "" {
					continue
				}
				if _, ok := seen[sink.Collection]; ok {
					continue
				}
				seen[sink.Collection] = struct{}{}
				out.Collections = append(out.Collections, sink.Collection)
			}
		}
	}
	sort.Strings(out.Collections)
	return out
}

// Server is the operational HTTP API: probes, counters and the event
// stream. It never accepts webhook traffic; that is the ingest server.
type Server struct {
	config    Config
	store     StatusStore
	stats     ExecutorStats
	events    *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new ops API server instance.
func New(config Config, store StatusStore, stats ExecutorStats, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		store:     store,
		stats:     stats,
		events:    hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: /events holds streams open indefinitely.
		// BaseContext ties request contexts to ctx so open streams end
		// when the server shuts down.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	// Run server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated probes.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/openapi.json", s.handleOpenAPI)
		r.With(s.requireScopes("stats", "*")).Get("/stats", s.handleStats)
		r.With(s.requireScopes("events", "*")).Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
