package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/event"
	"github.com/hookbridge/hookbridge/internal/events"
	"github.com/hookbridge/hookbridge/internal/telemetry"
)

// Server is the ingest HTTP listener. It verifies, normalizes and
// dispatches webhook deliveries; everything after dispatch runs in the
// background.
type Server struct {
	config     Config
	dispatcher Dispatcher
	hub        *events.Hub
	logger     *slog.Logger
	server     *http.Server

	// endpoints maps URL paths to their configurations
	endpoints map[string]*Endpoint
}

// New creates the ingest server.
func New(cfg Config, dispatcher Dispatcher, hub *events.Hub, logger *slog.Logger) *Server {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = config.DefaultMaxBodySize
	}

	endpoints := make(map[string]*Endpoint)
	for i := range cfg.Endpoints {
		ep := &cfg.Endpoints[i]
		endpoints[ep.Path] = ep
	}

	return &Server{
		config:     cfg,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		endpoints:  endpoints,
	}
}

// Start runs the ingest HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		// BaseContext ties request contexts to ctx so dispatch waits
		// abort when the server shuts down.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("ingest server starting", "listen", s.config.Listen, "endpoints", len(s.endpoints))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("ingest server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ingest server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("ingest server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	if s.config.Trace {
		r.Use(telemetry.Middleware("hookbridge-ingest"))
	}

	r.Get("/-/healthz", s.handleHealthz)
	r.Get("/-/ready", s.handleReady)

	for path := range s.endpoints {
		r.Post(path, s.handleWebhook)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.config.ReadyCheck != nil {
		if err := s.config.ReadyCheck(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			s.respondError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook accepts one delivery: verify the signature on the raw
// bytes, parse JSON, normalize, dispatch. The 200 goes out as soon as
// the event is on the queue; pipeline outcomes never reopen it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	endpoint, ok := s.endpoints[r.URL.Path]
	if !ok {
		s.respondError(w, http.StatusNotFound, "endpoint not found")
		return
	}

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.reject(endpoint, "payload_too_large")
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	signature := r.Header.Get(endpoint.SignatureHeader)
	if err := VerifySignature(body, signature, endpoint.Secret); err != nil {
		if errors.Is(err, ErrMissingSignature) {
			s.logger.Warn("webhook signature missing", "path", r.URL.Path, "header", endpoint.SignatureHeader)
			s.reject(endpoint, "missing_signature")
			s.respondError(w, http.StatusBadRequest, "missing signature header")
			return
		}
		s.logger.Warn("webhook signature verification failed", "path", r.URL.Path)
		s.reject(endpoint, "invalid_signature")
		s.respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Warn("webhook body is not a JSON object", "path", r.URL.Path, "error", err)
		s.reject(endpoint, "malformed_body")
		s.respondError(w, http.StatusBadRequest, "malformed body")
		return
	}

	eventType := extractEventType(payload, endpoint.EventTypeField)
	spec := endpoint.Registry.Spec(eventType)

	ev, err := event.Normalize(eventType, payload, spec)
	if err != nil {
		// The delivery is authentic, so it is accepted; it just cannot
		// be normalized into a persistable identity.
		s.logger.Warn("dropping event",
			"path", r.URL.Path,
			"event_type", eventType,
			"error", err,
		)
		s.reject(endpoint, "missing_identity_field")
		s.respondJSON(w, http.StatusOK, AcceptedResponse{Status: "accepted"})
		return
	}

	if err := s.dispatcher.Dispatch(ctx, endpoint.Integration, ev); err != nil {
		s.logger.Error("dispatch failed", "path", r.URL.Path, "event_id", ev.ID, "error", err)
		s.respondError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	s.logger.Info("webhook event accepted",
		"path", r.URL.Path,
		"integration", endpoint.Integration,
		"event_id", ev.ID,
		"event_type", ev.EventType,
		"operation", ev.Operation,
	)

	s.respondJSON(w, http.StatusOK, AcceptedResponse{
		Status:    "accepted",
		EventID:   ev.ID,
		EventType: ev.EventType,
	})
}

// extractEventType pulls the event-type string out of the payload.
// A missing field or non-string value yields an empty type, which
// normalizes as an unknown event rather than rejecting the delivery.
func extractEventType(payload map[string]any, field string) string {
	v, ok := event.Lookup(payload, field)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (s *Server) reject(ep *Endpoint, reason string) {
	s.hub.Publish(events.TypeEventRejected, map[string]any{
		"integration": ep.Integration,
		"path":        ep.Path,
		"reason":      reason,
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
