package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		QueueDepth:    snap.QueueDepth,
		Workers:       snap.Workers,
	})
}

// handleReadyz handles GET /readyz (no auth). Ready means the document
// store answers a ping; until then webhook deliveries would be accepted
// but could not be persisted.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("store ping failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, ReadyzResponse{Status: "unavailable", Store: "unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, ReadyzResponse{Status: "ready", Store: "ok"})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Pipelines:     s.stats.Snapshot(),
	}

	if len(s.config.Collections) > 0 {
		resp.Collections = make(map[string]int64, len(s.config.Collections))
		for _, collection := range s.config.Collections {
			n, err := s.store.Count(r.Context(), collection)
			if err != nil {
				s.logger.Error("failed to count collection", "collection", collection, "error", err)
				s.writeError(w, http.StatusInternalServerError, "failed to count collection")
				return
			}
			resp.Collections[collection] = n
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleOpenAPI handles GET /openapi.json.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
