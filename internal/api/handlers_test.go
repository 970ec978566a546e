package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hookbridge/hookbridge/internal/auth"
	"github.com/hookbridge/hookbridge/internal/events"
	"github.com/hookbridge/hookbridge/internal/pipeline"
)

// mockStore implements StatusStore for testing
type mockStore struct {
	pingFunc  func(ctx context.Context) error
	countFunc func(ctx context.Context, collection string) (int64, error)
}

func (m *mockStore) Ping(ctx context.Context) error {
	if m.pingFunc == nil {
		return nil
	}
	return m.pingFunc(ctx)
}

func (m *mockStore) Count(ctx context.Context, collection string) (int64, error) {
	if m.countFunc == nil {
		return 0, nil
	}
	return m.countFunc(ctx, collection)
}

// mockStats implements ExecutorStats for testing
type mockStats struct {
	snapshot pipeline.Snapshot
}

func (m *mockStats) Snapshot() pipeline.Snapshot {
	return m.snapshot
}

func newTestServer(st *mockStore, stats *mockStats) *Server {
	config := Config{
		Listen: "localhost:8080",
		Tokens: []auth.TokenConfig{
			{Token: "admin-token", Scopes: []string{"*"}},
			{Token: "stats-token", Scopes: []string{"stats"}},
			{Token: "events-token", Scopes: []string{"events"}},
		},
		Collections: []string{"jira_issues"},
	}
	hub := events.NewHub(10)
	return New(config, st, stats, hub, slog.Default())
}

func TestHandleHealthz_NoAuth(t *testing.T) {
	stats := &mockStats{
		snapshot: pipeline.Snapshot{QueueDepth: 7, Workers: 4},
	}
	server := newTestServer(&mockStore{}, stats)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router := server.setupRoutes()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp HealthzResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.QueueDepth != 7 {
		t.Fatalf("expected queue_depth 7, got %d", resp.QueueDepth)
	}
	if resp.Workers != 4 {
		t.Fatalf("expected workers 4, got %d", resp.Workers)
	}
	if resp.UptimeSeconds < 0 {
		t.Fatalf("expected non-negative uptime_seconds")
	}
}

func TestHandleReadyz_StoreUp(t *testing.T) {
	server := newTestServer(&mockStore{}, &mockStats{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp ReadyzResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ready" {
		t.Fatalf("expected status ready, got %q", resp.Status)
	}
}

func TestHandleReadyz_StoreDown(t *testing.T) {
	st := &mockStore{
		pingFunc: func(ctx context.Context) error { return errors.New("connection refused") },
	}
	server := newTestServer(st, &mockStats{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	var resp ReadyzResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "unavailable" {
		t.Fatalf("expected status unavailable, got %q", resp.Status)
	}
}

func TestHandleStats_Success(t *testing.T) {
	st := &mockStore{
		countFunc: func(ctx context.Context, collection string) (int64, error) {
			if collection != "jira_issues" {
				t.Errorf("unexpected collection %q", collection)
			}
			return 42, nil
		},
	}
	stats := &mockStats{
		snapshot: pipeline.Snapshot{
			Dispatched:       10,
			Dropped:          2,
			DocumentsWritten: 7,
			SinkErrors:       1,
		},
	}
	server := newTestServer(st, stats)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer stats-token")
	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp StatsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Pipelines.Dispatched != 10 {
		t.Fatalf("expected dispatched 10, got %d", resp.Pipelines.Dispatched)
	}
	if resp.Pipelines.DocumentsWritten != 7 {
		t.Fatalf("expected documents_written 7, got %d", resp.Pipelines.DocumentsWritten)
	}
	if resp.Collections["jira_issues"] != 42 {
		t.Fatalf("expected jira_issues count 42, got %d", resp.Collections["jira_issues"])
	}
}

func TestHandleStats_CountError(t *testing.T) {
	st := &mockStore{
		countFunc: func(ctx context.Context, collection string) (int64, error) {
			return 0, errors.New("table missing")
		},
	}
	server := newTestServer(st, &mockStats{})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestHandleOpenAPI_AnyValidToken(t *testing.T) {
	server := newTestServer(&mockStore{}, &mockStats{})

	// The openapi route needs a valid token but no particular scope.
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	req.Header.Set("Authorization", "Bearer events-token")
	rr := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var doc map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if doc["openapi"] != "3.1.0" {
		t.Fatalf("expected openapi 3.1.0, got %v", doc["openapi"])
	}
}
