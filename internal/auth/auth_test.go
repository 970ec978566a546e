package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	token, err := ExtractBearerToken(req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token != "test-token" {
		t.Fatalf("expected token %q, got %q", "test-token", token)
	}

	req2 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := ExtractBearerToken(req2); err == nil {
		t.Fatalf("expected error for missing header")
	}

	req3 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req3.Header.Set("Authorization", "Basic abc")
	if _, err := ExtractBearerToken(req3); err == nil {
		t.Fatalf("expected error for non-bearer header")
	}

	req4 := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
	req4.Header.Set("Authorization", "Bearer   ")
	if _, err := ExtractBearerToken(req4); err == nil {
		t.Fatalf("expected error for empty bearer token")
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tokens := []TokenConfig{
		{Token: "stats-token", Scopes: []string{"stats"}},
		{Token: "admin-token", Scopes: []string{"*"}},
	}

	p, ok := Authenticate("stats-token", tokens)
	if !ok {
		t.Fatalf("expected stats-token to authenticate")
	}
	if _, ok := p.Scopes["stats"]; !ok {
		t.Fatalf("expected stats scope, got %v", p.Scopes)
	}

	if _, ok := Authenticate("unknown", tokens); ok {
		t.Fatalf("expected unknown token to be rejected")
	}
	if _, ok := Authenticate("", tokens); ok {
		t.Fatalf("expected empty token to be rejected")
	}
	if _, ok := Authenticate("stats-token", nil); ok {
		t.Fatalf("expected rejection with no configured tokens")
	}
}

func TestHasAnyScope(t *testing.T) {
	t.Parallel()

	scoped, ok := Authenticate("t", []TokenConfig{{Token: "t", Scopes: []string{"events", " ", ""}}})
	if !ok {
		t.Fatalf("expected token to authenticate")
	}
	if !HasAnyScope(scoped, "events") {
		t.Fatalf("expected events scope to pass")
	}
	if HasAnyScope(scoped, "stats") {
		t.Fatalf("expected stats scope to fail")
	}
	if !HasAnyScope(scoped) {
		t.Fatalf("expected no required scopes to pass")
	}

	admin, ok := Authenticate("a", []TokenConfig{{Token: "a", Scopes: []string{"*"}}})
	if !ok {
		t.Fatalf("expected token to authenticate")
	}
	if !HasAnyScope(admin, "stats") {
		t.Fatalf("expected wildcard to grant stats")
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	ctx := WithPrincipal(context.Background(), Principal{Scopes: map[string]struct{}{"stats": {}}})
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatalf("expected principal in context")
	}
	if _, ok := p.Scopes["stats"]; !ok {
		t.Fatalf("expected stats scope")
	}

	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatalf("expected no principal in empty context")
	}
}
