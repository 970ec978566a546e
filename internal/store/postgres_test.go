package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Postgres tests run only against a real database, selected by
// TEST_POSTGRES_DSN (e.g. postgres://hb:hb@localhost:5432/hb_test).
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresUpsertGetDelete(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	// unique collection per run so reruns against a shared database don't
	// see each other's rows
	collection := "issues_" + uuid.NewString()

	if err := s.Upsert(ctx, collection, "id-1", map[string]any{"summary": "v1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, collection, "id-1", map[string]any{"summary": "v2"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := s.Count(ctx, collection)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1 after repeated upsert", n)
	}

	doc, found, err := s.Get(ctx, collection, "id-1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if doc["summary"] != "v2" {
		t.Errorf("summary = %v, want v2", doc["summary"])
	}

	if err := s.Delete(ctx, collection, "id-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := s.Get(ctx, collection, "id-1"); found {
		t.Error("document survived delete")
	}
	if err := s.Delete(ctx, collection, "missing"); err != nil {
		t.Errorf("Delete of absent document: %v", err)
	}
}

func TestPostgresInsertNeverDeduplicates(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	collection := "audit_" + uuid.NewString()
	doc := map[string]any{"id": "same-event"}
	for range 3 {
		if err := s.Insert(ctx, collection, doc); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := s.Count(ctx, collection)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}
