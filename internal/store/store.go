// Package store provides the document persistence layer behind pipeline
// sinks. Three drivers share one interface: sqlite for single-node
// deployments, postgres for shared ones, redis for ephemeral capture.
package store

import "context"

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/hookbridge/hookbridge/internal/store DocumentStore

// DocumentStore is the persistence boundary sinks write through.
//
// Implementations are internally synchronized: concurrent writes to
// different ids do not interfere, and concurrent writes to the same id
// race with last-writer-wins semantics.
type DocumentStore interface {
	// Upsert replaces or inserts the document keyed by id (full replace,
	// not a merge).
	Upsert(ctx context.Context, collection, id string, doc map[string]any) error

	// Insert appends a new document under a store-generated key. It never
	// deduplicates.
	Insert(ctx context.Context, collection string, doc map[string]any) error

	// Delete removes the document keyed by id. Deleting an absent
	// document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Get fetches the document keyed by id. The second return reports
	// whether it exists.
	Get(ctx context.Context, collection, id string) (map[string]any, bool, error)

	// Count reports how many documents a collection holds.
	Count(ctx context.Context, collection string) (int64, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
