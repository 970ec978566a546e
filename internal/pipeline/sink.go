package pipeline

import (
	"context"
	"fmt"

	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/event"
	"github.com/hookbridge/hookbridge/internal/store"
)

// Metadata fields stamped onto every stored document.
const (
	MetaID        = "_id"
	MetaEventType = "_eventType"
)

// FallbackIDField is synthesized on insert-only documents whose mapped
// body no longer resolves any declared identity path, so every stored
// row stays traceable to its originating event.
const FallbackIDField = "id"

// Sink is one compiled sink target of a pipeline.
type Sink struct {
	Collection string
	Mode       string
}

// Write persists one processed event. doc is the working body after
// mappers ran; the original event id and operation always apply
// regardless of what mapping produced.
//
// Upsert mode replaces the document keyed by the event id in full, or
// removes it when the operation is a delete (a missing target is not an
// error). Insert-only mode appends a fresh document on every delivery,
// delete operations included, and never deduplicates.
func (s Sink) Write(ctx context.Context, st store.DocumentStore, ev *event.NormalizedEvent, doc map[string]any) error {
	if s.Mode == config.SinkModeInsertOnly {
		out := make(map[string]any, len(doc)+2)
		for k, v := range doc {
			out[k] = v
		}
		out[MetaEventType] = ev.EventType
		if !hasIdentityFields(doc, ev.PKFields) {
			out[FallbackIDField] = ev.ID
		}
		if err := st.Insert(ctx, s.Collection, out); err != nil {
			return fmt.Errorf("insert into %s: %w", s.Collection, err)
		}
		return nil
	}

	if ev.Operation == event.OpDelete {
		if err := st.Delete(ctx, s.Collection, ev.ID); err != nil {
			return fmt.Errorf("delete from %s: %w", s.Collection, err)
		}
		return nil
	}

	out := make(map[string]any, len(doc)+2)
	for k, v := range doc {
		out[k] = v
	}
	out[MetaID] = ev.ID
	out[MetaEventType] = ev.EventType
	if err := st.Upsert(ctx, s.Collection, ev.ID, out); err != nil {
		return fmt.Errorf("upsert into %s: %w", s.Collection, err)
	}
	return nil
}

// hasIdentityFields reports whether every declared identity path still
// resolves in the mapped body.
func hasIdentityFields(doc map[string]any, paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if _, ok := event.Lookup(doc, p); !ok {
			return false
		}
	}
	return true
}
