package event

import (
	"errors"
	"fmt"
)

// ErrMissingIdentityField reports a known event type whose payload lacks
// one of its declared primary-key paths. The dispatcher drops such events
// after the HTTP response has been decided; the caller still sees 200.
var ErrMissingIdentityField = errors.New("missing identity field")

// Normalize reduces a parsed webhook body to canonical form. spec is the
// registry entry for eventType, or nil when the type is unknown.
//
// Unknown types still normalize: operation write, no pk fields, the full
// body. Acceptance never depends on registry coverage; uncovered events
// are dropped by pipeline filters instead of being rejected at the door.
func Normalize(eventType string, body map[string]any, spec *TypeSpec) (*NormalizedEvent, error) {
	if spec == nil {
		return &NormalizedEvent{
			ID:        CanonicalID(nil),
			Body:      body,
			EventType: eventType,
			PKFields:  []string{},
			Operation: OpWrite,
		}, nil
	}

	values := make([]string, 0, len(spec.PKFields))
	for _, path := range spec.PKFields {
		v, ok := Lookup(body, path)
		if !ok {
			return nil, fmt.Errorf("%w: %s payload has no %q", ErrMissingIdentityField, eventType, path)
		}
		values = append(values, ValueString(v))
	}

	return &NormalizedEvent{
		ID:        CanonicalID(values),
		Body:      body,
		EventType: eventType,
		PKFields:  spec.PKFields,
		Operation: spec.Operation,
	}, nil
}
