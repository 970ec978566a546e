// Package source holds the built-in event-type registries for supported
// webhook providers. A registry maps a provider's event-type string to the
// identity fields and operation used during normalization; integrations
// may extend or override it from configuration.
package source

import (
	"fmt"

	"github.com/hookbridge/hookbridge/internal/event"
)

// Source kinds accepted in integration config.
const (
	KindJira    = "jira"
	KindWebhook = "webhook"
)

// Wire-level defaults shared by providers that follow the common
// "sha256=<hex>" webhook convention.
const (
	DefaultEventTypeField  = "webhookEvent"
	DefaultSignatureHeader = "X-Hub-Signature"
)

// Registry maps event-type strings to their normalization specs.
// Registries are assembled at startup and read-only at request time.
type Registry map[string]event.TypeSpec

// Spec returns the entry for eventType, or nil when the type is unknown.
func (r Registry) Spec(eventType string) *event.TypeSpec {
	if s, ok := r[eventType]; ok {
		return &s
	}
	return nil
}

// Merge returns a copy of r with overrides applied on top. Config-declared
// event types win over built-ins of the same name.
func (r Registry) Merge(overrides map[string]event.TypeSpec) Registry {
	merged := make(Registry, len(r)+len(overrides))
	for k, v := range r {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// ForKind returns the built-in registry for a source kind. The generic
// webhook kind starts empty and is populated entirely from config.
func ForKind(kind string) (Registry, error) {
	switch kind {
	case KindJira:
		return Jira(), nil
	case KindWebhook, "":
		return Registry{}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
