package webhook

import (
	"context"

	"github.com/hookbridge/hookbridge/internal/event"
	"github.com/hookbridge/hookbridge/internal/source"
)

// Dispatcher hands accepted events to the pipeline executor.
type Dispatcher interface {
	Dispatch(ctx context.Context, integration string, ev *event.NormalizedEvent) error
}

// Config holds the ingest listener configuration.
type Config struct {
	Listen string

	// MaxBodySize caps request bodies in bytes (default: 1MB).
	MaxBodySize int64

	// ReadyCheck backs the readiness probe; nil means always ready.
	ReadyCheck func(ctx context.Context) error

	// Trace enables OpenTelemetry HTTP instrumentation.
	Trace bool

	Endpoints []Endpoint
}

// Endpoint binds one webhook path to an integration: its signature
// secret, the field carrying the event type, and the event-type registry
// used for normalization.
type Endpoint struct {
	// Integration is the configured integration name, used to select
	// pipelines at dispatch time.
	Integration string

	// Path is the URL path this endpoint listens on (e.g. "/jira/webhook").
	Path string

	// SignatureHeader is the HTTP header carrying the HMAC signature
	// (e.g. "X-Hub-Signature").
	SignatureHeader string

	// EventTypeField is the body field holding the event-type string
	// (e.g. "webhookEvent"). Dot paths are allowed.
	EventTypeField string

	// Secret is the resolved HMAC signing secret.
	Secret []byte

	// Registry maps event types to identity fields and operations.
	Registry source.Registry
}

// AcceptedResponse is the JSON response for accepted deliveries.
type AcceptedResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// ErrorResponse is the JSON response for rejected deliveries.
type ErrorResponse struct {
	Error string `json:"error"`
}
