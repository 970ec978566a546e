package event

// Operation describes what an event does to its target entity.
type Operation string

const (
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
)

// TypeSpec declares how events of one type map onto a stored entity:
// which body paths identify the entity, and whether the event writes or
// deletes it. Registries of TypeSpecs are loaded at startup and read-only
// afterwards.
type TypeSpec struct {
	// PKFields are the body paths whose values identify the entity,
	// in the order they participate in the canonical id.
	PKFields []string `yaml:"pk"`

	// Operation is what a matching event does to the entity.
	Operation Operation `yaml:"operation"`
}

// NormalizedEvent is the canonical form every accepted payload is reduced
// to before pipeline processing. It is created once per request and never
// mutated; pipelines receive it read-only.
type NormalizedEvent struct {
	// ID is the hex SHA-256 canonical identity (see CanonicalID). Sinks
	// key documents by it. Computed once at normalization time, never
	// recomputed from a mapped body.
	ID string `json:"id"`

	// Body is the full decoded webhook payload.
	Body map[string]any `json:"body"`

	// EventType is the declared source event type, e.g. "jira:issue_created".
	// Empty when the payload carried none.
	EventType string `json:"event_type"`

	// PKFields are the identity paths from the matched TypeSpec, empty for
	// unknown event types.
	PKFields []string `json:"pk_fields"`

	Operation Operation `json:"operation"`
}
