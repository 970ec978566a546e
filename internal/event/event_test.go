package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeBody(t *testing.T, raw string) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{
			name:   "single value",
			values: []string{"10001"},
			want:   "e443169117a184f91186b401133b20be670c7c0896f9886075e5d9b81e9d076b",
		},
		{
			name:   "two values joined by delimiter",
			values: []string{"10001", "PROJ-123"},
			want:   "3b7807a131dbdd42b13fd4bd3be16faadb5447d4a47a01944068f6b3ca4ed59e",
		},
		{
			name:   "no values",
			values: nil,
			want:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalID(tt.values); got != tt.want {
				t.Errorf("CanonicalID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	body := decodeBody(t, `{
		"issue": {"id": "10001", "fields": {"summary": "Test Issue", "labels": ["a", "b"]}},
		"count": 3,
		"items": [{"name": "first"}, {"name": "second"}]
	}`)

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{name: "nested string", path: "issue.id", want: "10001", found: true},
		{name: "deep nested", path: "issue.fields.summary", want: "Test Issue", found: true},
		{name: "top-level number", path: "count", want: float64(3), found: true},
		{name: "array index", path: "items.1.name", want: "second", found: true},
		{name: "array leaf", path: "issue.fields.labels.0", want: "a", found: true},
		{name: "missing key", path: "issue.missing", found: false},
		{name: "index out of range", path: "items.5.name", found: false},
		{name: "non-numeric index", path: "items.first.name", found: false},
		{name: "descend into scalar", path: "count.x", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Lookup(body, tt.path)
			if found != tt.found {
				t.Fatalf("Lookup() found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("Lookup() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{name: "string verbatim", v: "PROJ-123", want: "PROJ-123"},
		{name: "integer-valued float", v: float64(10001), want: "10001"},
		{name: "fractional float", v: 1.5, want: "1.5"},
		{name: "bool", v: true, want: "true"},
		{name: "null", v: nil, want: "null"},
		{name: "object compact json", v: map[string]any{"id": "1"}, want: `{"id":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueString(tt.v); got != tt.want {
				t.Errorf("ValueString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeKnownType(t *testing.T) {
	body := decodeBody(t, `{"webhookEvent":"jira:issue_created","issue":{"id":"10001","key":"PROJ-123","fields":{"summary":"Test Issue"}}}`)
	spec := &TypeSpec{PKFields: []string{"issue.id"}, Operation: OpWrite}

	ev, err := Normalize("jira:issue_created", body, spec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// id is the digest of the pk value alone, not of the path or the body
	want := "e443169117a184f91186b401133b20be670c7c0896f9886075e5d9b81e9d076b"
	if ev.ID != want {
		t.Errorf("ID = %v, want %v", ev.ID, want)
	}
	if ev.EventType != "jira:issue_created" {
		t.Errorf("EventType = %v", ev.EventType)
	}
	if ev.Operation != OpWrite {
		t.Errorf("Operation = %v, want write", ev.Operation)
	}
	if len(ev.PKFields) != 1 || ev.PKFields[0] != "issue.id" {
		t.Errorf("PKFields = %v", ev.PKFields)
	}
}

func TestNormalizeSameEntitySameID(t *testing.T) {
	spec := &TypeSpec{PKFields: []string{"issue.id"}, Operation: OpWrite}

	created := decodeBody(t, `{"webhookEvent":"jira:issue_created","issue":{"id":"10001","fields":{"summary":"v1"}}}`)
	updated := decodeBody(t, `{"webhookEvent":"jira:issue_updated","issue":{"id":"10001","fields":{"summary":"v2"}}}`)

	a, err := Normalize("jira:issue_created", created, spec)
	if err != nil {
		t.Fatalf("Normalize(created) error = %v", err)
	}
	b, err := Normalize("jira:issue_updated", updated, spec)
	if err != nil {
		t.Fatalf("Normalize(updated) error = %v", err)
	}

	if a.ID != b.ID {
		t.Errorf("same entity produced different ids: %v vs %v", a.ID, b.ID)
	}
}

func TestNormalizeUnknownType(t *testing.T) {
	body := decodeBody(t, `{"webhookEvent":"jira:sprint_started","sprint":{"id":7}}`)

	ev, err := Normalize("jira:sprint_started", body, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.Operation != OpWrite {
		t.Errorf("Operation = %v, want write", ev.Operation)
	}
	if len(ev.PKFields) != 0 {
		t.Errorf("PKFields = %v, want empty", ev.PKFields)
	}
	if ev.ID == "" {
		t.Error("unknown events still get a deterministic id")
	}
}

func TestNormalizeMissingIdentityField(t *testing.T) {
	body := decodeBody(t, `{"webhookEvent":"jira:issue_created","issue":{"key":"PROJ-123"}}`)
	spec := &TypeSpec{PKFields: []string{"issue.id"}, Operation: OpWrite}

	_, err := Normalize("jira:issue_created", body, spec)
	if !errors.Is(err, ErrMissingIdentityField) {
		t.Fatalf("Normalize() error = %v, want ErrMissingIdentityField", err)
	}
}

func TestNormalizeDeleteOperation(t *testing.T) {
	body := decodeBody(t, `{"webhookEvent":"jira:issue_deleted","issue":{"id":"10001"}}`)
	spec := &TypeSpec{PKFields: []string{"issue.id"}, Operation: OpDelete}

	ev, err := Normalize("jira:issue_deleted", body, spec)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.Operation != OpDelete {
		t.Errorf("Operation = %v, want delete", ev.Operation)
	}
}
