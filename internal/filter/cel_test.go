package filter

import (
	"context"
	"testing"
)

func bindings(eventType string, body map[string]any) map[string]any {
	vars := map[string]any{}
	for k, v := range body {
		vars[k] = v
	}
	vars["eventType"] = eventType
	vars["body"] = body
	return vars
}

func TestEvaluate(t *testing.T) {
	eval, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	body := map[string]any{
		"issue": map[string]any{
			"id":  "10001",
			"key": "PROJ-1",
			"fields": map[string]any{
				"priority": "High",
			},
		},
		"labels":    []any{"bug", "urgent"},
		"count":     float64(3),
		"issue-key": "PROJ-1",
	}

	tests := []struct {
		name    string
		expr    string
		vars    map[string]any
		want    bool
		wantErr bool
	}{
		{
			name: "event type match",
			expr: `eventType == "jira:issue_created"`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name: "event type mismatch",
			expr: `eventType == "jira:issue_deleted"`,
			vars: bindings("jira:issue_created", body),
			want: false,
		},
		{
			name: "top level field spread",
			expr: `issue.key == "PROJ-1"`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name: "nested access through body",
			expr: `body.issue.fields.priority == "High"`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name: "numeric comparison",
			expr: `count > 2`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name: "list membership",
			expr: `"bug" in labels`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name: "logical or",
			expr: `eventType == "other" || issue.id == "10001"`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name: "non identifier key via body index",
			expr: `body["issue-key"] == "PROJ-1"`,
			vars: bindings("jira:issue_created", body),
			want: true,
		},
		{
			name:    "unknown variable",
			expr:    `project.id == "1"`,
			vars:    bindings("jira:issue_created", body),
			wantErr: true,
		},
		{
			name:    "non boolean result",
			expr:    `issue.id`,
			vars:    bindings("jira:issue_created", body),
			wantErr: true,
		},
		{
			name:    "runtime error on missing key",
			expr:    `body.missing.deep == 1`,
			vars:    bindings("jira:issue_created", body),
			wantErr: true,
		},
		{
			name:    "syntax error",
			expr:    `issue.id ==`,
			vars:    bindings("jira:issue_created", body),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(context.Background(), tt.expr, tt.vars)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Evaluate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateReusesCachedPrograms(t *testing.T) {
	eval, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	expr := `issue.id == "10001"`

	got, err := eval.Evaluate(context.Background(), expr, bindings("e", map[string]any{
		"issue": map[string]any{"id": "10001"},
	}))
	if err != nil || !got {
		t.Fatalf("first Evaluate() = %v, %v, want true, nil", got, err)
	}

	// Same expression and binding shape, different values: the cached
	// program must still see the new activation.
	got, err = eval.Evaluate(context.Background(), expr, bindings("e", map[string]any{
		"issue": map[string]any{"id": "99999"},
	}))
	if err != nil || got {
		t.Fatalf("second Evaluate() = %v, %v, want false, nil", got, err)
	}
}

func TestEvaluateDifferentBindingShapes(t *testing.T) {
	eval, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	expr := `eventType == "project_created"`

	for _, body := range []map[string]any{
		{"issue": map[string]any{"id": "1"}},
		{"project": map[string]any{"id": "2"}},
	} {
		got, err := eval.Evaluate(context.Background(), expr, bindings("project_created", body))
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !got {
			t.Errorf("Evaluate() = false, want true")
		}
	}
}

func TestCheck(t *testing.T) {
	eval, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	// Identifiers only the event body can provide must not fail the
	// syntax check.
	for _, expr := range []string{
		`eventType == "jira:issue_created"`,
		`issue.fields.priority == "Critical"`,
		`has(body.project) && body.project.key == "OPS"`,
	} {
		if err := eval.Check(expr); err != nil {
			t.Errorf("Check(%q) error = %v, want nil", expr, err)
		}
	}

	for _, expr := range []string{
		`issue.id ==`,
		`(eventType == "x"`,
		`a &&& b`,
	} {
		if err := eval.Check(expr); err == nil {
			t.Errorf("Check(%q) = nil, want syntax error", expr)
		}
	}
}
