// Package inspect renders stored documents as terminal-friendly or
// machine-readable reports.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hookbridge/hookbridge/internal/pipeline"
	"github.com/hookbridge/hookbridge/internal/store"
)

// Report is the structured JSON representation of a document report.
type Report struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	EventType  string         `json:"event_type,omitempty"`
	Documents  int64          `json:"documents"`
	Document   map[string]any `json:"document"`
}

// BuildReport renders a terminal-friendly report for a stored document.
func BuildReport(ctx context.Context, st store.DocumentStore, collection, id string) (string, error) {
	report, err := gatherReportData(ctx, st, collection, id)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Document Report\n")
	fmt.Fprintf(&out, "Collection : %s\n", report.Collection)
	fmt.Fprintf(&out, "Documents  : %d\n", report.Documents)
	fmt.Fprintf(&out, "ID         : %s\n", report.ID)
	if report.EventType != "" {
		fmt.Fprintf(&out, "Event Type : %s\n", report.EventType)
	}
	fmt.Fprintf(&out, "Fields     : %d\n", len(report.Document))
	fmt.Fprintf(&out, "\n")

	for _, line := range strings.Split(strings.TrimSpace(prettyJSON(report.Document)), "\n") {
		fmt.Fprintf(&out, "  %s\n", line)
	}

	return out.String(), nil
}

// BuildJSONReport returns the machine-readable JSON document report.
func BuildJSONReport(ctx context.Context, st store.DocumentStore, collection, id string) (string, error) {
	report, err := gatherReportData(ctx, st, collection, id)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

func gatherReportData(ctx context.Context, st store.DocumentStore, collection, id string) (*Report, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("collection is required")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id is required")
	}

	doc, ok, err := st.Get(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("query document %q: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("document %q not found in collection %q", id, collection)
	}

	total, err := st.Count(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("count collection %q: %w", collection, err)
	}

	report := &Report{
		Collection: collection,
		ID:         id,
		Documents:  total,
		Document:   doc,
	}
	if et, ok := doc[pipeline.MetaEventType].(string); ok {
		report.EventType = et
	}
	return report, nil
}

func prettyJSON(doc map[string]any) string {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", doc)
	}
	return string(out)
}
