package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hookbridge/hookbridge/internal/events"
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= 10 {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	// Color the event type based on category
	var typeStyle lipgloss.Style
	switch e.Type {
	case events.TypeDocumentWritten, events.TypeDocumentDeleted:
		typeStyle = theme.StatusOK
	case events.TypeSinkError, events.TypeEventRejected:
		typeStyle = theme.StatusFailed
	case events.TypeEventAccepted:
		typeStyle = theme.StatusRunning
	case events.TypePipelineDropped:
		typeStyle = theme.Highlight
	default:
		typeStyle = theme.Dim
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-17s", e.Type))

	// Extract brief description from data
	desc := extractEventDesc(e)

	return fmt.Sprintf("%s %s %s", ts, typeName, desc)
}

func extractEventDesc(e events.Event) string {
	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	var parts []string

	if eventID, ok := data["event_id"].(string); ok {
		if len(eventID) > 8 {
			eventID = eventID[:8]
		}
		parts = append(parts, fmt.Sprintf("[%s]", eventID))
	}

	if integration, ok := data["integration"].(string); ok {
		parts = append(parts, integration)
	}

	if pipeline, ok := data["pipeline"].(string); ok && pipeline != "" {
		parts = append(parts, pipeline)
	}

	if eventType, ok := data["event_type"].(string); ok && eventType != "" {
		parts = append(parts, eventType)
	}

	if collection, ok := data["collection"].(string); ok && collection != "" {
		parts = append(parts, "→ "+collection)
	}

	if reason, ok := data["reason"].(string); ok && reason != "" {
		parts = append(parts, reason)
	}

	if errText, ok := data["error"].(string); ok && errText != "" {
		parts = append(parts, errText)
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	return strings.Join(parts, " ")
}
