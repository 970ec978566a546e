package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hookbridge/hookbridge/internal/events"
)

// IntegrationState tracks one webhook endpoint in the watch TUI.
type IntegrationState struct {
	Name       string
	Accepted   int64
	Rejected   int64
	LastType   string
	LastReason string
	LastSeen   time.Time
}

func updateIntegrationState(integrations map[string]*IntegrationState, e events.Event) {
	if integrations == nil {
		return
	}
	if e.Type != events.TypeEventAccepted && e.Type != events.TypeEventRejected {
		return
	}

	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	name, _ := data["integration"].(string)
	if name == "" {
		return
	}

	state, ok := integrations[name]
	if !ok {
		state = &IntegrationState{Name: name}
		integrations[name] = state
	}
	state.LastSeen = time.Now()

	switch e.Type {
	case events.TypeEventAccepted:
		state.Accepted++
		if eventType, ok := data["event_type"].(string); ok {
			state.LastType = eventType
		}
		state.LastReason = ""

	case events.TypeEventRejected:
		state.Rejected++
		reason, _ := data["reason"].(string)
		state.LastReason = reason
	}
}

func renderIntegrations(integrations map[string]*IntegrationState, theme Theme, width int) string {
	innerWidth := width - 4

	if len(integrations) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("INTEGRATIONS"),
			theme.Dim.Render("  No webhook traffic yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	names := sortedIntegrationNames(integrations)
	var lines []string
	for i, name := range names {
		if i >= 8 {
			break
		}
		lines = append(lines, renderIntegrationRow(integrations[name], theme))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{theme.Title.Render("INTEGRATIONS")}, lines...)...,
	)
	return theme.Border.Width(innerWidth).Render(content)
}

func renderIntegrationRow(s *IntegrationState, theme Theme) string {
	accepted := theme.StatusOK.Render(fmt.Sprintf("✓ %d", s.Accepted))
	rejected := theme.Dim.Render(fmt.Sprintf("✗ %d", s.Rejected))
	if s.Rejected > 0 {
		rejected = theme.StatusFailed.Render(fmt.Sprintf("✗ %d", s.Rejected))
	}

	last := "last: -"
	if s.LastType != "" {
		last = "last: " + s.LastType
	}
	if !s.LastSeen.IsZero() {
		last += " " + formatAgo(time.Since(s.LastSeen).Round(time.Second))
	}

	reason := ""
	if s.LastReason != "" {
		reason = " " + theme.Dim.Render("reason="+s.LastReason)
	}

	return fmt.Sprintf(" %-20s %s  %s  %s%s", s.Name, accepted, rejected, theme.Dim.Render(last), reason)
}

func sortedIntegrationNames(integrations map[string]*IntegrationState) []string {
	names := make([]string, 0, len(integrations))
	for name := range integrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
