package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/hookbridge/hookbridge/internal/events"
)

// PipelineState tracks per-pipeline sink outcomes observed on the event feed.
type PipelineState struct {
	Name        string
	Written     int64
	Deleted     int64
	Dropped     int64
	SinkErrors  int64
	LastOutcome string
	LastEvent   time.Time
}

// updatePipelineState processes an event and updates pipeline tracking.
func updatePipelineState(pipelines map[string]*PipelineState, e events.Event) {
	switch e.Type {
	case events.TypeDocumentWritten, events.TypeDocumentDeleted,
		events.TypePipelineDropped, events.TypeSinkError:
	default:
		return
	}

	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	name, _ := data["pipeline"].(string)
	if name == "" {
		return
	}

	p, ok := pipelines[name]
	if !ok {
		p = &PipelineState{Name: name}
		pipelines[name] = p
	}
	p.LastEvent = time.Now()

	switch e.Type {
	case events.TypeDocumentWritten:
		p.Written++
		p.LastOutcome = "written"
	case events.TypeDocumentDeleted:
		p.Deleted++
		p.LastOutcome = "deleted"
	case events.TypePipelineDropped:
		p.Dropped++
		reason, _ := data["reason"].(string)
		if reason != "" {
			p.LastOutcome = "dropped (" + reason + ")"
		} else {
			p.LastOutcome = "dropped"
		}
	case events.TypeSinkError:
		p.SinkErrors++
		p.LastOutcome = "sink error"
	}
}

// sortedPipelineNames returns pipeline names in stable sorted order.
func sortedPipelineNames(pipelines map[string]*PipelineState) []string {
	names := make([]string, 0, len(pipelines))
	for name := range pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newPipelineTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Pipeline", Width: 24},
			{Title: "Written", Width: 8},
			{Title: "Deleted", Width: 8},
			{Title: "Dropped", Width: 8},
			{Title: "Errors", Width: 7},
			{Title: "Last", Width: 30},
		}),
		table.WithFocused(true),
		table.WithHeight(6),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func pipelineRows(pipelines map[string]*PipelineState) []table.Row {
	var rows []table.Row
	for _, name := range sortedPipelineNames(pipelines) {
		p := pipelines[name]

		last := p.LastOutcome
		if !p.LastEvent.IsZero() {
			last = fmt.Sprintf("%s %s", p.LastOutcome, formatAgo(time.Since(p.LastEvent).Round(time.Second)))
		}

		rows = append(rows, table.Row{
			p.Name,
			strconv.FormatInt(p.Written, 10),
			strconv.FormatInt(p.Deleted, 10),
			strconv.FormatInt(p.Dropped, 10),
			strconv.FormatInt(p.SinkErrors, 10),
			last,
		})
	}
	return rows
}

func renderPipelines(t table.Model, pipelines map[string]*PipelineState, theme Theme, width int) string {
	innerWidth := width - 4

	if len(pipelines) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("PIPELINES"),
			theme.Dim.Render("  No pipeline activity yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("PIPELINES"),
		t.View(),
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatAgo(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}
