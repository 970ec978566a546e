package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hookbridge/hookbridge/internal/api"
)

// StatsState tracks gateway counters from /stats polling.
type StatsState struct {
	Stats     api.StatsResponse
	Connected bool
	LastCheck time.Time
}

func renderHeader(stats StatsState, ticker Ticker, spinner Spinner, theme Theme, width int) string {
	innerWidth := width - 4

	// Status
	statusText := theme.StatusOK.Render("HEALTHY")
	statusIcon := "✅"
	if !stats.Connected {
		statusText = theme.StatusFailed.Render("CONNECTING")
		statusIcon = "🔌"
	}

	// Uptime
	uptime := time.Duration(stats.Stats.UptimeSeconds) * time.Second
	uptimeStr := formatDuration(uptime)

	// Last event
	lastEventStr := "never"
	if !spinner.LastEvent().IsZero() {
		ago := time.Since(spinner.LastEvent()).Round(time.Second)
		lastEventStr = fmt.Sprintf("%s ago", ago)
	}

	// Title line with ticker and clock
	tickerStr := theme.Highlight.Render(ticker.Current())
	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	titleText := fmt.Sprintf(" HOOKBRIDGE WATCH %s", tickerStr)

	// Calculate padding between title and clock
	titleWidth := lipgloss.Width(titleText)
	clockWidth := lipgloss.Width(clock)
	pad := innerWidth - titleWidth - clockWidth - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	// Stats line
	p := stats.Stats.Pipelines
	statsLine := fmt.Sprintf(" %s %s  ⏱ %s  Queue: %d  Workers: %d",
		statusIcon, statusText,
		uptimeStr,
		p.QueueDepth,
		p.Workers,
	)

	// Counters line
	countersLine := fmt.Sprintf(" Written: %d  Deleted: %d  Dropped: %d  Sink errors: %s",
		p.DocumentsWritten,
		p.DocumentsDeleted,
		p.Dropped,
		renderErrorCount(p.SinkErrors, theme),
	)

	// Activity line
	activityLine := fmt.Sprintf(" Last event: %s %s",
		lastEventStr,
		spinner.Render(theme),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleLine,
		statsLine,
		countersLine,
		activityLine,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func renderErrorCount(n int64, theme Theme) string {
	if n > 0 {
		return theme.StatusFailed.Render(fmt.Sprintf("%d", n))
	}
	return fmt.Sprintf("%d", n)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
