package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/adanalyst/internal/orchestrator"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// statusSymbol renders a status as a colored marker.
func statusSymbol(s orchestrator.Status) string {
	switch s {
	case orchestrator.StatusCompleted:
		return okStyle.Render("✓")
	case orchestrator.StatusFailed:
		return errorStyle.Render("✗")
	case orchestrator.StatusStarted:
		return warnStyle.Render("…")
	default:
		return dimStyle.Render("?")
	}
}

func formatEvent(ev orchestrator.StageEvent) string {
	line := fmt.Sprintf("%s %-16s %s", statusSymbol(ev.Status), ev.Step, ev.Status)
	if d := ev.DetailText(); d != "" {
		line += " " + dimStyle.Render(d)
	}
	return line
}

// progressPrinter prints finished stage transitions. Started events of
// inner stages are skipped to keep one line per stage.
func progressPrinter(w io.Writer) orchestrator.EventCallback {
	return func(ev orchestrator.StageEvent) {
		if ev.Status == orchestrator.StatusStarted && ev.Step != orchestrator.StagePipeline {
			return
		}
		fmt.Fprintln(w, formatEvent(ev))
	}
}

// renderSummary boxes the final stage statuses and the output locations.
func renderSummary(events []orchestrator.StageEvent, reportsDir, logsDir string) string {
	last := make(map[orchestrator.Stage]orchestrator.StageEvent)
	for _, ev := range events {
		last[ev.Step] = ev
	}

	var b strings.Builder
	for _, st := range orchestrator.AllStages() {
		ev, ok := last[st]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", statusSymbol(ev.Status), st)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("report:"), filepath.Join(reportsDir, orchestrator.ReportFile))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("insights:"), filepath.Join(reportsDir, orchestrator.InsightsFile))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("creatives:"), filepath.Join(reportsDir, orchestrator.CreativesFile))
	fmt.Fprintf(&b, "%s %s", labelStyle.Render("log:"), filepath.Join(logsDir, orchestrator.LogFile))
	return boxStyle.Render(b.String()) + "\n"
}
