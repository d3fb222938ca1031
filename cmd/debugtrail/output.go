package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"debugtrail/internal/domain"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	dimColor     = lipgloss.Color("#6272A4")
	textColor    = lipgloss.Color("#F8F8F2")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	textStyle   = lipgloss.NewStyle().Foreground(textColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555")),
		domain.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		domain.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")),
		domain.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")),
	}

	statusStyles = map[domain.Status]lipgloss.Style{
		domain.StatusActive:    lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		domain.StatusCompleted: lipgloss.NewStyle().Foreground(primaryColor),
		domain.StatusAbandoned: lipgloss.NewStyle().Foreground(dimColor),
	}
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func renderSeverity(s domain.Severity) string {
	if style, ok := severityStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func renderStatus(s domain.Status) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

// truncate shortens s to width cells, keeping ANSI sequences intact.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// pad right-pads s to width display cells.
func pad(s string, width int) string {
	if gap := width - ansi.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// printTable writes rows as aligned columns. The last column is truncated so
// that each line fits width.
func printTable(w io.Writer, header []string, rows [][]string, width int) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = ansi.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], ansi.StringWidth(c))
		}
	}
	line := func(cells []string, style func(string) string) {
		used := 0
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == len(cells)-1 {
				parts[i] = truncate(c, width-used)
				continue
			}
			parts[i] = pad(c, widths[i])
			used += widths[i] + 2
		}
		fmt.Fprintln(w, style(strings.TrimRight(strings.Join(parts, "  "), " ")))
	}
	line(header, func(s string) string { return headerStyle.Render(s) })
	for _, row := range rows {
		line(row, func(s string) string { return s })
	}
}

func printSessionList(w io.Writer, sessions []*domain.DebugSession, width int) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No sessions."))
		return
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			shortID(s.ID),
			renderStatus(s.Status),
			fmt.Sprintf("%d", len(s.Diagnostics)),
			fmt.Sprintf("%d", len(s.Fixes)),
			formatDuration(s.Duration()),
			s.Project,
			s.Name,
		})
	}
	printTable(w, []string{"ID", "STATUS", "DIAG", "FIXES", "AGE", "PROJECT", "NAME"}, rows, width)
}

func printSessionDetail(w io.Writer, s *domain.DebugSession, width int) {
	fmt.Fprintln(w, titleStyle.Render(s.Name)+dimStyle.Render(" • "+s.Project))
	fmt.Fprintf(w, "%s %s  %s %s\n", dimStyle.Render("id"), s.ID, dimStyle.Render("status"), renderStatus(s.Status))
	fmt.Fprintf(w, "%s %s  %s %s\n", dimStyle.Render("created"), s.CreatedAt.Local().Format(time.DateTime),
		dimStyle.Render("duration"), formatDuration(s.Duration()))
	switch s.Status {
	case domain.StatusCompleted:
		if s.Summary != "" {
			fmt.Fprintln(w, textStyle.Render(wrap(s.Summary, width, 0)))
		}
	case domain.StatusAbandoned:
		if s.AbandonmentReason != "" {
			fmt.Fprintln(w, textStyle.Render(wrap(s.AbandonmentReason, width, 0)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Diagnostics (%d)", len(s.Diagnostics))))
	for _, run := range s.Diagnostics {
		state := "running"
		if d, ok := run.Duration(); ok {
			state = formatDuration(time.Duration(d * float64(time.Second)))
		}
		fmt.Fprintf(w, "%s  %s on %s  %s  %d issues\n", shortID(run.ID), run.Tool, run.Target, dimStyle.Render(state), len(run.IssuesFound))
		for _, issue := range run.IssuesFound {
			printIssueLine(w, issue, width)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Fixes (%d)", len(s.Fixes))))
	for _, fix := range s.Fixes {
		result := "failed"
		if fix.Successful {
			result = "ok"
		}
		fmt.Fprintf(w, "%s  %s on %s  %s  %d files, %d resolved\n", shortID(fix.ID), fix.Script, fix.Target,
			dimStyle.Render(result), len(fix.Changes), len(fix.ResolvedIssues))
		for _, c := range fix.Changes {
			sum := c.SummarizeChanges()
			fmt.Fprintf(w, "    %s +%d -%d (%.2f%%)\n", c.FilePath, sum.LinesAdded, sum.LinesRemoved, sum.ChangePercentage)
		}
	}
}

func printIssueLine(w io.Writer, issue *domain.Issue, width int) {
	marker := " "
	if issue.IsFixed() {
		marker = "✓"
	}
	head := fmt.Sprintf("  %s %s %s %s", marker, pad(renderSeverity(issue.Severity), 8), issue.ID, dimStyle.Render(issue.Location))
	fmt.Fprintln(w, truncate(head, width))
	if issue.Description != "" {
		fmt.Fprintln(w, wrap(issue.Description, width, 6))
	}
}

// wrap word-wraps s to width and indents every line by n spaces.
func wrap(s string, width int, n int) string {
	if width > n {
		s = wordwrap.String(s, width-n)
	}
	if n == 0 {
		return s
	}
	return indent.String(s, uint(n))
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

func severitySummary(counts map[domain.Severity]int) string {
	parts := make([]string, 0, len(domain.Severities))
	for _, s := range domain.Severities {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], renderSeverity(s)))
		}
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
