// Package report renders timeline documents for people: Markdown, a
// self-contained HTML page, or styled terminal output.
package report

import (
	"fmt"
	"strings"
	"time"

	"debugtrail/internal/domain"
	"debugtrail/internal/timeline"
)

// Markdown renders doc as a GitHub-flavoured Markdown report.
func Markdown(doc timeline.Document) string {
	var b strings.Builder
	s := doc.Session

	fmt.Fprintf(&b, "# Debug Session: %s\n\n", inline(s.Name))
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| ID | `%s` |\n", cell(s.ID))
	fmt.Fprintf(&b, "| Project | %s |\n", cell(s.Project))
	fmt.Fprintf(&b, "| Status | %s |\n", s.Status)
	fmt.Fprintf(&b, "| Created | %s |\n", stamp(s.CreatedAt))
	fmt.Fprintf(&b, "| Updated | %s |\n", stamp(s.UpdatedAt))
	fmt.Fprintf(&b, "| Duration | %s |\n\n", seconds(doc.Stats.Duration))

	switch s.Status {
	case domain.StatusCompleted:
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", orDefault(s.Summary, timeline.NoSummary))
	case domain.StatusAbandoned:
		fmt.Fprintf(&b, "## Abandonment Reason\n\n%s\n\n", orDefault(s.AbandonmentReason, timeline.NoReason))
	}

	writeStats(&b, doc.Stats)

	b.WriteString("## Timeline\n\n")
	for _, e := range doc.Events {
		fmt.Fprintf(&b, "### %s · %s\n\n", e.Timestamp.UTC().Format("2006-01-02 15:04:05"), inline(e.Title))
		writeDetails(&b, e)
	}
	return b.String()
}

func writeStats(b *strings.Builder, st timeline.Stats) {
	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(b, "- Diagnostics: %d", st.Diagnostics)
	if st.OpenDiagnostics > 0 {
		fmt.Fprintf(b, " (%d still running)", st.OpenDiagnostics)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "- Issues: %d (%s)\n", st.Issues, severityLine(st.IssuesBySeverity))
	fmt.Fprintf(b, "- Resolved issues: %d\n", st.ResolvedIssues)
	fmt.Fprintf(b, "- Fixes: %d (%d successful, %.0f%%)\n", st.Fixes, st.SuccessfulFixes, st.FixSuccessRate())
	fmt.Fprintf(b, "- Lines changed: +%d / -%d\n", st.LinesAdded, st.LinesRemoved)
	if len(st.FilesChanged) > 0 {
		b.WriteString("- Files changed:\n")
		for _, f := range st.FilesChanged {
			fmt.Fprintf(b, "  - `%s`\n", f)
		}
	}
	b.WriteString("\n")
}

func writeDetails(b *strings.Builder, e timeline.Event) {
	switch d := e.Details.(type) {
	case timeline.SessionStartDetails:
		fmt.Fprintf(b, "Project **%s**.\n\n", inline(d.Project))
	case timeline.DiagnosticDetails:
		fmt.Fprintf(b, "- Tool: `%s`\n- Target: `%s`\n", d.Tool, d.Target)
		if d.Duration != nil {
			fmt.Fprintf(b, "- Duration: %s\n", seconds(*d.Duration))
		} else {
			b.WriteString("- Duration: still running\n")
		}
		fmt.Fprintf(b, "- Issues: %d (%s)\n\n", d.IssueCount, severityLine(d.Severity))
	case timeline.FixDetails:
		result := "failed"
		if d.Successful {
			result = "succeeded"
		}
		fmt.Fprintf(b, "- Script: `%s`\n- Target: `%s`\n- Result: %s\n- Resolved issues: %d\n\n",
			d.Script, d.Target, result, d.ResolvedCount)
		if len(d.Changes) > 0 {
			b.WriteString("| File | Lines before | Lines after | Added | Removed | Change |\n")
			b.WriteString("|---|---:|---:|---:|---:|---:|\n")
			for _, c := range d.Changes {
				fmt.Fprintf(b, "| `%s` | %d | %d | %d | %d | %.2f%% |\n",
					cell(c.FilePath), c.LinesBefore, c.LinesAfter, c.LinesAdded, c.LinesRemoved, c.ChangePercentage)
			}
			b.WriteString("\n")
		}
	case timeline.SessionEndDetails:
		fmt.Fprintf(b, "%s\n\nTotal time: %s\n\n", d.Summary, seconds(d.Duration))
	case timeline.SessionAbandonedDetails:
		fmt.Fprintf(b, "%s\n\nTotal time: %s\n\n", d.Reason, seconds(d.Duration))
	}
}

func severityLine(counts map[domain.Severity]int) string {
	parts := make([]string, 0, len(domain.Severities))
	for _, s := range domain.Severities {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
	}
	return strings.Join(parts, ", ")
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func seconds(s float64) string {
	d := time.Duration(s * float64(time.Second))
	return d.Round(time.Millisecond).String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// inline flattens text onto one line.
func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cell escapes text for a table cell.
func cell(s string) string {
	return strings.ReplaceAll(inline(s), "|", `\|`)
}
