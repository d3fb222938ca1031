package timeline

import (
	"debugtrail/internal/domain"
)

// Stats are aggregate numbers derived from a session.
type Stats struct {
	Diagnostics      int                     `json:"diagnostics" yaml:"diagnostics"`
	OpenDiagnostics  int                     `json:"open_diagnostics" yaml:"open_diagnostics"`
	DiagnosticTime   float64                 `json:"diagnostic_seconds" yaml:"diagnostic_seconds"`
	Issues           int                     `json:"issues" yaml:"issues"`
	IssuesBySeverity map[domain.Severity]int `json:"issues_by_severity" yaml:"issues_by_severity"`
	ResolvedIssues   int                     `json:"resolved_issues" yaml:"resolved_issues"`
	Fixes            int                     `json:"fixes" yaml:"fixes"`
	SuccessfulFixes  int                     `json:"successful_fixes" yaml:"successful_fixes"`
	FilesChanged     []string                `json:"files_changed" yaml:"files_changed"`
	LinesAdded       int                     `json:"lines_added" yaml:"lines_added"`
	LinesRemoved     int                     `json:"lines_removed" yaml:"lines_removed"`
	Duration         float64                 `json:"duration_seconds" yaml:"duration_seconds"`
}

// FixSuccessRate is the share of successful fixes in percent, 0 when no fix was applied.
func (s Stats) FixSuccessRate() float64 {
	if s.Fixes == 0 {
		return 0
	}
	return float64(s.SuccessfulFixes) / float64(s.Fixes) * 100
}

// Stats computes aggregate numbers for the timeline's session.
func (t *Timeline) Stats() Stats {
	s := t.Session
	st := Stats{
		Diagnostics:      len(s.Diagnostics),
		Fixes:            len(s.Fixes),
		IssuesBySeverity: domain.NewSeverityCounts(),
		FilesChanged:     []string{},
		Duration:         s.Duration().Seconds(),
	}
	for _, run := range s.Diagnostics {
		if d, ok := run.Duration(); ok {
			st.DiagnosticTime += d
		} else {
			st.OpenDiagnostics++
		}
		st.Issues += len(run.IssuesFound)
		for sev, n := range run.CountIssuesBySeverity() {
			st.IssuesBySeverity[sev] += n
		}
		for _, issue := range run.IssuesFound {
			if issue.IsFixed() {
				st.ResolvedIssues++
			}
		}
	}

	seen := map[string]struct{}{}
	for _, fix := range s.Fixes {
		if fix.Successful {
			st.SuccessfulFixes++
		}
		for _, c := range fix.Changes {
			sum := c.SummarizeChanges()
			st.LinesAdded += sum.LinesAdded
			st.LinesRemoved += sum.LinesRemoved
			if _, ok := seen[c.FilePath]; !ok {
				seen[c.FilePath] = struct{}{}
				st.FilesChanged = append(st.FilesChanged, c.FilePath)
			}
		}
	}
	return st
}
