package domain

import (
	"context"
	"time"

	"debugtrail/internal/command"
	"debugtrail/internal/debug"
)

const issueTypeExecutionError = "execution_error"

// DiagnosticRun is one execution of an analysis tool against a target.
type DiagnosticRun struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Tool        string          `json:"tool"`
	Target      string          `json:"target"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	Parameters  map[string]any  `json:"parameters,omitempty"`
	Results     *command.Result `json:"results,omitempty"`
	IssuesFound []*Issue        `json:"issues_found"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

func newDiagnosticRun(sessionID, tool, target string, params map[string]any) *DiagnosticRun {
	return &DiagnosticRun{
		ID:          NewID(),
		SessionID:   sessionID,
		Tool:        tool,
		Target:      target,
		StartTime:   Now(),
		Parameters:  params,
		IssuesFound: []*Issue{},
	}
}

// Finished reports whether EndTime has been recorded.
func (r *DiagnosticRun) Finished() bool {
	return r.EndTime != nil
}

// Complete records EndTime. Later calls keep the first value.
func (r *DiagnosticRun) Complete() {
	if r.EndTime != nil {
		return
	}
	end := Now()
	if end.Before(r.StartTime) {
		end = r.StartTime
	}
	r.EndTime = &end
}

// Duration returns the run length in seconds, or false while the run is open.
func (r *DiagnosticRun) Duration() (float64, bool) {
	if r.EndTime == nil {
		return 0, false
	}
	return r.EndTime.Sub(r.StartTime).Seconds(), true
}

// AddIssue appends a new issue while the run is open.
func (r *DiagnosticRun) AddIssue(issueType string, severity Severity, location, description string) (*Issue, error) {
	if r.Finished() {
		return nil, runFinishedError(r.ID)
	}
	return r.addFinding(Finding{
		Type:        issueType,
		Severity:    severity,
		Location:    location,
		Description: description,
	}), nil
}

func (r *DiagnosticRun) addFinding(f Finding) *Issue {
	issue := NewIssue(len(r.IssuesFound), r.Target, f.Type, f.Severity, f.Location, f.Description)
	issue.Metadata = f.Metadata
	r.IssuesFound = append(r.IssuesFound, issue)
	return issue
}

// RunCommand executes argv, stores its output and parses stdout with the
// parser registered for the run's tool. A process that cannot be started is
// recorded as a single critical issue; RunCommand itself never fails. The run
// is always finished on return.
func (r *DiagnosticRun) RunCommand(ctx context.Context, runner command.Runner, parsers *ParserRegistry, argv []string) {
	defer r.Complete()

	if r.Finished() {
		debug.Warnf("diagnostic run %s already finished, command ignored", r.ID)
		return
	}
	if parsers == nil {
		parsers = DefaultParsers()
	}

	res, err := runner.Run(ctx, argv)
	if err != nil {
		debug.Logf("diagnostic %s: %s failed to execute: %v", r.ID, r.Tool, err)
		r.Results = &res
		r.addFinding(Finding{
			Type:        issueTypeExecutionError,
			Severity:    SeverityCritical,
			Location:    r.Target,
			Description: err.Error(),
		})
		return
	}
	r.Results = &res

	for _, f := range parseSafely(parsers.Lookup(r.Tool), res.Stdout, r.Target) {
		r.addFinding(f)
	}
	debug.Logf("diagnostic %s: %s exited %d with %d issues", r.ID, r.Tool, res.ReturnCode, len(r.IssuesFound))
}

// CountIssuesBySeverity tallies issues over the four known levels. Unknown
// severities are ignored.
func (r *DiagnosticRun) CountIssuesBySeverity() map[Severity]int {
	counts := NewSeverityCounts()
	for _, issue := range r.IssuesFound {
		if s, ok := ParseSeverity(string(issue.Severity)); ok {
			counts[s]++
		}
	}
	return counts
}

// FindIssue returns the issue with id, if the run owns it.
func (r *DiagnosticRun) FindIssue(id string) *Issue {
	for _, issue := range r.IssuesFound {
		if issue.ID == id {
			return issue
		}
	}
	return nil
}
