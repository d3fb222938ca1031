package domain

import (
	"strings"
	"time"
)

// DebugSession is one bounded debugging investigation. Diagnostics and fixes
// are append-only logs in the order they were started.
type DebugSession struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Project           string           `json:"project"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Status            Status           `json:"status"`
	Diagnostics       []*DiagnosticRun `json:"diagnostics"`
	Fixes             []*AppliedFix    `json:"fixes"`
	Summary           string           `json:"summary,omitempty"`
	AbandonmentReason string           `json:"abandonment_reason,omitempty"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
}

// NewDebugSession returns an active session with empty logs.
func NewDebugSession(id, name, project string, metadata map[string]any) *DebugSession {
	now := Now()
	return &DebugSession{
		ID:          id,
		Name:        name,
		Project:     project,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      StatusActive,
		Diagnostics: []*DiagnosticRun{},
		Fixes:       []*AppliedFix{},
		Metadata:    metadata,
	}
}

// Validate checks data loaded from storage before it is handed out.
func (s *DebugSession) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return invalidSessionError("session id is blank", nil)
	}
	if err := s.Status.Validate(); err != nil {
		return invalidSessionError("session "+s.ID+" has an invalid status", err)
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return invalidSessionError("session "+s.ID+" was updated before it was created", nil)
	}
	return nil
}

// Touch bumps UpdatedAt. It never moves the clock backwards.
func (s *DebugSession) Touch() {
	now := Now()
	if now.Before(s.UpdatedAt) {
		return
	}
	s.UpdatedAt = now
}

// RunDiagnostic starts a diagnostic run and appends it to the session.
func (s *DebugSession) RunDiagnostic(tool, target string, params map[string]any) *DiagnosticRun {
	run := newDiagnosticRun(s.ID, tool, target, params)
	s.Diagnostics = append(s.Diagnostics, run)
	s.Touch()
	return run
}

// ApplyFix starts a fix and appends it to the session immediately, so that a
// fix that later fails is still part of the history.
func (s *DebugSession) ApplyFix(script, target string, params map[string]any) *AppliedFix {
	fix := newAppliedFix(s.ID, script, target, params)
	s.Fixes = append(s.Fixes, fix)
	s.Touch()
	return fix
}

// Complete marks the session completed with summary. It does not check the
// current status; callers wanting a guard use CanTransitionTo first.
func (s *DebugSession) Complete(summary string) {
	s.Status = StatusCompleted
	s.Summary = summary
	s.Touch()
}

// Abandon marks the session abandoned with reason. Like Complete it does not
// check the current status.
func (s *DebugSession) Abandon(reason string) {
	s.Status = StatusAbandoned
	s.AbandonmentReason = reason
	s.Touch()
}

// Duration is the time between creation and the last update.
func (s *DebugSession) Duration() time.Duration {
	return s.UpdatedAt.Sub(s.CreatedAt)
}

// FindDiagnostic returns the run with id.
func (s *DebugSession) FindDiagnostic(id string) *DiagnosticRun {
	for _, run := range s.Diagnostics {
		if run.ID == id {
			return run
		}
	}
	return nil
}

// FindFix returns the fix with id.
func (s *DebugSession) FindFix(id string) *AppliedFix {
	for _, fix := range s.Fixes {
		if fix.ID == id {
			return fix
		}
	}
	return nil
}

// FindIssue returns the issue with id and the run that owns it. Issue ids are
// only unique within a run, so the most recent run wins.
func (s *DebugSession) FindIssue(id string) (*Issue, *DiagnosticRun) {
	for i := len(s.Diagnostics) - 1; i >= 0; i-- {
		run := s.Diagnostics[i]
		if issue := run.FindIssue(id); issue != nil {
			return issue, run
		}
	}
	return nil, nil
}

// ResolveIssue records that fixID resolved each of issueIDs. The fix and every
// issue must already exist in the session; nothing is changed otherwise.
func (s *DebugSession) ResolveIssue(fixID string, issueIDs ...string) error {
	fix := s.FindFix(fixID)
	if fix == nil {
		return notFoundError("fix", fixID)
	}
	issues := make([]*Issue, 0, len(issueIDs))
	for _, id := range issueIDs {
		issue, _ := s.FindIssue(id)
		if issue == nil {
			return notFoundError("issue", id)
		}
		issues = append(issues, issue)
	}
	for _, issue := range issues {
		issue.MarkFixed(fix.ID)
		fix.AddResolvedIssue(issue.ID)
	}
	s.Touch()
	return nil
}

// AllIssues flattens the issues of every run in order.
func (s *DebugSession) AllIssues() []*Issue {
	var all []*Issue
	for _, run := range s.Diagnostics {
		all = append(all, run.IssuesFound...)
	}
	return all
}

// UnresolvedIssues returns the issues no fix has been recorded for.
func (s *DebugSession) UnresolvedIssues() []*Issue {
	var open []*Issue
	for _, issue := range s.AllIssues() {
		if !issue.IsFixed() {
			open = append(open, issue)
		}
	}
	return open
}
