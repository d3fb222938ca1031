package session

import (
	"context"
	"fmt"

	"debugtrail/internal/debug"
	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
)

// DiagnosticRequest describes one diagnostic execution.
type DiagnosticRequest struct {
	Tool       string
	Target     string
	Parameters map[string]any
	// Command is the argument vector to run. When empty the run is recorded
	// without executing anything and left open for manual issues.
	Command []string
}

// FixRequest describes one fix script execution.
type FixRequest struct {
	Script     string
	Target     string
	Parameters map[string]any
	Command    []string
	// Files are snapshotted before and after the script runs.
	Files []string
	// Resolves lists issue ids to mark fixed when the script succeeds.
	Resolves []string
	// SnapshotDir, when set, receives before/after/diff files for every change.
	SnapshotDir string
}

// RollbackResult reports what a fix rollback restored.
type RollbackResult struct {
	FixID    string
	Restored int
	Total    int
	OK       bool
}

func (m *Manager) checkWritable(s *domain.DebugSession) error {
	if !s.Status.IsTerminal() {
		return nil
	}
	if m.strict {
		return appErrors.New(appErrors.CodeInvalidTransition, fmt.Sprintf("session %s is %s", s.ID, s.Status), nil)
	}
	debug.Warnf("session %s is %s, recording anyway", s.ID, s.Status)
	return nil
}

// RunDiagnostic appends a diagnostic run to the session, executes it and
// persists the session. It returns nil, nil when the session does not exist.
// Execution failures are recorded on the run and are not errors.
func (m *Manager) RunDiagnostic(ctx context.Context, id string, req DiagnosticRequest) (*domain.DiagnosticRun, error) {
	s, err := m.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	if err := m.checkWritable(s); err != nil {
		return nil, err
	}
	run := s.RunDiagnostic(req.Tool, req.Target, req.Parameters)
	if len(req.Command) > 0 {
		run.RunCommand(ctx, m.runner, m.parsers, req.Command)
	}
	if err := m.Update(ctx, s); err != nil {
		return nil, err
	}
	return run, nil
}

// ApplyFix appends a fix to the session, runs its script and persists the
// session. Requested issues are marked resolved only when the script succeeds.
func (m *Manager) ApplyFix(ctx context.Context, id string, req FixRequest) (*domain.AppliedFix, error) {
	s, err := m.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	if err := m.checkWritable(s); err != nil {
		return nil, err
	}
	for _, issueID := range req.Resolves {
		if issue, _ := s.FindIssue(issueID); issue == nil {
			return nil, appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("issue %s not found in session %s", issueID, id), nil)
		}
	}

	fix := s.ApplyFix(req.Script, req.Target, req.Parameters)
	if len(req.Command) > 0 {
		fix.RunScript(ctx, m.runner, req.Command, req.Files)
	}
	if fix.Successful && len(req.Resolves) > 0 {
		if err := s.ResolveIssue(fix.ID, req.Resolves...); err != nil {
			m.forget(s.ID)
			return nil, err
		}
	}
	if req.SnapshotDir != "" {
		for _, change := range fix.Changes {
			if _, _, _, err := change.SaveStates(req.SnapshotDir); err != nil {
				debug.Warnf("snapshot of %s failed: %v", change.FilePath, err)
			}
		}
	}
	if err := m.Update(ctx, s); err != nil {
		return nil, err
	}
	return fix, nil
}

// ResolveIssue records that fixID resolved issueIDs and persists the session.
// It returns nil, nil when the session does not exist.
func (m *Manager) ResolveIssue(ctx context.Context, id, fixID string, issueIDs ...string) (*domain.DebugSession, error) {
	s, err := m.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	if err := s.ResolveIssue(fixID, issueIDs...); err != nil {
		return nil, err
	}
	if err := m.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// RollbackFix restores the files changed by fixID. The session itself is not
// modified; rollback is a side effect on disk. It returns nil, nil when the
// session does not exist.
func (m *Manager) RollbackFix(ctx context.Context, id, fixID string) (*RollbackResult, error) {
	s, err := m.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	fix := s.FindFix(fixID)
	if fix == nil {
		return nil, appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("fix %s not found in session %s", fixID, id), nil)
	}
	restored, ok := fix.Rollback()
	debug.Logf("session %s: rolled back %d/%d changes of fix %s", id, restored, len(fix.Changes), fixID)
	return &RollbackResult{FixID: fixID, Restored: restored, Total: len(fix.Changes), OK: ok}, nil
}
