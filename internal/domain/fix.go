package domain

import (
	"context"
	"errors"
	"os"
	"slices"
	"time"

	"debugtrail/internal/command"
	"debugtrail/internal/debug"
)

// AppliedFix is one execution of a corrective script against a target.
type AppliedFix struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	Script         string          `json:"script"`
	Target         string          `json:"target"`
	Timestamp      time.Time       `json:"timestamp"`
	Parameters     map[string]any  `json:"parameters,omitempty"`
	Changes        []*FileChange   `json:"changes"`
	ResolvedIssues []string        `json:"resolved_issues"`
	Successful     bool            `json:"successful"`
	Results        *command.Result `json:"results,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

func newAppliedFix(sessionID, script, target string, params map[string]any) *AppliedFix {
	return &AppliedFix{
		ID:             NewID(),
		SessionID:      sessionID,
		Script:         script,
		Target:         target,
		Timestamp:      Now(),
		Parameters:     params,
		Changes:        []*FileChange{},
		ResolvedIssues: []string{},
	}
}

// AddChange records a file change produced by the fix.
func (f *AppliedFix) AddChange(c *FileChange) {
	if c == nil {
		return
	}
	f.Changes = append(f.Changes, c)
}

// AddResolvedIssue records that the fix resolved issueID. Duplicates are ignored.
func (f *AppliedFix) AddResolvedIssue(issueID string) {
	if issueID == "" || slices.Contains(f.ResolvedIssues, issueID) {
		return
	}
	f.ResolvedIssues = append(f.ResolvedIssues, issueID)
}

// FilesChanged lists the paths of recorded changes in order.
func (f *AppliedFix) FilesChanged() []string {
	paths := make([]string, 0, len(f.Changes))
	for _, c := range f.Changes {
		paths = append(paths, c.FilePath)
	}
	return paths
}

// RunScript snapshots files, executes argv, snapshots files again and records
// a FileChange for every file whose content or existence changed. The fix is
// successful when the script ran and exited zero. Execution failures are kept
// on the fix and never returned.
func (f *AppliedFix) RunScript(ctx context.Context, runner command.Runner, argv []string, files []string) {
	before := make([]fileState, len(files))
	for i, path := range files {
		before[i] = readFileState(path)
	}

	res, err := runner.Run(ctx, argv)
	f.Results = &res
	if err != nil {
		debug.Logf("fix %s: %s failed to execute: %v", f.ID, f.Script, err)
		if f.Metadata == nil {
			f.Metadata = map[string]any{}
		}
		f.Metadata["error"] = err.Error()
	}
	f.Successful = err == nil && res.Succeeded()

	for i, path := range files {
		after := readFileState(path)
		if before[i] == after {
			continue
		}
		change := NewFileChange(path, before[i].content, after.content, "")
		if !before[i].exists {
			change.Metadata[metaCreated] = true
		}
		if !after.exists {
			change.Metadata[metaDeleted] = true
		}
		f.AddChange(change)
	}
	debug.Logf("fix %s: %s changed %d of %d files", f.ID, f.Script, len(f.Changes), len(files))
}

type fileState struct {
	content string
	exists  bool
}

func readFileState(path string) fileState {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debug.Warnf("snapshot of %s failed: %v", path, err)
		}
		return fileState{}
	}
	return fileState{content: string(data), exists: true}
}

// Rollback restores every change in reverse order and returns how many were
// restored. ok is false if any change failed to roll back.
func (f *AppliedFix) Rollback() (restored int, ok bool) {
	ok = true
	for i := len(f.Changes) - 1; i >= 0; i-- {
		if f.Changes[i].Rollback() {
			restored++
			continue
		}
		ok = false
	}
	return restored, ok
}
