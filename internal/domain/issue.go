package domain

import "fmt"

// Issue is a single finding reported by a diagnostic run.
//
// Issues are created by their owning DiagnosticRun and only ever mutated to
// record which fix resolved them.
type Issue struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Severity    Severity       `json:"severity"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	FixedBy     string         `json:"fixed_by,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// IssueID builds the run-scoped identifier for the index-th issue of a run
// against target.
func IssueID(index int, target string) string {
	return fmt.Sprintf("issue_%d_%s", index, target)
}

// MarkFixed records the fix that resolved the issue. A second call replaces
// the previous reference.
func (i *Issue) MarkFixed(fixID string) {
	i.FixedBy = fixID
}

// IsFixed reports whether a fix has been recorded for the issue.
func (i *Issue) IsFixed() bool {
	return i.FixedBy != ""
}

// Finding is parser output before it is numbered and attached to a run.
type Finding struct {
	Type        string
	Severity    Severity
	Location    string
	Description string
	Metadata    map[string]any
}

// NewIssue builds the index-th issue of a run against target.
func NewIssue(index int, target, issueType string, severity Severity, location, description string) *Issue {
	return &Issue{
		ID:          IssueID(index, target),
		Type:        issueType,
		Severity:    severity,
		Location:    location,
		Description: description,
	}
}
