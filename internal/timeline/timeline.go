// Package timeline projects a DebugSession into an ordered list of events
// with derived statistics. Timelines are computed on demand and never stored.
package timeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"debugtrail/internal/domain"
)

// EventType discriminates timeline events.
type EventType string

const (
	EventSessionStart     EventType = "session_start"
	EventDiagnostic       EventType = "diagnostic"
	EventFix              EventType = "fix"
	EventSessionEnd       EventType = "session_end"
	EventSessionAbandoned EventType = "session_abandoned"
)

// Placeholders used when a session ended without an explanation.
const (
	NoSummary = "No summary provided"
	NoReason  = "No reason provided"
)

// Event is one entry of a timeline. Details holds one of the *Details types
// below, chosen by Type.
type Event struct {
	Type      EventType `json:"type" yaml:"type"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Title     string    `json:"title" yaml:"title"`
	Details   any       `json:"details" yaml:"details"`
}

type SessionStartDetails struct {
	Name    string `json:"name" yaml:"name"`
	Project string `json:"project" yaml:"project"`
}

type DiagnosticDetails struct {
	RunID      string                  `json:"run_id" yaml:"run_id"`
	Tool       string                  `json:"tool" yaml:"tool"`
	Target     string                  `json:"target" yaml:"target"`
	Duration   *float64                `json:"duration" yaml:"duration"`
	IssueCount int                     `json:"issue_count" yaml:"issue_count"`
	Severity   map[domain.Severity]int `json:"severity" yaml:"severity"`
}

type FixDetails struct {
	FixID         string                 `json:"fix_id" yaml:"fix_id"`
	Script        string                 `json:"script" yaml:"script"`
	Target        string                 `json:"target" yaml:"target"`
	Successful    bool                   `json:"successful" yaml:"successful"`
	ResolvedCount int                    `json:"resolved_count" yaml:"resolved_count"`
	Changes       []domain.ChangeSummary `json:"changes" yaml:"changes"`
}

type SessionEndDetails struct {
	Duration float64 `json:"duration" yaml:"duration"`
	Summary  string  `json:"summary" yaml:"summary"`
}

type SessionAbandonedDetails struct {
	Duration float64 `json:"duration" yaml:"duration"`
	Reason   string  `json:"reason" yaml:"reason"`
}

// Timeline is the ordered event view of one session.
type Timeline struct {
	Session *domain.DebugSession
	Events  []Event
}

// Build merges the lifecycle markers, diagnostics and fixes of s into one
// list sorted by timestamp. Events with equal timestamps keep the order in
// which they were collected.
func Build(s *domain.DebugSession) *Timeline {
	events := make([]Event, 0, len(s.Diagnostics)+len(s.Fixes)+2)
	events = append(events, Event{
		Type:      EventSessionStart,
		Timestamp: s.CreatedAt,
		Title:     fmt.Sprintf("Session started: %s", s.Name),
		Details:   SessionStartDetails{Name: s.Name, Project: s.Project},
	})
	for _, run := range s.Diagnostics {
		events = append(events, diagnosticEvent(run))
	}
	for _, fix := range s.Fixes {
		events = append(events, fixEvent(fix))
	}

	duration := s.Duration().Seconds()
	switch s.Status {
	case domain.StatusCompleted:
		events = append(events, Event{
			Type:      EventSessionEnd,
			Timestamp: s.UpdatedAt,
			Title:     "Session completed",
			Details:   SessionEndDetails{Duration: duration, Summary: orPlaceholder(s.Summary, NoSummary)},
		})
	case domain.StatusAbandoned:
		events = append(events, Event{
			Type:      EventSessionAbandoned,
			Timestamp: s.UpdatedAt,
			Title:     "Session abandoned",
			Details:   SessionAbandonedDetails{Duration: duration, Reason: orPlaceholder(s.AbandonmentReason, NoReason)},
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return &Timeline{Session: s, Events: events}
}

func diagnosticEvent(run *domain.DiagnosticRun) Event {
	details := DiagnosticDetails{
		RunID:      run.ID,
		Tool:       run.Tool,
		Target:     run.Target,
		IssueCount: len(run.IssuesFound),
		Severity:   run.CountIssuesBySeverity(),
	}
	if d, ok := run.Duration(); ok {
		details.Duration = &d
	}
	return Event{
		Type:      EventDiagnostic,
		Timestamp: run.StartTime,
		Title:     fmt.Sprintf("Diagnostic: %s on %s", run.Tool, run.Target),
		Details:   details,
	}
}

func fixEvent(fix *domain.AppliedFix) Event {
	changes := make([]domain.ChangeSummary, 0, len(fix.Changes))
	for _, c := range fix.Changes {
		changes = append(changes, c.SummarizeChanges())
	}
	return Event{
		Type:      EventFix,
		Timestamp: fix.Timestamp,
		Title:     fmt.Sprintf("Fix: %s on %s", fix.Script, fix.Target),
		Details: FixDetails{
			FixID:         fix.ID,
			Script:        fix.Script,
			Target:        fix.Target,
			Successful:    fix.Successful,
			ResolvedCount: len(fix.ResolvedIssues),
			Changes:       changes,
		},
	}
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// Last returns the final event, or false for an empty timeline.
func (t *Timeline) Last() (Event, bool) {
	if len(t.Events) == 0 {
		return Event{}, false
	}
	return t.Events[len(t.Events)-1], true
}

// Filter returns the events of the given types in timeline order.
func (t *Timeline) Filter(types ...EventType) []Event {
	want := make(map[EventType]struct{}, len(types))
	for _, typ := range types {
		want[typ] = struct{}{}
	}
	var out []Event
	for _, e := range t.Events {
		if _, ok := want[e.Type]; ok {
			out = append(out, e)
		}
	}
	return out
}
