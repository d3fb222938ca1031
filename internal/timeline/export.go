package timeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"debugtrail/internal/domain"
)

// SessionInfo is the header of an exported timeline.
type SessionInfo struct {
	ID                string        `json:"id" yaml:"id"`
	Name              string        `json:"name" yaml:"name"`
	Project           string        `json:"project" yaml:"project"`
	Status            domain.Status `json:"status" yaml:"status"`
	CreatedAt         time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" yaml:"updated_at"`
	Summary           string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	AbandonmentReason string        `json:"abandonment_reason,omitempty" yaml:"abandonment_reason,omitempty"`
}

// Document is the structured, serialisable form of a timeline. Renderers
// consume only this type.
type Document struct {
	Session SessionInfo `json:"session" yaml:"session"`
	Events  []Event     `json:"events" yaml:"events"`
	Stats   Stats       `json:"stats" yaml:"stats"`
}

// Document returns the structured form of the timeline.
func (t *Timeline) Document() Document {
	s := t.Session
	events := make([]Event, len(t.Events))
	copy(events, t.Events)
	return Document{
		Session: SessionInfo{
			ID:                s.ID,
			Name:              s.Name,
			Project:           s.Project,
			Status:            s.Status,
			CreatedAt:         s.CreatedAt,
			UpdatedAt:         s.UpdatedAt,
			Summary:           s.Summary,
			AbandonmentReason: s.AbandonmentReason,
		},
		Events: events,
		Stats:  t.Stats(),
	}
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode timeline json: %w", err)
	}
	return nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode timeline yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode timeline yaml: %w", err)
	}
	return nil
}
