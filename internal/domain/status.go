package domain

import "strings"

// Status represents the lifecycle state of a debugging session.
type Status string

const (
	StatusUnknown   Status = ""
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

var validStatuses = map[Status]struct{}{
	StatusActive:    {},
	StatusCompleted: {},
	StatusAbandoned: {},
}

// Sessions start active and end exactly once, either completed or abandoned.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusActive: {
		StatusCompleted: {},
		StatusAbandoned: {},
	},
}

// ParseStatus normalises and validates an incoming status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if status == StatusUnknown {
		return StatusUnknown, invalidStatusError("blank")
	}
	if _, ok := validStatuses[status]; !ok {
		return StatusUnknown, invalidStatusError(raw)
	}
	return status, nil
}

// Validate ensures the status is part of the session lifecycle.
func (s Status) Validate() error {
	if _, ok := validStatuses[s]; !ok {
		return invalidStatusError(string(s))
	}
	return nil
}

// IsTerminal reports whether the session has finished.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// CanTransitionTo verifies whether a transition to the target status is allowed.
func (s Status) CanTransitionTo(target Status) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	if transitions, ok := allowedTransitions[s]; ok {
		if _, allowed := transitions[target]; allowed {
			return nil
		}
	}
	return invalidTransitionError(s, target)
}
