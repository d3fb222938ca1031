package domain

import (
	"fmt"

	appErrors "debugtrail/internal/errors"
)

func invalidStatusError(status string) error {
	return appErrors.New(appErrors.CodeInvalidSessionData, fmt.Sprintf("invalid status: %s", status), nil)
}

func invalidTransitionError(from, to Status) error {
	return appErrors.New(appErrors.CodeInvalidTransition, fmt.Sprintf("cannot transition from %s to %s", from, to), nil)
}

func invalidSessionError(reason string, err error) error {
	return appErrors.New(appErrors.CodeInvalidSessionData, reason, err)
}

func runFinishedError(runID string) error {
	return appErrors.New(appErrors.CodeRunFinished, fmt.Sprintf("diagnostic run %s has already finished", runID), nil)
}

func notFoundError(kind, id string) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("%s %s not found", kind, id), nil)
}
