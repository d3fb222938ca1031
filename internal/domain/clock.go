package domain

import (
	"time"

	"github.com/google/uuid"
)

var (
	nowFunc = func() time.Time { return time.Now().UTC() }
	newID   = uuid.NewString
)

// Now returns the clock used for every timestamp recorded by the domain.
func Now() time.Time {
	return nowFunc()
}

// NewID returns a fresh unique identifier for sessions, runs and fixes.
func NewID() string {
	return newID()
}

// SetClock swaps the domain clock and returns a func restoring the previous one.
func SetClock(fn func() time.Time) func() {
	prev := nowFunc
	nowFunc = fn
	return func() { nowFunc = prev }
}
