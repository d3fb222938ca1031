package domain

import (
	"testing"
	"time"
)

type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func useTestClock(t *testing.T) *testClock {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	t.Cleanup(SetClock(func() time.Time { return clock.now }))
	return clock
}
