package command

import (
	"context"
	"errors"
	"sync"
)

// ErrMockNotImplemented is returned when a MockRunner has no RunFn.
var ErrMockNotImplemented = errors.New("command.MockRunner: RunFn not set")

// MockRunner is a test double for Runner.
type MockRunner struct {
	RunFn func(context.Context, []string) (Result, error)

	mu           sync.Mutex
	RunCallCount int
	RunCallArgs  [][]string
}

// NewMockRunner returns a MockRunner that replies with the given result.
func NewMockRunner(res Result, err error) *MockRunner {
	return &MockRunner{
		RunFn: func(_ context.Context, argv []string) (Result, error) {
			out := res
			out.Command = append([]string(nil), argv...)
			return out, err
		},
	}
}

// Run records the call and invokes RunFn.
func (m *MockRunner) Run(ctx context.Context, argv []string) (Result, error) {
	m.mu.Lock()
	m.RunCallCount++
	m.RunCallArgs = append(m.RunCallArgs, append([]string(nil), argv...))
	m.mu.Unlock()

	if m.RunFn == nil {
		return Result{Command: argv, ReturnCode: -1}, ErrMockNotImplemented
	}
	return m.RunFn(ctx, argv)
}
