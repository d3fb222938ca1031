package storage

import (
	"context"
	"errors"
	"sync"

	"debugtrail/internal/domain"
)

// ErrMockNotImplemented is returned when a MockStore method has neither an
// override nor a backing store.
var ErrMockNotImplemented = errors.New("storage.MockStore: method not implemented")

// MockStore is a test double for Store. Each method uses its Fn field when
// set, otherwise it forwards to Backing.
type MockStore struct {
	Backing Store

	ExistsFn        func(context.Context, string) (bool, error)
	SaveFn          func(context.Context, string, any) error
	LoadFn          func(context.Context, string, any) error
	DeleteFn        func(context.Context, string) (bool, error)
	ListSessionsFn  func(context.Context, domain.Status) ([]*domain.DebugSession, error)
	LoadSessionFn   func(context.Context, string) (*domain.DebugSession, error)
	SaveSessionFn   func(context.Context, *domain.DebugSession) error
	DeleteSessionFn func(context.Context, string) (bool, error)

	mu                     sync.Mutex
	ExistsCallCount        int
	SaveCallCount          int
	LoadCallCount          int
	DeleteCallCount        int
	ListSessionsCallCount  int
	LoadSessionCallCount   int
	SaveSessionCallCount   int
	DeleteSessionCallCount int
	ListSessionsCallArgs   []domain.Status
	LoadSessionCallArgs    []string
	SaveSessionCallArgs    []string // session ids
	DeleteSessionCallArgs  []string
}

// NewMockStore returns a MockStore forwarding to backing.
func NewMockStore(backing Store) *MockStore {
	return &MockStore{Backing: backing}
}

func (m *MockStore) Exists(ctx context.Context, collection string) (bool, error) {
	m.mu.Lock()
	m.ExistsCallCount++
	m.mu.Unlock()
	switch {
	case m.ExistsFn != nil:
		return m.ExistsFn(ctx, collection)
	case m.Backing != nil:
		return m.Backing.Exists(ctx, collection)
	}
	return false, ErrMockNotImplemented
}

func (m *MockStore) Save(ctx context.Context, collection string, v any) error {
	m.mu.Lock()
	m.SaveCallCount++
	m.mu.Unlock()
	switch {
	case m.SaveFn != nil:
		return m.SaveFn(ctx, collection, v)
	case m.Backing != nil:
		return m.Backing.Save(ctx, collection, v)
	}
	return ErrMockNotImplemented
}

func (m *MockStore) Load(ctx context.Context, collection string, v any) error {
	m.mu.Lock()
	m.LoadCallCount++
	m.mu.Unlock()
	switch {
	case m.LoadFn != nil:
		return m.LoadFn(ctx, collection, v)
	case m.Backing != nil:
		return m.Backing.Load(ctx, collection, v)
	}
	return ErrMockNotImplemented
}

func (m *MockStore) Delete(ctx context.Context, collection string) (bool, error) {
	m.mu.Lock()
	m.DeleteCallCount++
	m.mu.Unlock()
	switch {
	case m.DeleteFn != nil:
		return m.DeleteFn(ctx, collection)
	case m.Backing != nil:
		return m.Backing.Delete(ctx, collection)
	}
	return false, ErrMockNotImplemented
}

func (m *MockStore) ListSessions(ctx context.Context, status domain.Status) ([]*domain.DebugSession, error) {
	m.mu.Lock()
	m.ListSessionsCallCount++
	m.ListSessionsCallArgs = append(m.ListSessionsCallArgs, status)
	m.mu.Unlock()
	switch {
	case m.ListSessionsFn != nil:
		return m.ListSessionsFn(ctx, status)
	case m.Backing != nil:
		return m.Backing.ListSessions(ctx, status)
	}
	return nil, ErrMockNotImplemented
}

func (m *MockStore) LoadSession(ctx context.Context, id string) (*domain.DebugSession, error) {
	m.mu.Lock()
	m.LoadSessionCallCount++
	m.LoadSessionCallArgs = append(m.LoadSessionCallArgs, id)
	m.mu.Unlock()
	switch {
	case m.LoadSessionFn != nil:
		return m.LoadSessionFn(ctx, id)
	case m.Backing != nil:
		return m.Backing.LoadSession(ctx, id)
	}
	return nil, ErrMockNotImplemented
}

func (m *MockStore) SaveSession(ctx context.Context, s *domain.DebugSession) error {
	m.mu.Lock()
	m.SaveSessionCallCount++
	if s != nil {
		m.SaveSessionCallArgs = append(m.SaveSessionCallArgs, s.ID)
	}
	m.mu.Unlock()
	switch {
	case m.SaveSessionFn != nil:
		return m.SaveSessionFn(ctx, s)
	case m.Backing != nil:
		return m.Backing.SaveSession(ctx, s)
	}
	return ErrMockNotImplemented
}

func (m *MockStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	m.DeleteSessionCallCount++
	m.DeleteSessionCallArgs = append(m.DeleteSessionCallArgs, id)
	m.mu.Unlock()
	switch {
	case m.DeleteSessionFn != nil:
		return m.DeleteSessionFn(ctx, id)
	case m.Backing != nil:
		return m.Backing.DeleteSession(ctx, id)
	}
	return false, ErrMockNotImplemented
}
