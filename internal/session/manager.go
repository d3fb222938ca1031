// Package session owns the lifecycle of debugging sessions. A Manager caches
// sessions in memory and writes every change through to a storage.Store.
package session

import (
	"context"
	"fmt"
	"sync"

	"debugtrail/internal/command"
	"debugtrail/internal/debug"
	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
	"debugtrail/internal/storage"
)

// Manager is the single writer of session lifecycle transitions.
//
// The mutex keeps the cache map consistent. It does not serialise operations
// on the same session; callers mutate one session at a time.
type Manager struct {
	store   storage.Store
	runner  command.Runner
	parsers *domain.ParserRegistry
	strict  bool

	mu    sync.RWMutex
	cache map[string]*domain.DebugSession
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner sets the runner used for diagnostics and fix scripts.
func WithRunner(r command.Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithParsers sets the registry used to parse diagnostic output.
func WithParsers(p *domain.ParserRegistry) Option {
	return func(m *Manager) {
		if p != nil {
			m.parsers = p
		}
	}
}

// WithStrictTransitions rejects completing or abandoning a session that has
// already ended.
func WithStrictTransitions(strict bool) Option {
	return func(m *Manager) {
		m.strict = strict
	}
}

// NewManager returns a Manager persisting through store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		runner:  command.NewExecRunner(),
		parsers: domain.DefaultParsers(),
		cache:   make(map[string]*domain.DebugSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) cached(id string) (*domain.DebugSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.cache[id]
	return s, ok
}

func (m *Manager) remember(s *domain.DebugSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[s.ID] = s
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, id)
}

// Create starts a new active session and persists it.
func (m *Manager) Create(ctx context.Context, name, project string, extra map[string]any) (*domain.DebugSession, error) {
	s := domain.NewDebugSession(domain.NewID(), name, project, extra)
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.remember(s)
	debug.Logf("session %s created (%s/%s)", s.ID, project, name)
	return s, nil
}

// Get returns the session with id, or nil when it does not exist.
func (m *Manager) Get(ctx context.Context, id string) (*domain.DebugSession, error) {
	if s, ok := m.cached(id); ok {
		return s, nil
	}
	s, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if s == nil {
		return nil, nil
	}
	m.remember(s)
	return s, nil
}

// ActiveSessions lists active sessions and refreshes the cache with them.
func (m *Manager) ActiveSessions(ctx context.Context) ([]*domain.DebugSession, error) {
	return m.list(ctx, domain.StatusActive)
}

// AllSessions lists every session and refreshes the cache with them.
func (m *Manager) AllSessions(ctx context.Context) ([]*domain.DebugSession, error) {
	return m.list(ctx, domain.StatusUnknown)
}

func (m *Manager) list(ctx context.Context, status domain.Status) ([]*domain.DebugSession, error) {
	sessions, err := m.store.ListSessions(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range sessions {
		m.remember(s)
	}
	return sessions, nil
}

// Update bumps UpdatedAt and writes the whole session through the cache and
// the store.
func (m *Manager) Update(ctx context.Context, s *domain.DebugSession) error {
	if s == nil {
		return appErrors.New(appErrors.CodeInvalidSessionData, "nil session", nil)
	}
	s.Touch()
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.forget(s.ID)
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	m.remember(s)
	return nil
}

// Complete marks the session completed. It returns nil, nil when the session
// does not exist.
func (m *Manager) Complete(ctx context.Context, id, summary string) (*domain.DebugSession, error) {
	return m.finish(ctx, id, domain.StatusCompleted, func(s *domain.DebugSession) { s.Complete(summary) })
}

// Abandon marks the session abandoned. It returns nil, nil when the session
// does not exist.
func (m *Manager) Abandon(ctx context.Context, id, reason string) (*domain.DebugSession, error) {
	return m.finish(ctx, id, domain.StatusAbandoned, func(s *domain.DebugSession) { s.Abandon(reason) })
}

func (m *Manager) finish(ctx context.Context, id string, target domain.Status, apply func(*domain.DebugSession)) (*domain.DebugSession, error) {
	s, err := m.Get(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	if err := s.Status.CanTransitionTo(target); err != nil {
		if m.strict {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		debug.Warnf("session %s: %s -> %s overwrites the previous outcome", id, s.Status, target)
	}
	apply(s)
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.forget(s.ID)
		return nil, fmt.Errorf("%s session %s: %w", target, id, err)
	}
	m.remember(s)
	debug.Logf("session %s %s", id, target)
	return s, nil
}

// Delete evicts the session from the cache and removes it from the store.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	m.forget(id)
	ok, err := m.store.DeleteSession(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return ok, nil
}
