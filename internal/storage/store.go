// Package storage persists debugging sessions. A Store saves arbitrary values
// under collection names and layers session helpers on top; sessions live in
// the collection "session_<id>".
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
)

// SessionPrefix prefixes the collection name of every stored session.
const SessionPrefix = "session_"

// Collections holds values by name.
type Collections interface {
	Exists(ctx context.Context, collection string) (bool, error)
	Save(ctx context.Context, collection string, v any) error
	// Load decodes the collection into v. A missing collection is a not_found error.
	Load(ctx context.Context, collection string, v any) error
	Delete(ctx context.Context, collection string) (bool, error)
}

// Sessions persists DebugSessions.
type Sessions interface {
	// ListSessions returns stored sessions ordered by creation time. An empty
	// status returns every session.
	ListSessions(ctx context.Context, status domain.Status) ([]*domain.DebugSession, error)
	// LoadSession returns nil, nil when no session with id is stored.
	LoadSession(ctx context.Context, id string) (*domain.DebugSession, error)
	SaveSession(ctx context.Context, s *domain.DebugSession) error
	DeleteSession(ctx context.Context, id string) (bool, error)
}

// Store is the full persistence contract consumed by the session manager.
type Store interface {
	Collections
	Sessions
}

// SessionCollection returns the collection name for session id.
func SessionCollection(id string) string {
	return SessionPrefix + id
}

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateCollection rejects names that could escape the storage location.
func ValidateCollection(name string) error {
	if !collectionNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return appErrors.New(appErrors.CodeInvalidCollection, fmt.Sprintf("invalid collection name %q", name), nil)
	}
	return nil
}

func storageError(op, collection string, err error) error {
	return appErrors.New(appErrors.CodeStorageFailed, fmt.Sprintf("%s %s", op, collection), err)
}

func notFound(collection string) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("collection %s not found", collection), nil)
}

func checkSession(s *domain.DebugSession) error {
	if s == nil {
		return appErrors.New(appErrors.CodeInvalidSessionData, "nil session", nil)
	}
	return s.Validate()
}
