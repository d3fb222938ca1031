package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"debugtrail/internal/debug"
	"debugtrail/internal/domain"
)

// FileStore keeps one file per collection inside a directory.
type FileStore struct {
	dir   string
	codec Codec
}

// NewFileStore creates dir if needed and returns a store writing with codec.
// A nil codec means JSON.
func NewFileStore(dir string, codec Codec) (*FileStore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, storageError("open", "file store", errors.New("directory is required"))
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, storageError("create", trimmed, err)
	}
	return &FileStore{dir: trimmed, codec: codec}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(collection string) (string, error) {
	if err := ValidateCollection(collection); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, collection+s.codec.Ext()), nil
}

func (s *FileStore) Exists(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.path(collection)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, storageError("stat", collection, err)
	}
	return true, nil
}

// Save writes to a temporary file in the same directory and renames it over
// the target, so readers never observe a partial write.
func (s *FileStore) Save(ctx context.Context, collection string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(collection)
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(v)
	if err != nil {
		return storageError("encode", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+collection+".*.tmp")
	if err != nil {
		return storageError("save", collection, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageError("save", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return storageError("save", collection, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return storageError("save", collection, err)
	}
	debug.Logf("storage: saved %s (%d bytes)", collection, len(data))
	return nil
}

func (s *FileStore) Load(ctx context.Context, collection string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(collection)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(collection)
		}
		return storageError("load", collection, err)
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return storageError("decode", collection, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, collection string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.path(collection)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, storageError("delete", collection, err)
	}
	return true, nil
}

func (s *FileStore) ListSessions(ctx context.Context, status domain.Status) ([]*domain.DebugSession, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, storageError("list", s.dir, err)
	}
	var sessions []*domain.DebugSession
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, SessionPrefix) || !strings.HasSuffix(name, s.codec.Ext()) {
			continue
		}
		session, err := s.LoadSession(ctx, strings.TrimSuffix(strings.TrimPrefix(name, SessionPrefix), s.codec.Ext()))
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if session == nil || (status != domain.StatusUnknown && session.Status != status) {
			continue
		}
		sessions = append(sessions, session)
	}
	sortSessions(sessions)
	return sessions, nil
}

func (s *FileStore) LoadSession(ctx context.Context, id string) (*domain.DebugSession, error) {
	return loadSession(ctx, s, id)
}

func (s *FileStore) SaveSession(ctx context.Context, session *domain.DebugSession) error {
	if err := checkSession(session); err != nil {
		return err
	}
	return s.Save(ctx, SessionCollection(session.ID), session)
}

func (s *FileStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	return s.Delete(ctx, SessionCollection(id))
}

// loadSession implements LoadSession on top of any Collections.
func loadSession(ctx context.Context, c Collections, id string) (*domain.DebugSession, error) {
	collection := SessionCollection(id)
	ok, err := c.Exists(ctx, collection)
	if err != nil || !ok {
		return nil, err
	}
	var session domain.DebugSession
	if err := c.Load(ctx, collection, &session); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	return &session, nil
}

func sortSessions(sessions []*domain.DebugSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
