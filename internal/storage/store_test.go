package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugtrail/internal/config"
	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
)

func TestParseCodec(t *testing.T) {
	for name, want := range map[string]string{"": "json", "JSON": "json", " msgpack ": "msgpack"} {
		c, err := ParseCodec(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, c.Name())
	}
	_, err := ParseCodec("xml")
	assert.True(t, appErrors.IsCode(err, appErrors.CodeConfigurationError))
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fileStore, err := Open(ctx, config.Storage{Backend: config.BackendFile, Path: filepath.Join(dir, "sessions"), Codec: config.CodecJSON})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)

	sqliteStore, err := Open(ctx, config.Storage{Backend: config.BackendSQLite, Path: filepath.Join(dir, "sessions.db"), Codec: config.CodecMsgpack})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	_, err = os.Stat(filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)

	_, err = Open(ctx, config.Storage{Backend: "redis", Path: dir})
	assert.Error(t, err)
}

func TestFileStoreWritesSessionFile(t *testing.T) {
	now := useClock(t)
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	s := buildSession(t, now, "abc")
	require.NoError(t, store.SaveSession(ctx, s))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "session_abc.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Fix forecast bug"`)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreSurfacesCorruptSession(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "session_bad.json"), []byte("{not json"), 0o644))

	_, err = store.LoadSession(ctx, "bad")
	assert.True(t, appErrors.IsCode(err, appErrors.CodeStorageFailed), "got %v", err)

	_, err = store.ListSessions(ctx, "")
	assert.Error(t, err)
}

func TestSaveSessionRejectsInvalidSession(t *testing.T) {
	useClock(t)
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	s := domain.NewDebugSession("x", "n", "p", nil)
	s.Status = "paused"
	err = store.SaveSession(context.Background(), s)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeInvalidSessionData), "got %v", err)
	assert.True(t, appErrors.IsCode(store.SaveSession(context.Background(), nil), appErrors.CodeInvalidSessionData))
}

func TestSQLiteStoreReadsRowsWrittenWithOtherCodec(t *testing.T) {
	now := useClock(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	jsonStore, err := NewSQLiteStore(ctx, path, JSONCodec{})
	require.NoError(t, err)
	require.NoError(t, jsonStore.SaveSession(ctx, buildSession(t, now, "old")))

	packStore, err := NewSQLiteStore(ctx, path, MsgpackCodec{})
	require.NoError(t, err)
	require.NoError(t, packStore.SaveSession(ctx, buildSession(t, now, "new")))

	all, err := packStore.ListSessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Fix forecast bug", all[0].Name)
	assert.Equal(t, "Fix forecast bug", all[1].Name)
}

func TestMockStore(t *testing.T) {
	ctx := context.Background()
	m := &MockStore{}
	_, err := m.LoadSession(ctx, "x")
	assert.ErrorIs(t, err, ErrMockNotImplemented)

	boom := errors.New("disk full")
	m.SaveSessionFn = func(context.Context, *domain.DebugSession) error { return boom }
	useClock(t)
	err = m.SaveSession(ctx, domain.NewDebugSession("s1", "n", "p", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.SaveSessionCallCount)
	assert.Equal(t, []string{"s1"}, m.SaveSessionCallArgs)

	backing, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	forward := NewMockStore(backing)
	got, err := forward.LoadSession(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, forward.LoadSessionCallCount)
}
