package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{"file/json", func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), JSONCodec{})
			require.NoError(t, err)
			return s
		}},
		{"file/msgpack", func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), MsgpackCodec{})
			require.NoError(t, err)
			return s
		}},
		{"sqlite/json", func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "db", "sessions.db"), JSONCodec{})
			require.NoError(t, err)
			return s
		}},
		{"sqlite/msgpack", func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "sessions.db"), MsgpackCodec{})
			require.NoError(t, err)
			return s
		}},
	}
}

func useClock(t *testing.T) *time.Time {
	t.Helper()
	now := time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)
	t.Cleanup(domain.SetClock(func() time.Time { return now }))
	return &now
}

// buildSession returns a session with two diagnostics, one fix and a
// resolved issue.
func buildSession(t *testing.T, now *time.Time, id string) *domain.DebugSession {
	t.Helper()
	s := domain.NewDebugSession(id, "Fix forecast bug", "investing", map[string]any{"ticket": "INV-7"})

	*now = now.Add(time.Second)
	lint := s.RunDiagnostic("pylint", "report.py", map[string]any{"jobs": 2})
	issue, err := lint.AddIssue("E0001", domain.SeverityHigh, "report.py:10:2", "syntax error")
	require.NoError(t, err)
	*now = now.Add(2 * time.Second)
	lint.Complete()

	*now = now.Add(time.Second)
	tests := s.RunDiagnostic("pytest", "tests/", nil)
	_, err = tests.AddIssue("failure", domain.SeverityMedium, "tests/test_report.py", "assertion failed")
	require.NoError(t, err)
	tests.Complete()

	*now = now.Add(time.Second)
	fix := s.ApplyFix("patch.sh", "report.py", nil)
	fix.AddChange(domain.NewFileChange("report.py", "a\nb\n", "a\nc\n", ""))
	fix.Successful = true
	require.NoError(t, s.ResolveIssue(fix.ID, issue.ID))
	return s
}

func TestStoreConformance(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			t.Run("SessionRoundTrip", func(t *testing.T) { testSessionRoundTrip(t, f.open(t)) })
			t.Run("MissingSession", func(t *testing.T) { testMissingSession(t, f.open(t)) })
			t.Run("ListFiltersByStatus", func(t *testing.T) { testListFiltersByStatus(t, f.open(t)) })
			t.Run("Collections", func(t *testing.T) { testCollections(t, f.open(t)) })
			t.Run("RejectsBadNames", func(t *testing.T) { testRejectsBadNames(t, f.open(t)) })
		})
	}
}

func testSessionRoundTrip(t *testing.T, store Store) {
	now := useClock(t)
	ctx := context.Background()
	want := buildSession(t, now, "s-roundtrip")
	require.NoError(t, store.SaveSession(ctx, want))

	got, err := store.LoadSession(ctx, want.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))

	require.Len(t, got.Diagnostics, 2)
	for i, run := range want.Diagnostics {
		assert.Equal(t, run.ID, got.Diagnostics[i].ID)
		assert.Equal(t, run.Tool, got.Diagnostics[i].Tool)
		assert.True(t, run.StartTime.Equal(got.Diagnostics[i].StartTime))
		require.NotNil(t, got.Diagnostics[i].EndTime)
		assert.True(t, run.EndTime.Equal(*got.Diagnostics[i].EndTime))
		require.Len(t, got.Diagnostics[i].IssuesFound, 1)
		assert.Equal(t, run.IssuesFound[0].ID, got.Diagnostics[i].IssuesFound[0].ID)
		assert.Equal(t, run.IssuesFound[0].Severity, got.Diagnostics[i].IssuesFound[0].Severity)
	}

	require.Len(t, got.Fixes, 1)
	fix := got.Fixes[0]
	assert.Equal(t, want.Fixes[0].ID, fix.ID)
	assert.True(t, want.Fixes[0].Timestamp.Equal(fix.Timestamp))
	assert.True(t, fix.Successful)
	assert.Equal(t, want.Fixes[0].ResolvedIssues, fix.ResolvedIssues)
	require.Len(t, fix.Changes, 1)
	assert.Equal(t, want.Fixes[0].Changes[0].Diff, fix.Changes[0].Diff)
	assert.Equal(t, fix.ID, got.Diagnostics[0].IssuesFound[0].FixedBy)
}

func testMissingSession(t *testing.T, store Store) {
	ctx := context.Background()
	got, err := store.LoadSession(ctx, "never-created")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := store.DeleteSession(ctx, "never-created")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testListFiltersByStatus(t *testing.T, store Store) {
	now := useClock(t)
	ctx := context.Background()

	active := buildSession(t, now, "s-a")
	*now = now.Add(time.Minute)
	done := buildSession(t, now, "s-b")
	done.Complete("Resolved")
	*now = now.Add(time.Minute)
	dropped := buildSession(t, now, "s-c")
	dropped.Abandon("")
	for _, s := range []*domain.DebugSession{dropped, active, done} {
		require.NoError(t, store.SaveSession(ctx, s))
	}

	all, err := store.ListSessions(ctx, domain.StatusUnknown)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"s-a", "s-b", "s-c"}, []string{all[0].ID, all[1].ID, all[2].ID})

	onlyActive, err := store.ListSessions(ctx, domain.StatusActive)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, "s-a", onlyActive[0].ID)

	done.Abandon("reopened elsewhere")
	require.NoError(t, store.SaveSession(ctx, done))
	abandoned, err := store.ListSessions(ctx, domain.StatusAbandoned)
	require.NoError(t, err)
	assert.Len(t, abandoned, 2)

	deleted, err := store.DeleteSession(ctx, "s-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	all, err = store.ListSessions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testCollections(t *testing.T, store Store) {
	ctx := context.Background()
	type settings struct {
		Theme string `json:"theme"`
		Width int    `json:"width"`
	}

	ok, err := store.Exists(ctx, "preferences")
	require.NoError(t, err)
	assert.False(t, ok)

	var missing settings
	err = store.Load(ctx, "preferences", &missing)
	assert.True(t, appErrors.IsCode(err, appErrors.CodeNotFound), "got %v", err)

	require.NoError(t, store.Save(ctx, "preferences", settings{Theme: "dark", Width: 120}))
	require.NoError(t, store.Save(ctx, "preferences", settings{Theme: "light", Width: 80}))
	ok, err = store.Exists(ctx, "preferences")
	require.NoError(t, err)
	assert.True(t, ok)

	var got settings
	require.NoError(t, store.Load(ctx, "preferences", &got))
	assert.Equal(t, settings{Theme: "light", Width: 80}, got)

	deleted, err := store.Delete(ctx, "preferences")
	require.NoError(t, err)
	assert.True(t, deleted)
	ok, err = store.Exists(ctx, "preferences")
	require.NoError(t, err)
	assert.False(t, ok)

	sessions, err := store.ListSessions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func testRejectsBadNames(t *testing.T, store Store) {
	ctx := context.Background()
	for _, name := range []string{"../escape", "a/b", "", ".."} {
		err := store.Save(ctx, name, map[string]string{"x": "y"})
		assert.True(t, appErrors.IsCode(err, appErrors.CodeInvalidCollection), "%q: got %v", name, err)
	}
}
