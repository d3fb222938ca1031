package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, WAL-friendly

	"debugtrail/internal/domain"
)

const (
	kindCollection = "collection"
	kindSession    = "session"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		codec TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_collections_kind_status ON collections(kind, status);
`

// SQLiteStore keeps every collection as a row in a single SQLite database.
// Rows remember the codec they were written with.
type SQLiteStore struct {
	dbPath string
	dsn    string
	codec  Codec
}

// NewSQLiteStore creates the database file and schema if needed.
func NewSQLiteStore(ctx context.Context, dbPath string, codec Codec) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(dbPath)
	if trimmed == "" {
		return nil, storageError("open", "sqlite store", errors.New("database path is required"))
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, storageError("create", filepath.Dir(trimmed), err)
	}
	s := &SQLiteStore{dbPath: trimmed, dsn: buildSQLiteDSN(trimmed), codec: codec}
	db, err := s.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, storageError("migrate", trimmed, err)
	}
	return s, nil
}

// buildSQLiteDSN creates a read-write WAL DSN for the given path.
func buildSQLiteDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Set("mode", "rwc")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "foreign_keys(on)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Path returns the database file.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, storageError("open", s.dbPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storageError("ping", s.dbPath, err)
	}
	return db, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, collection string) (bool, error) {
	if err := ValidateCollection(collection); err != nil {
		return false, err
	}
	db, err := s.openDB(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = db.Close()
	}()
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, collection).Scan(&n); err != nil {
		return false, storageError("stat", collection, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Save(ctx context.Context, collection string, v any) error {
	return s.put(ctx, collection, kindCollection, "", "", v)
}

func (s *SQLiteStore) put(ctx context.Context, collection, kind, status, createdAt string, v any) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	data, err := s.codec.Marshal(v)
	if err != nil {
		return storageError("encode", collection, err)
	}
	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	_, err = db.ExecContext(ctx, `
		INSERT INTO collections (name, kind, status, codec, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			status = excluded.status,
			codec = excluded.codec,
			data = excluded.data,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, collection, kind, status, s.codec.Name(), data, createdAt, domain.Now().Format(time.RFC3339Nano))
	if err != nil {
		return storageError("save", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, collection string, v any) error {
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	var codecName string
	var data []byte
	err = db.QueryRowContext(ctx, `SELECT codec, data FROM collections WHERE name = ?`, collection).Scan(&codecName, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(collection)
	}
	if err != nil {
		return storageError("load", collection, err)
	}
	return decodeRow(collection, codecName, data, v)
}

func decodeRow(collection, codecName string, data []byte, v any) error {
	codec, err := ParseCodec(codecName)
	if err != nil {
		return storageError("decode", collection, err)
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return storageError("decode", collection, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection string) (bool, error) {
	if err := ValidateCollection(collection); err != nil {
		return false, err
	}
	db, err := s.openDB(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = db.Close()
	}()
	res, err := db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection)
	if err != nil {
		return false, storageError("delete", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("delete", collection, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, status domain.Status) ([]*domain.DebugSession, error) {
	db, err := s.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	query := `SELECT name, codec, data FROM collections WHERE kind = ?`
	args := []any{kindSession}
	if status != domain.StatusUnknown {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("list", "sessions", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var sessions []*domain.DebugSession
	for rows.Next() {
		var name, codecName string
		var data []byte
		if err := rows.Scan(&name, &codecName, &data); err != nil {
			return nil, storageError("scan", "sessions", err)
		}
		var session domain.DebugSession
		if err := decodeRow(name, codecName, data, &session); err != nil {
			return nil, err
		}
		if err := session.Validate(); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", "sessions", err)
	}
	sortSessions(sessions)
	return sessions, nil
}

func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*domain.DebugSession, error) {
	return loadSession(ctx, s, id)
}

func (s *SQLiteStore) SaveSession(ctx context.Context, session *domain.DebugSession) error {
	if err := checkSession(session); err != nil {
		return err
	}
	return s.put(ctx, SessionCollection(session.ID), kindSession, string(session.Status),
		session.CreatedAt.UTC().Format(time.RFC3339Nano), session)
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	return s.Delete(ctx, SessionCollection(id))
}
