package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS appstate_kv (
	key        TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLiteStorage files payloads in a single key/value table. It mirrors the
// SQLite-backed key/value stores mobile runtimes provide for app state.
type SQLiteStorage struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteStorage opens (or creates) the database at dsn and prepares the
// kv table. Use ":memory:" for an ephemeral database. Close releases the
// connection.
func NewSQLiteStorage(dsn string) (*SQLiteStorage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage: dsn is required")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite %q: %w", dsn, err)
	}
	st, err := NewSQLiteStorageFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	st.owned = true
	return st, nil
}

// NewSQLiteStorageFromDB wraps an existing connection. The caller retains
// ownership of db; Close becomes a no-op.
func NewSQLiteStorageFromDB(db *sql.DB) (*SQLiteStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: db is required")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("storage: prepare kv table: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// GetItem returns the payload filed under key, if any.
func (s *SQLiteStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, wrapRead(key, ErrKeyRequired)
	}
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM appstate_kv WHERE key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapRead(key, err)
	}
	return payload, true, nil
}

// SetItem upserts payload under key.
func (s *SQLiteStorage) SetItem(ctx context.Context, key, payload string) error {
	if key == "" {
		return wrapWrite(key, ErrKeyRequired)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO appstate_kv (key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload, time.Now().UTC(),
	)
	if err != nil {
		return wrapWrite(key, err)
	}
	return nil
}

// Close releases the underlying connection when this instance opened it.
func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil || !s.owned {
		return nil
	}
	return s.db.Close()
}
