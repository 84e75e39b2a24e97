// Package sqlitestore provides a SQLite-backed [storage.Storage] on the
// pure-Go modernc.org/sqlite driver. Values are rows of a single table keyed
// by (namespace, key), so several stores can share one database file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jnorthrup/redline/providers/storage"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS redline_kv (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      BLOB NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (namespace, key)
)`

// Store persists values in SQLite under one namespace.
type Store struct {
	sqlDB     *sql.DB
	namespace string
	owner     bool
}

var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens (or creates) the database at path, applies the schema and
// returns a store scoped to namespace. The store owns the handle.
func Open(path, namespace string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitestore: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitestore: create table: %w", err)
	}
	return &Store{sqlDB: sqlDB, namespace: namespace, owner: true}, nil
}

// WithNamespace returns a store on the same database handle scoped to
// namespace. Closing the returned store does not close the handle.
func (s *Store) WithNamespace(namespace string) *Store {
	return &Store{sqlDB: s.sqlDB, namespace: namespace}
}

// Namespace returns the namespace rows are written under.
func (s *Store) Namespace() string {
	return s.namespace
}

// Close closes the SQLite handle if this store opened it.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.owner {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the encoded value.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	if err := storage.ValidateKey(key); err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	data, err := storage.Encode(key, value)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO redline_kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.namespace, key, data, toMillis(time.Now()),
	)
	if err != nil {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("sqlitestore: upsert: %w", err)}
	}
	return nil
}

// Load fetches the value for key. A missing row is absent.
func (s *Store) Load(ctx context.Context, key string) (storage.Result, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Result{}, fmt.Errorf("sqlitestore: load: %w", err)
	}

	var data []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM redline_kv WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Absent(key), nil
		}
		return storage.Result{}, &storage.ReadError{Key: key, Err: fmt.Errorf("sqlitestore: select: %w", err)}
	}
	return storage.Decode(key, data, false), nil
}

// Clear deletes every row of the namespace.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM redline_kv WHERE namespace = ?`, s.namespace); err != nil {
		return &storage.ClearError{Namespace: s.namespace, Err: fmt.Errorf("sqlitestore: delete: %w", err)}
	}
	return nil
}
