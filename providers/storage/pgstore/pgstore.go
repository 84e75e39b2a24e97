package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jnorthrup/redline/providers/storage"
)

// defaultTableName is the PostgreSQL table used when no custom name is provided.
const defaultTableName = "redline_kv"

// Querier abstracts the pgx query methods needed by Store.
// Both *pgxpool.Pool and pgx.Tx satisfy this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements [storage.Storage] on a PostgreSQL table. Thread safety is
// handled by the underlying pgx pool.
type Store struct {
	db        Querier
	namespace string
	tableName string
}

var _ storage.Storage = (*Store)(nil)

// Option configures optional Store behavior.
type Option func(*Store)

// WithTableName overrides the default table name ("redline_kv").
// The name is sanitized via pgx.Identifier since it is interpolated into
// queries with fmt.Sprintf.
func WithTableName(name string) Option {
	return func(s *Store) {
		s.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// New returns a Store scoped to namespace.
func New(db Querier, namespace string, opts ...Option) *Store {
	s := &Store{
		db:        db,
		namespace: namespace,
		tableName: defaultTableName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Namespace returns the namespace every row of this store is written under.
func (s *Store) Namespace() string {
	return s.namespace
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

	query := fmt.Sprintf(`INSERT INTO %s (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.tableName)

	if _, err := s.db.Exec(ctx, query, s.namespace, key, data); err != nil {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("pgstore: upsert: %w", err)}
	}
	return nil
}

// Load fetches the value for key. A missing row is absent.
func (s *Store) Load(ctx context.Context, key string) (storage.Result, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Result{}, fmt.Errorf("pgstore: load: %w", err)
	}

	query := fmt.Sprintf(`SELECT value FROM %s WHERE namespace = $1 AND key = $2`, s.tableName)

	var data []byte
	err := s.db.QueryRow(ctx, query, s.namespace, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Absent(key), nil
		}
		return storage.Result{}, &storage.ReadError{Key: key, Err: fmt.Errorf("pgstore: select: %w", err)}
	}
	return storage.Decode(key, data, false), nil
}

// Clear deletes every row of the namespace.
func (s *Store) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1`, s.tableName)
	if _, err := s.db.Exec(ctx, query, s.namespace); err != nil {
		return &storage.ClearError{Namespace: s.namespace, Err: fmt.Errorf("pgstore: delete: %w", err)}
	}
	return nil
}
