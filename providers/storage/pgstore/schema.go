package pgstore

import (
	"context"
	"fmt"
)

// createTableSQL creates the key/value table. The composite primary key makes
// the upsert in Save a single statement. value is JSON rather than JSONB:
// JSONB rejects the \u0000 escape that encoding/json emits for NUL.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      JSON NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (namespace, key)
)`

// EnsureSchema creates the table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(createTableSQL, s.tableName)); err != nil {
		return fmt.Errorf("pgstore: create table: %w", err)
	}
	return nil
}
