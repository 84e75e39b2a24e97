//go:build integration

package pgstore

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jnorthrup/redline/providers/storage"
	"github.com/jnorthrup/redline/providers/storage/storagetest"
)

// testPool is shared by every integration test in the package.
var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("redline_test"),
		postgres.WithUsername("redline"),
		postgres.WithPassword("redline"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("pgstore: failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("pgstore: failed to get connection string: %v", err)
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("pgstore: failed to create pool: %v", err)
	}

	if err := New(testPool, "setup").EnsureSchema(ctx); err != nil {
		log.Fatalf("pgstore: failed to create schema: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Printf("pgstore: failed to terminate container: %v", err)
	}

	os.Exit(code)
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New(testPool, "test-"+t.Name())
	}, storagetest.Options{})
}

// TestStore_NamespaceIsolation checks that two stores on the same table do
// not see each other's keys.
func TestStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	persistent := New(testPool, "persistent-"+t.Name())
	conversation := New(testPool, "context-"+t.Name())

	if err := persistent.Save(ctx, storage.HistoryKey, "persistent value"); err != nil {
		t.Fatalf("Save to persistent failed: %v", err)
	}
	if err := conversation.Save(ctx, storage.HistoryKey, []string{"hi"}); err != nil {
		t.Fatalf("Save to context failed: %v", err)
	}
	if err := conversation.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	result, err := persistent.Load(ctx, storage.HistoryKey)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var got string
	if err := result.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != "persistent value" {
		t.Fatalf("persistent value leaked or lost: %q", got)
	}
}

func TestStore_WithTableName(t *testing.T) {
	ctx := context.Background()
	s := New(testPool, "custom-"+t.Name(), WithTableName("custom_kv"))

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema for custom table returned error: %v", err)
	}
	t.Cleanup(func() {
		_, _ = testPool.Exec(context.Background(), "DROP TABLE IF EXISTS custom_kv")
	})

	if err := s.Save(ctx, "prefs", map[string]string{"theme": "dark"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	result, err := s.Load(ctx, "prefs")
	if err != nil || !result.Found() {
		t.Fatalf("expected found, got %s (err=%v)", result.Status, err)
	}
}

func TestStore_HistoryWithNUL(t *testing.T) {
	s := New(testPool, "test-"+t.Name())
	ctx := context.Background()
	want := []string{"before\x00after"}

	if err := s.Save(ctx, storage.HistoryKey, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	result, err := s.Load(ctx, storage.HistoryKey)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var got []string
	if err := result.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("Expected %q, got %q", want, got)
	}
}
