package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/jnorthrup/redline/providers/storage"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestNew_Defaults(t *testing.T) {
	s := New(newMock(t), "ctx")
	if s.tableName != defaultTableName {
		t.Fatalf("expected default table name %q, got %q", defaultTableName, s.tableName)
	}
	if s.Namespace() != "ctx" {
		t.Fatalf("expected namespace %q, got %q", "ctx", s.Namespace())
	}
}

func TestNew_WithTableName(t *testing.T) {
	s := New(newMock(t), "ctx", WithTableName("custom_kv"))
	if s.tableName != `"custom_kv"` {
		t.Fatalf("expected sanitized table name, got %q", s.tableName)
	}
}

func TestSave_Upsert(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectExec("INSERT INTO redline_kv").
		WithArgs("ctx", "history", []byte(`["hello","world"]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.Save(context.Background(), "history", []string{"hello", "world"}); err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSave_DatabaseError(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectExec("INSERT INTO redline_kv").
		WithArgs("ctx", "prefs", []byte(`"dark"`)).
		WillReturnError(fmt.Errorf("connection refused"))

	err := s.Save(context.Background(), "prefs", "dark")
	var writeErr *storage.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if writeErr.Key != "prefs" {
		t.Fatalf("expected key prefs, got %q", writeErr.Key)
	}
}

func TestSave_InvalidKeyDoesNotQuery(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	if err := s.Save(context.Background(), "a/b", "x"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database call: %v", err)
	}
}

func TestLoad_Found(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectQuery("SELECT value FROM redline_kv").
		WithArgs("ctx", "history").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`["hello", "world"]`)))

	result, err := s.Load(context.Background(), "history")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	var got []string
	if err := result.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Fatalf("unexpected history: %v", got)
	}
}

func TestLoad_MissingRowIsAbsent(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectQuery("SELECT value FROM redline_kv").
		WithArgs("ctx", "nope").
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	result, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if result.Status != storage.StatusAbsent {
		t.Fatalf("expected absent, got %s", result.Status)
	}
}

func TestLoad_CorruptValue(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectQuery("SELECT value FROM redline_kv").
		WithArgs("ctx", "history").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{oops`)))

	result, err := s.Load(context.Background(), "history")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if result.Status != storage.StatusCorrupt {
		t.Fatalf("expected corrupt, got %s", result.Status)
	}
}

func TestLoad_DatabaseErrorIsUnreachable(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectQuery("SELECT value FROM redline_kv").
		WithArgs("ctx", "history").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := s.Load(context.Background(), "history")
	if !errors.Is(err, storage.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestClear_DeletesNamespace(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectExec("DELETE FROM redline_kv").
		WithArgs("ctx").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear returned unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClear_DatabaseError(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectExec("DELETE FROM redline_kv").
		WithArgs("ctx").
		WillReturnError(fmt.Errorf("connection refused"))

	err := s.Clear(context.Background())
	var clearErr *storage.ClearError
	if !errors.As(err, &clearErr) || clearErr.Namespace != "ctx" {
		t.Fatalf("expected *ClearError for namespace ctx, got %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	mock := newMock(t)
	s := New(mock, "ctx")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS redline_kv").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema returned unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTableSQL_ValueColumnAcceptsNUL(t *testing.T) {
	if strings.Contains(createTableSQL, "JSONB") {
		t.Fatal("value column must not be JSONB, which rejects \\u0000")
	}
	if !strings.Contains(createTableSQL, "value      JSON NOT NULL") {
		t.Fatalf("unexpected value column in %s", createTableSQL)
	}
}
