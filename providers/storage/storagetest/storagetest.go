// Package storagetest checks that a storage.Storage implementation honors
// the contract the memory manager relies on.
package storagetest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jnorthrup/redline/providers/storage"
)

// Options tunes Run for backends with documented deviations.
type Options struct {
	// HistoryOnlyClear is set for backends whose Clear removes only
	// storage.HistoryKey (the file backend).
	HistoryOnlyClear bool
}

// Run executes the conformance checks. newStore must return an empty store
// that no other call of newStore shares.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage, opts Options) {
	t.Helper()

	t.Run("LoadMissingIsAbsent", func(t *testing.T) {
		s := newStore(t)
		result, err := s.Load(context.Background(), "nope")
		if err != nil {
			t.Fatalf("Load(nope) returned error: %v", err)
		}
		if result.Status != storage.StatusAbsent {
			t.Fatalf("Expected absent, got %s", result.Status)
		}
		if result.Usable() {
			t.Fatal("Absent result must not be usable")
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		type prefs struct {
			Theme string         `json:"theme"`
			Size  int            `json:"size"`
			Tags  []string       `json:"tags"`
			Extra map[string]any `json:"extra"`
		}
		values := map[string]any{
			"prefs":   prefs{Theme: "dark", Size: 3, Tags: []string{"a", "b"}, Extra: map[string]any{"k": true}},
			"history": []string{"hello", "world"},
			"count":   42,
			"note":    "plain string",
		}

		for key, value := range values {
			if err := s.Save(ctx, key, value); err != nil {
				t.Fatalf("Save(%s) failed: %v", key, err)
			}
		}

		var gotPrefs prefs
		loadInto(t, s, "prefs", &gotPrefs)
		if !reflect.DeepEqual(gotPrefs, values["prefs"]) {
			t.Errorf("prefs round-trip: got %+v, want %+v", gotPrefs, values["prefs"])
		}

		var gotHistory []string
		loadInto(t, s, "history", &gotHistory)
		if !reflect.DeepEqual(gotHistory, []string{"hello", "world"}) {
			t.Errorf("history round-trip: got %v", gotHistory)
		}

		var gotCount int
		loadInto(t, s, "count", &gotCount)
		if gotCount != 42 {
			t.Errorf("count round-trip: got %d", gotCount)
		}

		var gotNote string
		loadInto(t, s, "note", &gotNote)
		if gotNote != "plain string" {
			t.Errorf("note round-trip: got %q", gotNote)
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Save(ctx, "k", []string{"one", "two", "three"}); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}
		if err := s.Save(ctx, "k", []string{"four"}); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}

		var got []string
		loadInto(t, s, "k", &got)
		if !reflect.DeepEqual(got, []string{"four"}) {
			t.Errorf("Expected replaced value, got %v", got)
		}
	})

	t.Run("ClearIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.Save(ctx, storage.HistoryKey, []string{"hello"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := s.Save(ctx, "other", "kept?"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if err := s.Clear(ctx); err != nil {
			t.Fatalf("first Clear failed: %v", err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("second Clear failed: %v", err)
		}

		result, err := s.Load(ctx, storage.HistoryKey)
		if err != nil {
			t.Fatalf("Load after Clear failed: %v", err)
		}
		if result.Status != storage.StatusAbsent {
			t.Errorf("Expected history absent after Clear, got %s", result.Status)
		}

		other, err := s.Load(ctx, "other")
		if err != nil {
			t.Fatalf("Load(other) failed: %v", err)
		}
		if opts.HistoryOnlyClear && !other.Found() {
			t.Errorf("Expected non-history key to survive Clear, got %s", other.Status)
		}
		if !opts.HistoryOnlyClear && other.Found() {
			t.Errorf("Expected Clear to remove every key, %q is still %s", "other", other.Status)
		}
	})

	t.Run("InvalidKeys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, key := range []string{"", "..", "a/b", `a\b`} {
			err := s.Save(ctx, key, "x")
			var writeErr *storage.WriteError
			if !errors.As(err, &writeErr) || !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("Save(%q): expected *WriteError wrapping ErrInvalidKey, got %v", key, err)
			}
			if _, err := s.Load(ctx, key); !errors.Is(err, storage.ErrInvalidKey) {
				t.Errorf("Load(%q): expected ErrInvalidKey, got %v", key, err)
			}
		}
	})

	t.Run("UnencodableValue", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(context.Background(), "fn", func() {})
		if !errors.Is(err, storage.ErrUnencodable) {
			t.Fatalf("Expected ErrUnencodable, got %v", err)
		}
	})

	t.Run("InvalidUTF8IsRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		err := s.Save(ctx, "latin1", []string{"caf\xe9"})
		if !errors.Is(err, storage.ErrUnencodable) {
			t.Fatalf("Expected ErrUnencodable, got %v", err)
		}
		result, err := s.Load(ctx, "latin1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if result.Status != storage.StatusAbsent {
			t.Fatalf("Rejected value must not be stored, got %s", result.Status)
		}
	})

	t.Run("ControlCharactersRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []string{"nul\x00byte", "tab\tand\nnewline", "emoji \U0001F600"}
		if err := s.Save(context.Background(), "control", want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		var got []string
		loadInto(t, s, "control", &got)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Expected %q, got %q", want, got)
		}
	})
}

func loadInto(t *testing.T, s storage.Storage, key string, v any) {
	t.Helper()
	result, err := s.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load(%s) failed: %v", key, err)
	}
	if !result.Found() {
		t.Fatalf("Load(%s): expected found, got %s", key, result.Status)
	}
	if err := result.Decode(v); err != nil {
		t.Fatalf("Decode(%s) failed: %v", key, err)
	}
}
