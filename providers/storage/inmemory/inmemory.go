package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jnorthrup/redline/providers/storage"
)

// Store is a map-backed storage.Storage guarded by an RWMutex.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

var _ storage.Storage = (*Store)(nil)

// Save encodes value and stores a private copy under key.
func (s *Store) Save(_ context.Context, key string, value any) error {
	if err := storage.ValidateKey(key); err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	data, err := storage.Encode(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the bytes stored under key.
func (s *Store) Load(_ context.Context, key string) (storage.Result, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Result{}, fmt.Errorf("inmemory: load: %w", err)
	}

	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return storage.Absent(key), nil
	}
	return storage.Decode(key, append([]byte(nil), data...), false), nil
}

// Clear drops every key.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
