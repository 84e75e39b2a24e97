// Package redisstore implements [storage.Storage] on Redis string keys. Each
// value is stored as JSON under "{prefix}:{key}"; the prefix is the store's
// namespace and Clear removes every key that carries it.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jnorthrup/redline/providers/storage"
)

// scanBatch is the COUNT hint passed to SCAN during Clear.
const scanBatch = 100

// Store keeps values in Redis under a key prefix.
type Store struct {
	client redis.Cmdable
	prefix string
}

var _ storage.Storage = (*Store)(nil)

// New returns a Store writing under prefix. client is usually a
// *redis.Client; any redis.Cmdable works.
func New(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Key returns the Redis key that holds key.
func (s *Store) Key(key string) string {
	return s.prefix + ":" + key
}

// Save sets the encoded value without expiry.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	if err := storage.ValidateKey(key); err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	data, err := storage.Encode(key, value)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.Key(key), data, 0).Err(); err != nil {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("redisstore: set: %w", err)}
	}
	return nil
}

// Load reads key. redis.Nil maps to an absent result.
func (s *Store) Load(ctx context.Context, key string) (storage.Result, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Result{}, fmt.Errorf("redisstore: load: %w", err)
	}

	data, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.Absent(key), nil
		}
		return storage.Result{}, &storage.ReadError{Key: key, Err: fmt.Errorf("redisstore: get: %w", err)}
	}
	return storage.Decode(key, data, false), nil
}

// Clear deletes every key under the prefix. Keys written concurrently with
// the scan may survive.
func (s *Store) Clear(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, escapeGlob(s.prefix)+":*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return &storage.ClearError{Namespace: s.prefix, Err: fmt.Errorf("redisstore: scan: %w", err)}
	}

	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return &storage.ClearError{Namespace: s.prefix, Err: fmt.Errorf("redisstore: del: %w", err)}
		}
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
