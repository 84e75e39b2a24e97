package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jnorthrup/redline/providers/storage"
)

const (
	// Ext is the extension appended to every key.
	Ext = ".json"

	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// Store keeps one JSON file per key under a base directory. Concurrent
// callers are not serialized against each other.
type Store struct {
	basePath string
	fileMode fs.FileMode
	repair   bool
}

var _ storage.Storage = (*Store)(nil)

// Option configures optional Store behavior.
type Option func(*Store)

// WithRepair runs malformed files through jsonrepair before reporting them
// as corrupt.
func WithRepair(enabled bool) Option {
	return func(s *Store) {
		s.repair = enabled
	}
}

// WithFileMode overrides the permission bits of written files (default 0644).
func WithFileMode(mode fs.FileMode) Option {
	return func(s *Store) {
		s.fileMode = mode
	}
}

// New returns a Store rooted at basePath. The directory is created on the
// first Save if it does not exist.
func New(basePath string, opts ...Option) *Store {
	s := &Store{
		basePath: filepath.Clean(basePath),
		fileMode: defaultFileMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BasePath returns the directory the store writes to.
func (s *Store) BasePath() string {
	return s.basePath
}

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.basePath, key+Ext)
}

// Save encodes value and overwrites the key's file.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	if err := storage.ValidateKey(key); err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	data, err := storage.Encode(key, value)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}

	if err := os.MkdirAll(s.basePath, defaultDirMode); err != nil {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("filestore: create base dir: %w", err)}
	}
	if err := os.WriteFile(s.Path(key), data, s.fileMode); err != nil {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("filestore: %w", err)}
	}
	return nil
}

// Load reads and decodes the key's file.
func (s *Store) Load(ctx context.Context, key string) (storage.Result, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Result{}, fmt.Errorf("filestore: load: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return storage.Result{}, &storage.ReadError{Key: key, Err: err}
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.Absent(key), nil
		}
		return storage.Result{}, &storage.ReadError{Key: key, Err: fmt.Errorf("filestore: %w", err)}
	}
	return storage.Decode(key, data, s.repair), nil
}

// Clear removes the history file. A missing file is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &storage.ClearError{Namespace: s.basePath, Err: err}
	}
	err := os.Remove(s.Path(storage.HistoryKey))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &storage.ClearError{Namespace: s.basePath, Err: fmt.Errorf("filestore: %w", err)}
	}
	return nil
}
