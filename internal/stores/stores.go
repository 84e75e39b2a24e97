// Package stores builds the persistent and context storage backends named
// by a config.Config.
package stores

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jnorthrup/redline/internal/config"
	"github.com/jnorthrup/redline/providers/memory"
	"github.com/jnorthrup/redline/providers/observability"
	"github.com/jnorthrup/redline/providers/storage"
	"github.com/jnorthrup/redline/providers/storage/filestore"
	"github.com/jnorthrup/redline/providers/storage/inmemory"
	"github.com/jnorthrup/redline/providers/storage/pgstore"
	"github.com/jnorthrup/redline/providers/storage/redisstore"
	"github.com/jnorthrup/redline/providers/storage/s3store"
	"github.com/jnorthrup/redline/providers/storage/sqlitestore"
)

const (
	persistentRole = "persistent"
	contextRole    = "context"
)

// Stores holds one backend per role plus whatever connections they share.
type Stores struct {
	Backend    config.Backend
	Persistent storage.Storage
	Context    storage.Storage

	closers []func() error
}

// Open connects the configured backend. Both stores are wrapped with
// storage.WithRetry when cfg.Retries is set, then with storage.WithObserver
// when observer is non-nil.
func Open(ctx context.Context, cfg config.Config, observer observability.Provider) (*Stores, error) {
	s := &Stores{Backend: cfg.Backend}

	var err error
	switch cfg.Backend {
	case config.BackendFile:
		err = s.openFile(cfg)
	case config.BackendMemory:
		s.Persistent, s.Context = inmemory.New(), inmemory.New()
	case config.BackendPostgres:
		err = s.openPostgres(ctx, cfg)
	case config.BackendRedis:
		err = s.openRedis(ctx, cfg)
	case config.BackendS3:
		err = s.openS3(ctx, cfg)
	case config.BackendSQLite:
		err = s.openSQLite(cfg)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("stores: %w", err)
	}

	retry := cfg.RetryConfig()
	s.Persistent = storage.WithRetry(s.Persistent, retry)
	s.Context = storage.WithRetry(s.Context, retry)

	s.Persistent = storage.WithObserver(s.Persistent, string(cfg.Backend), observer)
	s.Context = storage.WithObserver(s.Context, string(cfg.Backend), observer)
	return s, nil
}

// NewManager opens the configured stores and returns a Manager on them. The
// caller closes the manager first, then the stores.
func NewManager(ctx context.Context, cfg config.Config, observer observability.Provider) (*memory.Manager, *Stores, error) {
	opts, err := cfg.ManagerOptions()
	if err != nil {
		return nil, nil, err
	}
	s, err := Open(ctx, cfg, observer)
	if err != nil {
		return nil, nil, err
	}
	if observer != nil {
		opts = append(opts, memory.WithObserver(observer))
	}
	return memory.New(s.Persistent, s.Context, opts...), s, nil
}

// Close releases shared connections in reverse order of acquisition.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Stores) openFile(cfg config.Config) error {
	opts := []filestore.Option{filestore.WithRepair(cfg.RepairJSON)}
	s.Persistent = filestore.New(filepath.Join(cfg.BasePath, memory.PersistentDir), opts...)
	s.Context = filestore.New(cfg.BasePath, opts...)
	return nil
}

func (s *Stores) openPostgres(ctx context.Context, cfg config.Config) error {
	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	s.closers = append(s.closers, func() error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}

	opts := []pgstore.Option{pgstore.WithTableName(cfg.Postgres.Table)}
	persistent := pgstore.New(pool, namespace(cfg, persistentRole), opts...)
	if cfg.Postgres.EnsureSchema {
		if err := persistent.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	s.Persistent = persistent
	s.Context = pgstore.New(pool, namespace(cfg, contextRole), opts...)
	return nil
}

func (s *Stores) openRedis(ctx context.Context, cfg config.Config) error {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	client := redis.NewClient(opts)
	s.closers = append(s.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	s.Persistent = redisstore.New(client, namespace(cfg, persistentRole))
	s.Context = redisstore.New(client, namespace(cfg, contextRole))
	return nil
}

func (s *Stores) openS3(ctx context.Context, cfg config.Config) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return fmt.Errorf("s3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	s.Persistent = s3store.New(client, cfg.S3.Bucket, cfg.S3.Prefix+"/"+persistentRole)
	s.Context = s3store.New(client, cfg.S3.Bucket, cfg.S3.Prefix+"/"+contextRole)
	return nil
}

func (s *Stores) openSQLite(cfg config.Config) error {
	path := cfg.SQLitePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	persistent, err := sqlitestore.Open(path, namespace(cfg, persistentRole))
	if err != nil {
		return err
	}
	s.closers = append(s.closers, persistent.Close)
	s.Persistent = persistent
	s.Context = persistent.WithNamespace(namespace(cfg, contextRole))
	return nil
}

func namespace(cfg config.Config, role string) string {
	return cfg.Namespace + ":" + role
}
