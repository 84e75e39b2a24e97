// Package config loads process configuration from the environment. A .env
// file in the working directory is read first; variables already set in the
// environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jnorthrup/redline/providers/memory"
	"github.com/jnorthrup/redline/providers/storage"
)

// Backend selects the storage medium.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendS3       Backend = "s3"
	BackendSQLite   Backend = "sqlite"
)

// Config is the full environment configuration.
type Config struct {
	Backend       Backend       `env:"REDLINE_BACKEND"        envDefault:"file"`
	BasePath      string        `env:"REDLINE_BASE_PATH"      envDefault:".redline"`
	Namespace     string        `env:"REDLINE_NAMESPACE"      envDefault:"redline"`
	ManagerID     string        `env:"REDLINE_MANAGER_ID"`
	MirrorMode    string        `env:"REDLINE_MIRROR_MODE"    envDefault:"async"`
	MirrorTimeout time.Duration `env:"REDLINE_MIRROR_TIMEOUT" envDefault:"0s"`
	RepairJSON    bool          `env:"REDLINE_REPAIR_JSON"`
	Retries       int           `env:"REDLINE_RETRIES"        envDefault:"0"`
	RetryBackoff  time.Duration `env:"REDLINE_RETRY_BACKOFF"  envDefault:"100ms"`

	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config
	SQLite   SQLiteConfig
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	URL          string `env:"REDLINE_POSTGRES_URL"`
	Table        string `env:"REDLINE_POSTGRES_TABLE"         envDefault:"redline_kv"`
	EnsureSchema bool   `env:"REDLINE_POSTGRES_ENSURE_SCHEMA" envDefault:"true"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	URL string `env:"REDLINE_REDIS_URL"`
}

// S3Config configures the s3 backend. An empty Endpoint uses AWS; setting it
// targets an S3-compatible server with path-style addressing.
type S3Config struct {
	Bucket   string `env:"REDLINE_S3_BUCKET"`
	Prefix   string `env:"REDLINE_S3_PREFIX"   envDefault:"redline"`
	Region   string `env:"REDLINE_S3_REGION"   envDefault:"us-east-1"`
	Endpoint string `env:"REDLINE_S3_ENDPOINT"`
}

// SQLiteConfig configures the sqlite backend. An empty Path resolves to
// {BasePath}/redline.db.
type SQLiteConfig struct {
	Path string `env:"REDLINE_SQLITE_PATH"`
}

// Load reads dotenvFiles (default ".env"; missing files are skipped), parses
// the environment and validates the result.
func Load(dotenvFiles ...string) (Config, error) {
	if err := loadDotEnv(dotenvFiles...); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	if _, err := c.MirrorPolicy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MirrorTimeout < 0 {
		return fmt.Errorf("config: REDLINE_MIRROR_TIMEOUT must not be negative")
	}
	if c.Retries < 0 || c.RetryBackoff < 0 {
		return fmt.Errorf("config: REDLINE_RETRIES and REDLINE_RETRY_BACKOFF must not be negative")
	}

	switch c.Backend {
	case BackendFile:
		if c.BasePath == "" {
			return fmt.Errorf("config: REDLINE_BASE_PATH is required for the file backend")
		}
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("config: REDLINE_POSTGRES_URL is required for the postgres backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("config: REDLINE_REDIS_URL is required for the redis backend")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: REDLINE_S3_BUCKET is required for the s3 backend")
		}
	case BackendSQLite:
		if c.SQLitePath() == "" {
			return fmt.Errorf("config: REDLINE_SQLITE_PATH or REDLINE_BASE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	return nil
}

// SQLitePath returns SQLite.Path, or {BasePath}/redline.db when it is unset.
func (c Config) SQLitePath() string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	if c.BasePath == "" {
		return ""
	}
	return filepath.Join(c.BasePath, "redline.db")
}

// RetryConfig returns the storage retry settings. Retries of zero disables
// retrying.
func (c Config) RetryConfig() storage.RetryConfig {
	if c.Retries == 0 {
		return storage.RetryConfig{MaxRetries: -1}
	}
	return storage.RetryConfig{MaxRetries: c.Retries, InitialBackoff: c.RetryBackoff}
}

// MirrorPolicy parses MirrorMode.
func (c Config) MirrorPolicy() (memory.MirrorPolicy, error) {
	return memory.ParseMirrorPolicy(c.MirrorMode)
}

// ManagerOptions translates the mirror settings into manager options.
func (c Config) ManagerOptions() ([]memory.Option, error) {
	policy, err := c.MirrorPolicy()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts := []memory.Option{
		memory.WithMirrorPolicy(policy),
		memory.WithMirrorTimeout(c.MirrorTimeout),
	}
	if c.ManagerID != "" {
		opts = append(opts, memory.WithID(c.ManagerID))
	}
	return opts, nil
}
