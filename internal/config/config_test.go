package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jnorthrup/redline/providers/memory"
)

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
}

func clearRedlineEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, "REDLINE_") {
			unsetenv(t, key)
		}
	}
}

func noDotEnv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearRedlineEnv(t)

	cfg, err := Load(noDotEnv(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendFile {
		t.Errorf("expected file backend, got %q", cfg.Backend)
	}
	if cfg.BasePath != ".redline" {
		t.Errorf("expected base path .redline, got %q", cfg.BasePath)
	}
	if cfg.SQLitePath() != filepath.Join(".redline", "redline.db") {
		t.Errorf("unexpected sqlite path %q", cfg.SQLitePath())
	}
	if !cfg.Postgres.EnsureSchema {
		t.Error("expected schema creation on by default")
	}
	if got := cfg.RetryConfig().MaxRetries; got != -1 {
		t.Errorf("expected retries disabled by default, got MaxRetries=%d", got)
	}
	policy, err := cfg.MirrorPolicy()
	if err != nil || policy != memory.MirrorAsync {
		t.Errorf("expected async policy, got %v (err=%v)", policy, err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearRedlineEnv(t)
	t.Setenv("REDLINE_BACKEND", "redis")
	t.Setenv("REDLINE_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REDLINE_MIRROR_MODE", "sync")
	t.Setenv("REDLINE_MIRROR_TIMEOUT", "2s")
	t.Setenv("REDLINE_REPAIR_JSON", "true")
	t.Setenv("REDLINE_MANAGER_ID", "agent-7")
	t.Setenv("REDLINE_RETRIES", "4")
	t.Setenv("REDLINE_RETRY_BACKOFF", "250ms")

	cfg, err := Load(noDotEnv(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendRedis || cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("unexpected redis config: %+v", cfg)
	}
	if cfg.MirrorTimeout != 2*time.Second || !cfg.RepairJSON {
		t.Errorf("unexpected mirror settings: %+v", cfg)
	}

	retry := cfg.RetryConfig()
	if retry.MaxRetries != 4 || retry.InitialBackoff != 250*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", retry)
	}

	opts, err := cfg.ManagerOptions()
	if err != nil {
		t.Fatalf("manager options: %v", err)
	}
	if len(opts) != 3 {
		t.Fatalf("expected 3 manager options, got %d", len(opts))
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearRedlineEnv(t)
	unsetenv(t, "REDLINE_BASE_PATH")
	t.Setenv("REDLINE_NAMESPACE", "from-env")

	dotenv := filepath.Join(t.TempDir(), ".env")
	content := "REDLINE_BASE_PATH=/tmp/from-dotenv\nREDLINE_NAMESPACE=from-dotenv\n"
	if err := os.WriteFile(dotenv, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(dotenv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasePath != "/tmp/from-dotenv" {
		t.Errorf("expected base path from .env, got %q", cfg.BasePath)
	}
	if cfg.Namespace != "from-env" {
		t.Errorf("expected environment to win over .env, got %q", cfg.Namespace)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown backend", map[string]string{"REDLINE_BACKEND": "floppy"}, "unknown backend"},
		{"postgres without url", map[string]string{"REDLINE_BACKEND": "postgres"}, "REDLINE_POSTGRES_URL"},
		{"redis without url", map[string]string{"REDLINE_BACKEND": "redis"}, "REDLINE_REDIS_URL"},
		{"s3 without bucket", map[string]string{"REDLINE_BACKEND": "s3"}, "REDLINE_S3_BUCKET"},
		{"bad mirror mode", map[string]string{"REDLINE_MIRROR_MODE": "later"}, "mirror policy"},
		{"negative timeout", map[string]string{"REDLINE_MIRROR_TIMEOUT": "-1s"}, "must not be negative"},
		{"unparsable timeout", map[string]string{"REDLINE_MIRROR_TIMEOUT": "soon"}, "parse env"},
		{"negative retries", map[string]string{"REDLINE_RETRIES": "-2"}, "REDLINE_RETRIES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearRedlineEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(noDotEnv(t))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
