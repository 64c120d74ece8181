package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "scheduler"
log_level = "debug"

[postgres]
host = "db.internal"
database = "matka"
user = "settler"

[scheduler]
interval = "30s"

[server]
enabled = false
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "scheduler" {
		t.Errorf("mode = %q, want scheduler", cfg.Mode)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("postgres host = %q, want db.internal", cfg.Postgres.Host)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d, want default 5432", cfg.Postgres.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q, want default", cfg.Redis.Addr)
	}
	if cfg.Scheduler.Interval.Duration != 30*time.Second {
		t.Errorf("scheduler interval = %s, want 30s", cfg.Scheduler.Interval.Duration)
	}
	if cfg.Server.Enabled {
		t.Error("server should be disabled by file")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("merged config should validate: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("MATKA_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("MATKA_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("MATKA_SERVER_PORT", "9090")
	t.Setenv("MATKA_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MATKA_SCHEDULER_INTERVAL", "2m")
	t.Setenv("MATKA_MODE", "server")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Postgres.Password != "s3cret" {
		t.Errorf("postgres password not overridden")
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != len(want) {
		t.Fatalf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Server.CORSOrigins[i] != want[i] {
			t.Errorf("cors origin[%d] = %q, want %q", i, cfg.Server.CORSOrigins[i], want[i])
		}
	}
	if cfg.Scheduler.Interval.Duration != 2*time.Minute {
		t.Errorf("scheduler interval = %s, want 2m", cfg.Scheduler.Interval.Duration)
	}
	if cfg.Mode != "server" {
		t.Errorf("mode = %q, want server", cfg.Mode)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"missing postgres host", func(c *Config) { c.Postgres.Host = ""; c.Postgres.DSN = "" }},
		{"bucket without region", func(c *Config) { c.S3.Bucket = "b"; c.S3.Region = "" }},
		{"server port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"zero scheduler interval", func(c *Config) { c.Scheduler.Interval.Duration = 0 }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true; c.S3.Bucket = "" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
