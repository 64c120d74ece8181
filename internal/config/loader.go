package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MATKA_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MATKA_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MATKA_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MATKA_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MATKA_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MATKA_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MATKA_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MATKA_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MATKA_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MATKA_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MATKA_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MATKA_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MATKA_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MATKA_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MATKA_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MATKA_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MATKA_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MATKA_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MATKA_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MATKA_S3_REGION")
	setStr(&cfg.S3.Bucket, "MATKA_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MATKA_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MATKA_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MATKA_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MATKA_S3_FORCE_PATH_STYLE")

	// ── Scheduler ──
	setBool(&cfg.Scheduler.Enabled, "MATKA_SCHEDULER_ENABLED")
	setDuration(&cfg.Scheduler.Interval, "MATKA_SCHEDULER_INTERVAL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MATKA_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "MATKA_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "MATKA_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MATKA_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MATKA_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MATKA_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MATKA_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "MATKA_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "MATKA_SERVER_RATE_LIMIT_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "MATKA_MODE")
	setStr(&cfg.LogLevel, "MATKA_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
