// Package config loads environment-variable-driven settings for pgbus.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all settings read from the environment. Every variable uses
// the PGBUS_ prefix.
type Config struct {
	// Database
	DatabaseURL string

	// HTTP
	HTTPAddr string

	// Subscription defaults, applied when a create request omits them.
	SubscriptionMaxAttempts       int
	SubscriptionBackoffMinSeconds int
	SubscriptionBackoffMaxSeconds int

	// Janitor
	JanitorLockTimeout  time.Duration
	JanitorRetentionAge time.Duration
	JanitorCronSchedule string

	// Auth
	AuthEnabled            bool
	AuthSecretKey          string
	AuthTokenExpireMinutes int

	// Environment name, controls console logging.
	Env string
}

// Load reads and validates the configuration. All problems are reported in a
// single error so a broken deployment fails fast with the full picture.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.DatabaseURL = envStr("PGBUS_DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		errs = append(errs, "PGBUS_DATABASE_URL is required")
	}

	cfg.HTTPAddr = envStr("PGBUS_HTTP_ADDR", ":8000")
	cfg.Env = envStr("PGBUS_ENV", "dev")

	cfg.SubscriptionMaxAttempts = envInt(&errs, "PGBUS_SUBSCRIPTION_MAX_ATTEMPTS", 5, 1)
	cfg.SubscriptionBackoffMinSeconds = envInt(&errs, "PGBUS_SUBSCRIPTION_BACKOFF_MIN_SECONDS", 5, 1)
	cfg.SubscriptionBackoffMaxSeconds = envInt(&errs, "PGBUS_SUBSCRIPTION_BACKOFF_MAX_SECONDS", 300, 1)
	if cfg.SubscriptionBackoffMaxSeconds < cfg.SubscriptionBackoffMinSeconds {
		errs = append(errs, "PGBUS_SUBSCRIPTION_BACKOFF_MAX_SECONDS must be >= PGBUS_SUBSCRIPTION_BACKOFF_MIN_SECONDS")
	}

	lockTimeout := envInt(&errs, "PGBUS_JANITOR_LOCK_TIMEOUT_SECONDS", 60, 1)
	retention := envInt(&errs, "PGBUS_JANITOR_RETENTION_SECONDS", 3600, 1)
	cfg.JanitorLockTimeout = time.Duration(lockTimeout) * time.Second
	cfg.JanitorRetentionAge = time.Duration(retention) * time.Second
	cfg.JanitorCronSchedule = envStr("PGBUS_JANITOR_SCHEDULE", "@every 1m")

	cfg.AuthEnabled = envBool(&errs, "PGBUS_AUTH_ENABLED", true)
	cfg.AuthSecretKey = envStr("PGBUS_AUTH_SECRET_KEY", "")
	if cfg.AuthEnabled && cfg.AuthSecretKey == "" {
		errs = append(errs, "PGBUS_AUTH_SECRET_KEY is required when auth is enabled")
	}
	cfg.AuthTokenExpireMinutes = envInt(&errs, "PGBUS_AUTH_TOKEN_EXPIRE_MINUTES", 30, 1)

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(errs *[]string, key string, def, min int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: not an integer: %q", key, v))
		return def
	}
	if n < min {
		*errs = append(*errs, fmt.Sprintf("%s: must be >= %d, got %d", key, min, n))
		return def
	}
	return n
}

func envBool(errs *[]string, key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: not a boolean: %q", key, v))
		return def
	}
	return b
}
