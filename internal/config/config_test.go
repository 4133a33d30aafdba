package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("PGBUS_DATABASE_URL", "postgres://localhost/pgbus")
	t.Setenv("PGBUS_AUTH_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want :8000", cfg.HTTPAddr)
	}
	if cfg.SubscriptionMaxAttempts != 5 {
		t.Errorf("SubscriptionMaxAttempts = %d, want 5", cfg.SubscriptionMaxAttempts)
	}
	if cfg.SubscriptionBackoffMinSeconds != 5 || cfg.SubscriptionBackoffMaxSeconds != 300 {
		t.Errorf("backoff defaults = %d/%d, want 5/300",
			cfg.SubscriptionBackoffMinSeconds, cfg.SubscriptionBackoffMaxSeconds)
	}
	if cfg.JanitorLockTimeout != 60*time.Second {
		t.Errorf("JanitorLockTimeout = %v, want 60s", cfg.JanitorLockTimeout)
	}
	if cfg.JanitorRetentionAge != time.Hour {
		t.Errorf("JanitorRetentionAge = %v, want 1h", cfg.JanitorRetentionAge)
	}
	if cfg.JanitorCronSchedule != "@every 1m" {
		t.Errorf("JanitorCronSchedule = %q, want @every 1m", cfg.JanitorCronSchedule)
	}
	if !cfg.AuthEnabled {
		t.Error("AuthEnabled = false, want true by default")
	}
	if cfg.AuthTokenExpireMinutes != 30 {
		t.Errorf("AuthTokenExpireMinutes = %d, want 30", cfg.AuthTokenExpireMinutes)
	}
	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PGBUS_HTTP_ADDR", ":9090")
	t.Setenv("PGBUS_SUBSCRIPTION_MAX_ATTEMPTS", "3")
	t.Setenv("PGBUS_JANITOR_LOCK_TIMEOUT_SECONDS", "120")
	t.Setenv("PGBUS_AUTH_ENABLED", "false")
	t.Setenv("PGBUS_ENV", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.SubscriptionMaxAttempts != 3 {
		t.Errorf("SubscriptionMaxAttempts = %d, want 3", cfg.SubscriptionMaxAttempts)
	}
	if cfg.JanitorLockTimeout != 2*time.Minute {
		t.Errorf("JanitorLockTimeout = %v, want 2m", cfg.JanitorLockTimeout)
	}
	if cfg.AuthEnabled {
		t.Error("AuthEnabled = true, want false")
	}
	if cfg.Env != "prod" {
		t.Errorf("Env = %q, want prod", cfg.Env)
	}
}

func TestLoadAuthDisabledNeedsNoSecret(t *testing.T) {
	t.Setenv("PGBUS_DATABASE_URL", "postgres://localhost/pgbus")
	t.Setenv("PGBUS_AUTH_ENABLED", "false")

	if _, err := Load(); err != nil {
		t.Errorf("Load() error = %v, want nil with auth disabled", err)
	}
}

func TestLoadCollectsAllErrors(t *testing.T) {
	t.Setenv("PGBUS_DATABASE_URL", "")
	t.Setenv("PGBUS_AUTH_SECRET_KEY", "")
	t.Setenv("PGBUS_SUBSCRIPTION_MAX_ATTEMPTS", "zero")
	t.Setenv("PGBUS_SUBSCRIPTION_BACKOFF_MIN_SECONDS", "100")
	t.Setenv("PGBUS_SUBSCRIPTION_BACKOFF_MAX_SECONDS", "10")
	t.Setenv("PGBUS_AUTH_ENABLED", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() = nil error, want failure")
	}
	msg := err.Error()
	for _, want := range []string{
		"PGBUS_DATABASE_URL is required",
		"PGBUS_SUBSCRIPTION_MAX_ATTEMPTS",
		"PGBUS_SUBSCRIPTION_BACKOFF_MAX_SECONDS must be >=",
		"PGBUS_AUTH_ENABLED",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}
