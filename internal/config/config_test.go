package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "EMAIL_PROVIDER", "CONFIRMATION_MAX_ATTEMPTS", "CORS_ALLOWED_ORIGINS", "DEFAULT_LOCALE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected sendgrid email provider, got %s", cfg.EmailProvider)
	}
	if cfg.WorkerMaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", cfg.WorkerMaxAttempts)
	}
	if cfg.WorkerInterval != time.Minute {
		t.Fatalf("expected 1m worker interval, got %s", cfg.WorkerInterval)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.DefaultLocale != "pt-BR" {
		t.Fatalf("expected pt-BR default locale, got %s", cfg.DefaultLocale)
	}
	if cfg.IsProduction() {
		t.Fatal("development config reported production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("EMAIL_PROVIDER", "SES")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CONFIRMATION_WORKER_INTERVAL", "30s")
	t.Setenv("CONFIRMATION_RETRY_BACKOFF", "2m")
	t.Setenv("CONFIRMATION_CLAIM_LEASE", "10m")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production env")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected lowercased email provider, got %s", cfg.EmailProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected 2.5 rps, got %v", cfg.RateLimitRPS)
	}
	if cfg.WorkerInterval != 30*time.Second || cfg.WorkerBackoff != 2*time.Minute {
		t.Fatalf("unexpected worker timings: %s %s", cfg.WorkerInterval, cfg.WorkerBackoff)
	}
	if cfg.WorkerLease != 10*time.Minute {
		t.Fatalf("expected claim lease override, got %s", cfg.WorkerLease)
	}
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	if got := getEnvAsInt("RATE_LIMIT_BURST", 20); got != 20 {
		t.Fatalf("expected fallback 20, got %d", got)
	}
}
