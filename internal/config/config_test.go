package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("FORM_STORE", "")
	t.Setenv("BACKEND_BASE_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.FormStore != "memory" {
		t.Fatalf("expected memory form store by default, got %s", cfg.FormStore)
	}
	if cfg.BackendTimeout != 30*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.DefaultPlanDuration != "1 Month" {
		t.Fatalf("expected default plan duration, got %q", cfg.DefaultPlanDuration)
	}
	if cfg.PriceOverridePlanSlug != "" {
		t.Fatalf("expected price override disabled by default")
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FORM_STORE", " Redis ")
	t.Setenv("BACKEND_BASE_URL", "https://api.clinic.test/api/")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://clinic.test, ,http://localhost:3000")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("PRICE_OVERRIDE_PLAN_SLUG", "starter")
	t.Setenv("PRICE_OVERRIDE_AMOUNT", "1")
	t.Setenv("SESSION_IDLE_TTL", "not-a-duration")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.FormStore != "redis" {
		t.Fatalf("expected normalized form store, got %q", cfg.FormStore)
	}
	if cfg.BackendBaseURL != "https://api.clinic.test/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Fatalf("expected backend timeout override, got %s", cfg.BackendTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://localhost:3000" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if cfg.PriceOverridePlanSlug != "starter" || cfg.PriceOverrideAmount != 1 {
		t.Fatalf("expected price override, got %q %v", cfg.PriceOverridePlanSlug, cfg.PriceOverrideAmount)
	}
	if cfg.SessionIdleTTL != 2*time.Hour {
		t.Fatalf("expected invalid duration to fall back, got %s", cfg.SessionIdleTTL)
	}
}
