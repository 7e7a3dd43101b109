package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BLOG_SECRET_KEY", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh ttl, got %v", cfg.RefreshTokenTTL)
	}
	if cfg.RefreshTokenInBody || !cfg.RefreshTokenInCookie {
		t.Fatalf("expected refresh token in cookie only, got body=%v cookie=%v", cfg.RefreshTokenInBody, cfg.RefreshTokenInCookie)
	}
	if cfg.PaginationMaxLimit != 100 {
		t.Fatalf("expected max limit 100, got %d", cfg.PaginationMaxLimit)
	}
	if cfg.ObjectStore.Enabled() {
		t.Fatal("expected object store to be disabled without a bucket")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BLOG_SECRET_KEY", "s3cret")
	t.Setenv("BLOG_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("BLOG_REFRESH_TOKEN_TTL_DAYS", "1")
	t.Setenv("BLOG_REFRESH_TOKEN_IN_BODY", "yes")
	t.Setenv("BLOG_REFRESH_TOKEN_IN_COOKIE", "no")
	t.Setenv("BLOG_USE_CORS", "1")
	t.Setenv("BLOG_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BLOG_DATABASE_URL", MemoryDatabaseURL)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.AccessTokenTTL != 5*time.Minute || cfg.RefreshTokenTTL != 24*time.Hour {
		t.Fatalf("unexpected ttls: %v/%v", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
	if !cfg.RefreshTokenInBody || cfg.RefreshTokenInCookie {
		t.Fatalf("unexpected refresh placement: body=%v cookie=%v", cfg.RefreshTokenInBody, cfg.RefreshTokenInCookie)
	}
	if !cfg.UseCORS || len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors config: %v %v", cfg.UseCORS, cfg.CORSOrigins)
	}
	if !cfg.UsesMemoryStore() {
		t.Fatal("expected memory store to be selected")
	}
}

func TestLoadRequiresSecretOutsideDebug(t *testing.T) {
	t.Setenv("BLOG_SECRET_KEY", "")
	t.Setenv("BLOG_DEBUG", "")

	if _, err := Load(); !errors.Is(err, ErrMissingSecretKey) {
		t.Fatalf("expected ErrMissingSecretKey, got %v", err)
	}

	t.Setenv("BLOG_DEBUG", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected debug mode to allow a missing secret, got %v", err)
	}
	if !cfg.Debug {
		t.Fatal("expected debug to be enabled")
	}
}
