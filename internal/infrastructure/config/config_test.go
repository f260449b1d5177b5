package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func load(t *testing.T, env map[string]string) *Config {
	t.Helper()
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}
	return &cfg
}

func TestConfig_Defaults(t *testing.T) {
	cfg := load(t, map[string]string{})

	if cfg.Port != "8080" || cfg.Env != "development" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.AccessTTL != 24*time.Hour || cfg.Auth.RememberRefreshTTL != 1440*time.Hour {
		t.Fatalf("unexpected ttl defaults: %+v", cfg.Auth)
	}
	if cfg.Recorder.Workers != 4 || cfg.Cache.CategoryTTL != 5*time.Minute {
		t.Fatalf("unexpected worker/cache defaults: %+v %+v", cfg.Recorder, cfg.Cache)
	}
}

func TestConfig_Validate_DevFallbackSecret(t *testing.T) {
	cfg := load(t, map[string]string{})

	if err := cfg.Validate(zerolog.Nop()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Auth.JWTSecret != devSecret {
		t.Fatalf("expected development secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.SessionConfig().Secret != devSecret {
		t.Fatalf("session config did not carry the secret")
	}
}

func TestConfig_Validate_ProductionRequiresSecret(t *testing.T) {
	cfg := load(t, map[string]string{"ENV": "production"})

	err := cfg.Validate(zerolog.Nop())
	if !errors.Is(err, domain.ErrSigningSecretMissing) {
		t.Fatalf("expected missing secret error, got %v", err)
	}

	cfg = load(t, map[string]string{"ENV": "production", "JWT_SECRET": "s3cret"})
	if err := cfg.Validate(zerolog.Nop()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("secret overwritten: %q", cfg.Auth.JWTSecret)
	}
}

func TestConfig_Validate_NegativeWorkers(t *testing.T) {
	cfg := load(t, map[string]string{"LOGIN_RECORDER_WORKERS": "-1"})
	if err := cfg.Validate(zerolog.Nop()); err == nil {
		t.Fatalf("expected error for negative workers")
	}
}
