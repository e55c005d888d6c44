package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("expected 1s tick interval, got %v", cfg.TickInterval)
	}
	if cfg.LocationRate != 5 || cfg.LocationBurst != 10 {
		t.Fatalf("unexpected location limits %v/%d", cfg.LocationRate, cfg.LocationBurst)
	}
	if cfg.Debug {
		t.Fatalf("expected debug off by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("LOCATION_RATE", "2.5")
	t.Setenv("LOCATION_BURST", "3")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.RedisPassword != "hunter2" {
		t.Fatalf("expected override redis password")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms tick, got %v", cfg.TickInterval)
	}
	if cfg.LocationRate != 2.5 || cfg.LocationBurst != 3 {
		t.Fatalf("unexpected location limits %v/%d", cfg.LocationRate, cfg.LocationBurst)
	}
	if cfg.LogFormat != "json" || !cfg.Debug {
		t.Fatalf("expected json format with debug")
	}
}

func TestLoadRejectsNonPositiveTick(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "0s")
	cfg := Load()
	if cfg.TickInterval != time.Second {
		t.Fatalf("expected fallback to 1s, got %v", cfg.TickInterval)
	}
}
