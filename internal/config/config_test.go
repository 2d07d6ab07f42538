package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TIMEOUT", "")
	t.Setenv("POLL_TIMEOUT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "")
	t.Setenv("HEALTH_DETAIL", "")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8787 {
		t.Fatalf("Port = %d, want 8787", cfg.Port)
	}
	if cfg.AwaitTimeout != 180*time.Second {
		t.Fatalf("AwaitTimeout = %s, want 180s", cfg.AwaitTimeout)
	}
	if cfg.PollTimeout != 0 {
		t.Fatalf("PollTimeout = %s, want 0 (non-blocking default)", cfg.PollTimeout)
	}
	if cfg.HealthDetail {
		t.Fatalf("HealthDetail = true, want false by default")
	}
}

func TestLoad_TimeoutEnvIsSeconds(t *testing.T) {
	t.Setenv("TIMEOUT", "180")
	t.Setenv("POLL_TIMEOUT", "5")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AwaitTimeout != 180*time.Second {
		t.Fatalf("AwaitTimeout = %s, want 180s (bare env value must be seconds, not nanoseconds)", cfg.AwaitTimeout)
	}
	if cfg.PollTimeout != 5*time.Second {
		t.Fatalf("PollTimeout = %s, want 5s", cfg.PollTimeout)
	}
}

func TestLoad_PollTimeoutZeroIsValid(t *testing.T) {
	t.Setenv("POLL_TIMEOUT", "0")
	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v, want poll_timeout=0 (non-blocking) to be accepted", err)
	}
	if cfg.PollTimeout != 0 {
		t.Fatalf("PollTimeout = %s, want 0", cfg.PollTimeout)
	}
}

func TestLoad_NegativePollTimeoutRejected(t *testing.T) {
	neg := -1 * time.Second
	if _, err := Load(Overrides{PollTimeout: &neg}); err == nil {
		t.Fatalf("expected error for negative poll_timeout")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HEALTH_DETAIL", "true")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9999 {
		t.Fatalf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.HealthDetail {
		t.Fatalf("HealthDetail = false, want true")
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	port := 1234
	cfg, err := Load(Overrides{Port: &port})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("Port = %d, want 1234 (flag should win over env)", cfg.Port)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := Load(Overrides{}); err == nil {
		t.Fatalf("expected error for invalid log_level")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	port := 70000
	if _, err := Load(Overrides{Port: &port}); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}
