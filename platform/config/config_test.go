package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GetDefaultHoldPeriod() != 30*24*time.Hour {
		t.Fatalf("expected 30 day hold period, got %s", cfg.GetDefaultHoldPeriod())
	}
	if cfg.GetDefaultMinimumPayout().String() != "50" {
		t.Fatalf("expected minimum payout 50, got %s", cfg.GetDefaultMinimumPayout())
	}
	if cfg.GetClickCooldown() != time.Hour {
		t.Fatalf("expected 1h click cooldown, got %s", cfg.GetClickCooldown())
	}
	if cfg.GetAsynqQueueName() != "default" {
		t.Fatalf("expected default queue, got %q", cfg.GetAsynqQueueName())
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard origins with credentials")
	}
}

func TestLoadCoercesHoldPeriodDays(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("DEFAULT_HOLD_PERIOD_DAYS", "14")
	t.Setenv("DEFAULT_MIN_PAYOUT", "25.50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetDefaultHoldPeriod() != 14*24*time.Hour {
		t.Fatalf("expected 14 day hold period, got %s", cfg.GetDefaultHoldPeriod())
	}
	if cfg.GetDefaultMinimumPayout().String() != "25.5" {
		t.Fatalf("expected minimum payout 25.5, got %s", cfg.GetDefaultMinimumPayout())
	}
}
