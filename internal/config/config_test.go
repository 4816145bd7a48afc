package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgresql://localhost/checkout")
	t.Setenv("GATEWAY_SECRET_KEY", "sk_test_abc")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.VerifyRateWindow != time.Hour || cfg.VerifyRateCap != 10 {
		t.Fatalf("unexpected verify limiter defaults: %+v", cfg)
	}
	if cfg.GlobalRateWindow != 15*time.Minute || cfg.GlobalRateCap != 100 {
		t.Fatalf("unexpected global limiter defaults: %+v", cfg)
	}
	if cfg.FreshnessWindow != 5*time.Minute {
		t.Fatalf("unexpected freshness default: %v", cfg.FreshnessWindow)
	}
	if cfg.CSRFTokenTTL != 24*time.Hour {
		t.Fatalf("unexpected csrf ttl default: %v", cfg.CSRFTokenTTL)
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Fatalf("unexpected gateway timeout default: %v", cfg.GatewayTimeout)
	}
}

func TestLoadRequiresDBSource(t *testing.T) {
	t.Setenv("DB_SOURCE", "")
	t.Setenv("GATEWAY_SECRET_KEY", "sk")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DB_SOURCE")
	}
}

func TestLoadRequiresGatewaySecret(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgresql://localhost/checkout")
	t.Setenv("GATEWAY_SECRET_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without GATEWAY_SECRET_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("VERIFY_RATE_CAP", "25")
	t.Setenv("FRESHNESS_WINDOW_SEC", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9999" || cfg.VerifyRateCap != 25 || cfg.FreshnessWindow != time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadIgnoresGarbageNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("VERIFY_RATE_CAP", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VerifyRateCap != 10 {
		t.Fatalf("expected default on parse failure, got %d", cfg.VerifyRateCap)
	}
}
