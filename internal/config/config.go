package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for the API server.
type Config struct {
	DBSource string
	Port     string
	Env      string

	// Payment gateway
	GatewayBaseURL string
	GatewaySecret  string
	GatewayTimeout time.Duration

	// Optional redis backing for the rate limiters. Empty means the
	// in-process fixed-window implementation is used.
	RedisURL string

	// Verification endpoint limiter
	VerifyRateWindow time.Duration
	VerifyRateCap    int

	// General limiter ahead of all state-changing routes
	GlobalRateWindow time.Duration
	GlobalRateCap    int

	// How long a client-signed verification claim stays acceptable.
	FreshnessWindow time.Duration

	// CSRF cookie lifetime
	CSRFTokenTTL time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// Load collects configuration from the environment.
func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	gatewaySecret := os.Getenv("GATEWAY_SECRET_KEY")
	if gatewaySecret == "" {
		return nil, fmt.Errorf("GATEWAY_SECRET_KEY environment variable is required")
	}

	return &Config{
		DBSource:         dbSource,
		Port:             getenv("SERVER_PORT", "8080"),
		Env:              getenv("ENVIRONMENT", "development"),
		GatewayBaseURL:   getenv("GATEWAY_BASE_URL", "https://api.stripe.com"),
		GatewaySecret:    gatewaySecret,
		GatewayTimeout:   durenvs("GATEWAY_TIMEOUT_SEC", 10),
		RedisURL:         os.Getenv("REDIS_URL"),
		VerifyRateWindow: durenvs("VERIFY_RATE_WINDOW_SEC", 3600),
		VerifyRateCap:    atoienv("VERIFY_RATE_CAP", 10),
		GlobalRateWindow: durenvs("GLOBAL_RATE_WINDOW_SEC", 900),
		GlobalRateCap:    atoienv("GLOBAL_RATE_CAP", 100),
		FreshnessWindow:  durenvs("FRESHNESS_WINDOW_SEC", 300),
		CSRFTokenTTL:     durenvs("CSRF_TOKEN_TTL_SEC", 86400),
	}, nil
}
