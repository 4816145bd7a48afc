package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/punchamoorthee/checkoutops/internal/api"
	"github.com/punchamoorthee/checkoutops/internal/config"
	"github.com/punchamoorthee/checkoutops/internal/csrf"
	"github.com/punchamoorthee/checkoutops/internal/gateway"
	"github.com/punchamoorthee/checkoutops/internal/inventory"
	"github.com/punchamoorthee/checkoutops/internal/obs"
	"github.com/punchamoorthee/checkoutops/internal/ratelimit"
	"github.com/punchamoorthee/checkoutops/internal/store"
	"github.com/punchamoorthee/checkoutops/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	obs.InitLogger(slog.LevelInfo)

	st, err := store.New(cfg.DBSource, inventory.DefaultLowStockThreshold)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer st.Close()

	gw := gateway.NewStripeClient(cfg.GatewayBaseURL, cfg.GatewaySecret, cfg.GatewayTimeout)
	verifier := verify.New(gw, cfg.FreshnessWindow)
	reconciler := inventory.New(st, inventory.DefaultLowStockThreshold)
	guard := csrf.New(cfg.CSRFTokenTTL, cfg.Env == "production", "/api/v1/webhooks/")

	verifyLimiter, globalLimiter := buildLimiters(cfg)

	handler := api.NewHandler(verifier, st, gw, reconciler, guard, verifyLimiter)
	router := api.NewRouter(handler, guard, globalLimiter)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}

// buildLimiters picks redis-backed limiters when REDIS_URL is set, so the
// caps hold across replicas; otherwise in-process fixed windows.
func buildLimiters(cfg *config.Config) (ratelimit.Limiter, ratelimit.Limiter) {
	if cfg.RedisURL == "" {
		return ratelimit.NewWindow(cfg.VerifyRateWindow, cfg.VerifyRateCap),
			ratelimit.NewWindow(cfg.GlobalRateWindow, cfg.GlobalRateCap)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	return ratelimit.NewRedis(client, "rl:verify", cfg.VerifyRateWindow, cfg.VerifyRateCap),
		ratelimit.NewRedis(client, "rl:global", cfg.GlobalRateWindow, cfg.GlobalRateCap)
}
