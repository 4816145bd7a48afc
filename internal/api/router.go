package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/punchamoorthee/checkoutops/internal/csrf"
	"github.com/punchamoorthee/checkoutops/internal/ratelimit"
)

// NewRouter registers routes and the middleware chain: request-id ->
// logging -> security headers -> global rate limit -> CSRF guard. The
// limiter and the guard act only on state-changing methods; webhook-style
// paths that authenticate by provider signature are exempted inside the
// guard. Middleware runs on matched routes only, so a wrong method still
// yields the router's plain 405.
func NewRouter(h *Handler, guard *csrf.Guard, globalLimiter ratelimit.Limiter) http.Handler {
	r := mux.NewRouter()
	r.Use(WithRequestID, WithLogging, WithSecurityHeaders,
		globalLimitMiddleware(globalLimiter), guard.Middleware)

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/verify-transaction", h.VerifyTransactionHandler).Methods("POST")
	apiV1.HandleFunc("/checkout-session/{sessionId}", h.GetCheckoutSessionHandler).Methods("GET")
	apiV1.HandleFunc("/csrf-token", h.CSRFTokenHandler).Methods("GET")
	apiV1.HandleFunc("/inventory", h.GetInventoryHandler).Methods("GET")
	apiV1.HandleFunc("/inventory/adjust", h.AdjustInventoryHandler).Methods("POST")

	return r
}

// globalLimitMiddleware applies the broad per-address cap ahead of all
// state-changing routes.
func globalLimitMiddleware(limiter ratelimit.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(r.Context(), ClientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
