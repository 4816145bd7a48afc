package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/punchamoorthee/checkoutops/internal/csrf"
	"github.com/punchamoorthee/checkoutops/internal/domain"
	"github.com/punchamoorthee/checkoutops/internal/gateway"
	"github.com/punchamoorthee/checkoutops/internal/inventory"
	"github.com/punchamoorthee/checkoutops/internal/obs"
	"github.com/punchamoorthee/checkoutops/internal/ratelimit"
	"github.com/punchamoorthee/checkoutops/internal/store"
	"github.com/punchamoorthee/checkoutops/internal/verify"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_verifications_total",
		Help: "Verification outcomes by canonical status and validity",
	}, []string{"status", "valid"})
)

type Handler struct {
	verifier   *verify.Service
	orders     store.OrderStore
	gateway    gateway.Client
	reconciler *inventory.Reconciler
	guard      *csrf.Guard

	// verifyLimiter is the stricter per-identifier cap on the
	// verification endpoint, applied on top of the global limiter.
	verifyLimiter ratelimit.Limiter
}

func NewHandler(v *verify.Service, orders store.OrderStore, gw gateway.Client, rec *inventory.Reconciler, guard *csrf.Guard, verifyLimiter ratelimit.Limiter) *Handler {
	return &Handler{
		verifier:      v,
		orders:        orders,
		gateway:       gw,
		reconciler:    rec,
		guard:         guard,
		verifyLimiter: verifyLimiter,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyTransactionHandler reconciles a checkout claim against the
// gateway's record and, when the payment is confirmed valid, marks the
// local order paid and decrements inventory.
func (h *Handler) VerifyTransactionHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/verify-transaction"))
	defer timer.ObserveDuration()

	if !h.verifyLimiter.Allow(r.Context(), ClientIP(r)) {
		h.respondVerifyError(w, http.StatusTooManyRequests, "rate_limited",
			"Too many verification requests. Please try again later.")
		return
	}

	var req domain.VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondVerifyError(w, http.StatusBadRequest, "invalid_request", "Invalid request data")
		return
	}

	result, err := h.verifier.Verify(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrInvalidRequest):
			h.respondVerifyError(w, http.StatusBadRequest, "invalid_request", "Invalid request data")
		case errors.Is(err, verify.ErrExpiredRequest):
			h.respondVerifyError(w, http.StatusBadRequest, "expired_request", "Request too old")
		case errors.Is(err, verify.ErrSessionNotFound):
			h.respondVerifyError(w, http.StatusNotFound, "session_not_found", "Session not found")
		default:
			// Internal detail stays out of the response body.
			obs.Logger.Error("verification_error",
				"request_id", RequestIDFromContext(r.Context()),
				"error", err.Error(),
			)
			h.respondVerifyError(w, http.StatusInternalServerError, "verification_error",
				"Internal server error during verification")
		}
		return
	}

	verificationsTotal.WithLabelValues(string(result.Status), strconv.FormatBool(result.IsValid)).Inc()

	if result.IsValid && result.Status == domain.StatusSucceeded {
		h.finalizeOrder(r, req.SessionID)
	}

	httpRequestsTotal.WithLabelValues("POST", "/verify-transaction", "200").Inc()
	respondWithJSON(w, http.StatusOK, result)
}

// finalizeOrder marks the local order paid and applies inventory
// decrements. Failures here are logged, never surfaced: the verification
// result already stands on its own.
func (h *Handler) finalizeOrder(r *http.Request, sessionID string) {
	ctx := r.Context()
	order, err := h.orders.GetOrderBySession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			obs.Logger.Warn("order_lookup_failed", "session_id", sessionID, "error", err.Error())
		}
		return
	}
	if err := h.orders.MarkOrderPaid(ctx, sessionID); err != nil {
		obs.Logger.Warn("order_update_failed", "session_id", sessionID, "error", err.Error())
	}
	if len(order.LineItems) > 0 {
		if ok := h.reconciler.ApplyDecrement(ctx, order.LineItems); !ok {
			obs.Logger.Warn("inventory_decrement_incomplete", "session_id", sessionID)
		}
	}
}

// GetCheckoutSessionHandler merges the gateway's session with the local
// order row into the order-details shape the storefront renders.
func (h *Handler) GetCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid session ID", "GET", "/checkout-session/{sessionId}")
		return
	}

	// Ownership check against the local bookkeeping row: a session tied
	// to a user may only be read back by that user.
	rec, err := h.orders.GetSessionRecord(r.Context(), sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		obs.Logger.Warn("session_record_lookup_failed", "session_id", sessionID, "error", err.Error())
	}
	if rec != nil && rec.UserID != "" && rec.UserID != r.Header.Get("X-User-Id") {
		respondWithError(w, http.StatusForbidden, "Unauthorized access to checkout session", "GET", "/checkout-session/{sessionId}")
		return
	}

	sess, err := h.gateway.RetrieveSession(r.Context(), sessionID,
		gateway.ExpandPaymentIntent, gateway.ExpandLineItems)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionNotFound) {
			respondWithError(w, http.StatusNotFound, "Checkout session not found", "GET", "/checkout-session/{sessionId}")
			return
		}
		obs.Logger.Error("session_fetch_failed", "session_id", sessionID, "error", err.Error())
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve session", "GET", "/checkout-session/{sessionId}")
		return
	}

	resp := domain.OrderRecord{
		ID:          sess.ID,
		SessionID:   sess.ID,
		OrderNumber: fallbackOrderNumber(sessionID),
		Amount:      sess.AmountTotal,
		Currency:    sess.Currency,
		Status:      string(verify.DeriveStatus(sess)),
		Email:       sess.CustomerEmail,
	}
	order, err := h.orders.GetOrderBySession(r.Context(), sessionID)
	if err == nil {
		resp.ID = order.ID
		resp.OrderNumber = order.OrderNumber
		resp.LineItems = order.LineItems
		resp.CreatedAt = order.CreatedAt
	} else if !errors.Is(err, store.ErrNotFound) {
		obs.Logger.Warn("order_lookup_failed", "session_id", sessionID, "error", err.Error())
	}

	httpRequestsTotal.WithLabelValues("GET", "/checkout-session/{sessionId}", "200").Inc()
	respondWithJSON(w, http.StatusOK, resp)
}

// CSRFTokenHandler issues the double-submit token, setting the cookie and
// returning the value for the caller to echo in subsequent requests.
func (h *Handler) CSRFTokenHandler(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(csrf.CookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		var err error
		token, err = h.guard.GenerateToken()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Token generation failed", "GET", "/csrf-token")
			return
		}
	}
	h.guard.SetCookie(w, token)
	httpRequestsTotal.WithLabelValues("GET", "/csrf-token", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetInventoryHandler lists current stock levels.
func (h *Handler) GetInventoryHandler(w http.ResponseWriter, r *http.Request) {
	levels, err := h.reconciler.Levels(r.Context())
	if err != nil {
		obs.Logger.Error("inventory_list_failed", "error", err.Error())
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch inventory", "GET", "/inventory")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/inventory", "200").Inc()
	respondWithJSON(w, http.StatusOK, levels)
}

type adjustRequest struct {
	Operations []domain.StockOperation `json:"operations"`
}

type adjustResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// AdjustInventoryHandler applies bulk operational stock corrections.
func (h *Handler) AdjustInventoryHandler(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/inventory/adjust")
		return
	}
	if len(req.Operations) == 0 {
		respondWithError(w, http.StatusBadRequest, "At least one operation required", "POST", "/inventory/adjust")
		return
	}

	ok, errs := h.reconciler.BulkAdjust(r.Context(), req.Operations)
	code := http.StatusOK
	if !ok {
		code = http.StatusMultiStatus
	}
	httpRequestsTotal.WithLabelValues("POST", "/inventory/adjust", strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, adjustResponse{Success: ok, Errors: errs})
}

func fallbackOrderNumber(sessionID string) string {
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	return "ORD-" + sessionID
}

// verifyErrorBody matches the error contract of the verification endpoint.
type verifyErrorBody struct {
	Error   string `json:"error"`
	IsValid bool   `json:"isValid"`
	Status  string `json:"status"`
}

func (h *Handler) respondVerifyError(w http.ResponseWriter, code int, status, msg string) {
	httpRequestsTotal.WithLabelValues("POST", "/verify-transaction", strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(verifyErrorBody{Error: msg, IsValid: false, Status: status})
}

func respondWithError(w http.ResponseWriter, code int, message, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
