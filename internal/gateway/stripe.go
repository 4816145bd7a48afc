package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/punchamoorthee/checkoutops/internal/domain"
)

// StripeClient talks to a Stripe-compatible checkout sessions API over
// HTTP. Requests carry a bounded timeout via the underlying client so a
// slow provider surfaces as an error instead of a hung handler.
type StripeClient struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewStripeClient builds a client against baseURL (e.g. the provider's
// public API host, or a local stub in tests).
func NewStripeClient(baseURL, secretKey string, timeout time.Duration) *StripeClient {
	return &StripeClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

// sessionPayload mirrors the provider's wire shape for a checkout session.
type sessionPayload struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Created       int64             `json:"created"`
	ExpiresAt     int64             `json:"expires_at"`
	Metadata      map[string]string `json:"metadata"`

	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`

	// payment_intent and customer arrive as bare ids unless expanded.
	PaymentIntent json.RawMessage `json:"payment_intent"`
	Customer      json.RawMessage `json:"customer"`
}

func (c *StripeClient) RetrieveSession(ctx context.Context, id string, expand ...string) (*domain.GatewaySession, error) {
	q := url.Values{}
	for _, e := range expand {
		q.Add("expand[]", e)
	}
	u := fmt.Sprintf("%s/v1/checkout/sessions/%s", c.baseURL, url.PathEscape(id))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session retrieval failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSessionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading session response: %w", err)
	}

	var p sessionPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}

	sess := &domain.GatewaySession{
		ID:            p.ID,
		AmountTotal:   p.AmountTotal,
		Currency:      p.Currency,
		Status:        p.Status,
		PaymentStatus: p.PaymentStatus,
		CreatedAt:     p.Created,
		ExpiresAt:     p.ExpiresAt,
		Metadata:      p.Metadata,
	}
	if p.CustomerDetails != nil {
		sess.CustomerEmail = p.CustomerDetails.Email
	}
	sess.PaymentIntent = decodePaymentIntent(p.PaymentIntent)
	sess.CustomerID = decodeID(p.Customer)
	return sess, nil
}

// decodePaymentIntent handles both the expanded object form and the bare
// string id form of the payment_intent field.
func decodePaymentIntent(raw json.RawMessage) *domain.PaymentIntent {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var obj domain.PaymentIntent
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != "" {
		return &obj
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return &domain.PaymentIntent{ID: id}
	}
	return nil
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
