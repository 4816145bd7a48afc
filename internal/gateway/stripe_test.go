package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sessionBody = `{
	"id": "cs_test_1",
	"amount_total": 5000,
	"currency": "usd",
	"status": "complete",
	"payment_status": "paid",
	"created": 1748779200,
	"expires_at": 1748865600,
	"customer_details": {"email": "a@b.com"},
	"payment_intent": {"id": "pi_1", "status": "succeeded"},
	"customer": "cus_9",
	"metadata": {"order_items": "[]"}
}`

func TestRetrieveSession(t *testing.T) {
	var gotPath, gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(sessionBody))
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test_123", 5*time.Second)
	sess, err := c.RetrieveSession(context.Background(), "cs_test_1", ExpandPaymentIntent, ExpandCustomer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/checkout/sessions/cs_test_1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("unexpected auth %q", gotAuth)
	}
	if gotQuery == "" {
		t.Fatal("expected expand params in query")
	}

	if sess.ID != "cs_test_1" || sess.AmountTotal != 5000 || sess.PaymentStatus != "paid" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.CustomerEmail != "a@b.com" {
		t.Fatalf("customer email not extracted: %+v", sess)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID != "pi_1" || sess.PaymentIntent.Status != "succeeded" {
		t.Fatalf("payment intent not decoded: %+v", sess.PaymentIntent)
	}
	if sess.CustomerID != "cus_9" {
		t.Fatalf("bare customer id not decoded: %q", sess.CustomerID)
	}
}

func TestRetrieveSessionBareIntentID(t *testing.T) {
	body := `{"id":"cs_2","amount_total":100,"payment_status":"unpaid","status":"open","payment_intent":"pi_raw"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk", 5*time.Second)
	sess, err := c.RetrieveSession(context.Background(), "cs_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID != "pi_raw" || sess.PaymentIntent.Status != "" {
		t.Fatalf("bare intent id not decoded: %+v", sess.PaymentIntent)
	}
}

func TestRetrieveSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk", 5*time.Second)
	_, err := c.RetrieveSession(context.Background(), "cs_missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRetrieveSessionServerFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk", 5*time.Second)
	_, err := c.RetrieveSession(context.Background(), "cs_1")
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("non-404 faults must not map to not-found, got %v", err)
	}
}

func TestRetrieveSessionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk", 20*time.Millisecond)
	_, err := c.RetrieveSession(context.Background(), "cs_1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
