// Package verify reconciles a client's checkout claim against the payment
// gateway's authoritative record.
package verify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/punchamoorthee/checkoutops/internal/domain"
	"github.com/punchamoorthee/checkoutops/internal/gateway"
)

var (
	ErrInvalidRequest  = errors.New("invalid verification request")
	ErrExpiredRequest  = errors.New("verification request too old")
	ErrSessionNotFound = errors.New("session not found")
)

// amountTolerance absorbs rounding from percentage-based computations
// upstream. Differences of one minor unit are not discrepancies.
const amountTolerance = 1

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service derives one canonical transaction status from the gateway's
// record and reports every mismatch against the caller's claim. It makes
// no writes; calling it twice against unchanged gateway state yields
// identical results.
type Service struct {
	gateway   gateway.Client
	freshness time.Duration
	now       func() time.Time
}

// New builds a verifier. freshness bounds how long a client-signed claim
// remains acceptable.
func New(gw gateway.Client, freshness time.Duration) *Service {
	return &Service{gateway: gw, freshness: freshness, now: time.Now}
}

// Verify validates the claim's shape and freshness, fetches the gateway
// session and cross-checks the claim against it. Cross-check failures do
// not short-circuit; the result carries the complete discrepancy list.
func (s *Service) Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Freshness: a claim older than the window is a replay candidate.
	// An age of exactly the window is still accepted.
	age := s.now().UnixMilli() - req.Timestamp
	if age > s.freshness.Milliseconds() {
		return nil, ErrExpiredRequest
	}

	sess, err := s.gateway.RetrieveSession(ctx, req.SessionID,
		gateway.ExpandPaymentIntent, gateway.ExpandCustomer)
	if err != nil {
		if errors.Is(err, gateway.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("gateway retrieval: %w", err)
	}

	var discrepancies []string
	if sess.CustomerEmail != req.CustomerEmail {
		discrepancies = append(discrepancies, "Customer email does not match")
	}
	if diff := sess.AmountTotal - req.ExpectedAmount; diff > amountTolerance || diff < -amountTolerance {
		discrepancies = append(discrepancies,
			fmt.Sprintf("Amount mismatch: expected %d, got %d", req.ExpectedAmount, sess.AmountTotal))
	}
	// Expiry is informational: an expired-but-paid session can still be
	// legitimate, so it is recorded without flipping validity.
	expired := sess.ExpiresAt > 0 && sess.ExpiresAt*1000 < s.now().UnixMilli()
	if expired {
		discrepancies = append(discrepancies, "Session has expired")
	}

	status := DeriveStatus(sess)
	blocking := len(discrepancies)
	if expired {
		blocking--
	}

	return &domain.VerificationResult{
		IsValid:       blocking == 0,
		Status:        status,
		Transaction:   s.buildTransaction(sess, req, status),
		Discrepancies: discrepancies,
		VerifiedAt:    s.now().UTC(),
	}, nil
}

func validate(req domain.VerificationRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}
	if req.ExpectedAmount < 0 {
		return fmt.Errorf("%w: expectedAmount must be positive", ErrInvalidRequest)
	}
	if !emailPattern.MatchString(req.CustomerEmail) {
		return fmt.Errorf("%w: valid email is required", ErrInvalidRequest)
	}
	if req.Timestamp <= 0 {
		return fmt.Errorf("%w: valid timestamp is required", ErrInvalidRequest)
	}
	return nil
}

// DeriveStatus resolves the canonical status from the session's payment
// status, then lets the nested payment-intent sub-status override it. The
// intent signal is more granular and wins whenever present.
func DeriveStatus(sess *domain.GatewaySession) domain.CanonicalStatus {
	status := domain.StatusPending
	switch sess.PaymentStatus {
	case domain.PaymentPaid, domain.PaymentNoPaymentRequired:
		status = domain.StatusSucceeded
	case domain.PaymentUnpaid:
		if sess.Status == domain.SessionExpired {
			status = domain.StatusCanceled
		} else {
			status = domain.StatusPending
		}
	}

	if pi := sess.PaymentIntent; pi != nil {
		switch pi.Status {
		case "succeeded":
			status = domain.StatusSucceeded
		case "processing":
			status = domain.StatusPending
		case "requires_action", "requires_confirmation":
			status = domain.StatusRequiresAction
		case "canceled":
			status = domain.StatusCanceled
		case "payment_failed":
			status = domain.StatusFailed
		}
	}
	return status
}

func (s *Service) buildTransaction(sess *domain.GatewaySession, req domain.VerificationRequest, status domain.CanonicalStatus) *domain.CanonicalTransaction {
	tx := &domain.CanonicalTransaction{
		ID:            sess.ID,
		SessionID:     sess.ID,
		Amount:        sess.AmountTotal,
		Currency:      sess.Currency,
		Status:        status,
		CustomerID:    sess.CustomerID,
		CustomerEmail: sess.CustomerEmail,
		CreatedAt:     time.Unix(sess.CreatedAt, 0).UTC(),
		UpdatedAt:     s.now().UTC(),
		Metadata: map[string]string{
			"sessionStatus": sess.Status,
			"paymentStatus": sess.PaymentStatus,
		},
	}
	if tx.Currency == "" {
		tx.Currency = "usd"
	}
	if tx.CustomerEmail == "" {
		tx.CustomerEmail = req.CustomerEmail
	}
	if pi := sess.PaymentIntent; pi != nil {
		tx.ID = pi.ID
		tx.PaymentIntentID = pi.ID
		tx.Metadata["paymentIntentStatus"] = pi.Status
	}
	return tx
}
