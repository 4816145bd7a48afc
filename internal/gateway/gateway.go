// Package gateway is the call boundary to the external payment provider.
package gateway

import (
	"context"
	"errors"

	"github.com/punchamoorthee/checkoutops/internal/domain"
)

// ErrSessionNotFound distinguishes a missing session from all other
// provider faults; the verifier maps it to a 404 and everything else to a
// generic verification error.
var ErrSessionNotFound = errors.New("checkout session not found")

// Expansion names accepted by RetrieveSession.
const (
	ExpandPaymentIntent = "payment_intent"
	ExpandCustomer      = "customer"
	ExpandLineItems     = "line_items"
)

// Client retrieves checkout sessions from the payment provider. The
// session is always fetched fresh; implementations must not cache.
type Client interface {
	RetrieveSession(ctx context.Context, id string, expand ...string) (*domain.GatewaySession, error)
}
