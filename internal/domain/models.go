package domain

import "time"

// VerificationRequest is the DTO for incoming verification claims.
// Amounts are in minor units (cents); Timestamp is epoch milliseconds
// set by the client at submission time.
type VerificationRequest struct {
	SessionID      string `json:"sessionId"`
	ExpectedAmount int64  `json:"expectedAmount"`
	CustomerEmail  string `json:"customerEmail"`
	Timestamp      int64  `json:"timestamp"`
}

// Gateway session lifecycle values.
const (
	SessionOpen     = "open"
	SessionComplete = "complete"
	SessionExpired  = "expired"
)

// Gateway payment status values.
const (
	PaymentPaid              = "paid"
	PaymentUnpaid            = "unpaid"
	PaymentNoPaymentRequired = "no_payment_required"
)

// PaymentIntent is the nested, more granular payment signal attached to a
// gateway session when the expansion was requested.
type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// GatewaySession is the payment provider's authoritative record of a
// checkout session. It is read-only from our side and fetched fresh on
// every verification call.
type GatewaySession struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	CustomerEmail string            `json:"customer_email"`
	CustomerID    string            `json:"customer_id,omitempty"`
	CreatedAt     int64             `json:"created"`
	ExpiresAt     int64             `json:"expires_at,omitempty"`
	PaymentIntent *PaymentIntent    `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CanonicalStatus is the single precedence-resolved transaction state.
type CanonicalStatus string

const (
	StatusPending        CanonicalStatus = "pending"
	StatusSucceeded      CanonicalStatus = "succeeded"
	StatusFailed         CanonicalStatus = "failed"
	StatusCanceled       CanonicalStatus = "canceled"
	StatusRequiresAction CanonicalStatus = "requires_action"
)

// CanonicalTransaction is derived on every verification call; it is never
// persisted by this subsystem.
type CanonicalTransaction struct {
	ID              string            `json:"id"`
	SessionID       string            `json:"sessionId"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          CanonicalStatus   `json:"status"`
	PaymentIntentID string            `json:"paymentIntentId,omitempty"`
	CustomerID      string            `json:"customerId,omitempty"`
	CustomerEmail   string            `json:"customerEmail"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// VerificationResult is the canonical response structure for the
// verification endpoint.
type VerificationResult struct {
	IsValid       bool                  `json:"isValid"`
	Status        CanonicalStatus       `json:"status"`
	Transaction   *CanonicalTransaction `json:"transaction,omitempty"`
	Discrepancies []string              `json:"discrepancies,omitempty"`
	VerifiedAt    time.Time             `json:"verifiedAt"`
}

// LineItem is one product/quantity/price entry within an order or cart.
// UnitPrice is in minor units.
type LineItem struct {
	ProductName string `json:"productName"`
	ProductType string `json:"productType,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

// OrderRecord is the persisted row keyed by session id. Created when
// checkout is initiated, updated when payment is confirmed, never deleted
// by this subsystem.
type OrderRecord struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"sessionId"`
	OrderNumber string     `json:"orderNumber"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	Email       string     `json:"customerEmail"`
	LineItems   []LineItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SessionRecord is the local bookkeeping row for a checkout session,
// written when the session is created with the gateway.
type SessionRecord struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// InventoryLevel reports the current stock position of one package.
type InventoryLevel struct {
	PackageID    string `json:"packageId"`
	ProductName  string `json:"productName"`
	ProductType  string `json:"productType"`
	CurrentStock int    `json:"currentStock"`
	IsLowStock   bool   `json:"isLowStock"`
}

// Stock adjustment operations accepted by the bulk entry point.
const (
	StockAdd      = "add"
	StockSubtract = "subtract"
	StockSet      = "set"
)

// StockOperation is one operational correction against a package's stock.
type StockOperation struct {
	PackageID string `json:"packageId"`
	Operation string `json:"operation"`
	Quantity  int    `json:"quantity"`
}
