package gateway

import (
	"context"
	"time"
)

// Client defines the typed operations the billing service needs from the
// payment gateway. CancelPayment belongs to the reconciliation/refund path
// only; the confirmation saga never calls it.
type Client interface {
	// IssueBillingKey exchanges a short-lived authorization code for a billing
	// key that authorizes recurring charges against the stored payment method.
	IssueBillingKey(ctx context.Context, authKey, customerKey string) (*BillingAuthorization, error)

	// ChargeBilling charges a billing key. The order id is the gateway-side
	// idempotency key and must be unique per logical charge attempt.
	ChargeBilling(ctx context.Context, req *ChargeRequest) (*PaymentReceipt, error)

	// CancelPayment cancels (refunds) a completed payment, fully when amount
	// is nil or partially otherwise.
	CancelPayment(ctx context.Context, paymentKey, reason string, amount *int64) (*CancellationReceipt, error)
}

// CardInfo is the display metadata of the payment method behind a billing key.
type CardInfo struct {
	Company  string `json:"company"`
	Number   string `json:"number"`
	CardType string `json:"card_type"`
}

// LastFour returns the last four digits of the masked card number.
func (c *CardInfo) LastFour() string {
	if c == nil || len(c.Number) < 4 {
		return ""
	}
	return c.Number[len(c.Number)-4:]
}

// BillingAuthorization is the result of issuing a billing key.
type BillingAuthorization struct {
	BillingKey  string
	CustomerKey string
	Card        *CardInfo
}

// ChargeRequest describes one charge against a billing key.
type ChargeRequest struct {
	BillingKey  string
	CustomerKey string
	Amount      int64
	OrderID     string
	OrderName   string
}

// PaymentReceipt is the result of a successful charge.
type PaymentReceipt struct {
	PaymentKey string
	OrderID    string
	Status     string
	Amount     int64
	ApprovedAt *time.Time
	Card       *CardInfo
}

// CancellationReceipt is the result of cancelling a payment.
type CancellationReceipt struct {
	PaymentKey      string
	Status          string
	CancelledAmount int64
}
