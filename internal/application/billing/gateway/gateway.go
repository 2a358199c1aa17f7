package gateway

import (
	"context"
	"time"
)

// CheckoutRequest describes the payment session to open with the provider.
type CheckoutRequest struct {
	OrderCode   string
	AmountCents int64
	Currency    string
	Description string
	BuyerEmail  string
	ReturnURL   string
	WebhookURL  string
	ExpiresIn   time.Duration
}

// CheckoutSession is the provider's handle for a created payment session.
type CheckoutSession struct {
	ProviderRef string
	CheckoutURL string
	ExpiresAt   time.Time
}

// PaymentStatus is the normalized provider-side payment state.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentInfo is the normalized result of a provider-side status lookup.
type PaymentInfo struct {
	OrderCode     string
	ProviderRef   string
	Status        PaymentStatus
	AmountCents   int64
	Currency      string
	PaymentMethod string
	BuyerEmail    string
	PaidAt        *time.Time
}

// WebhookData is a provider webhook normalized into engine terms. Raw
// provider fields stay in Raw for the ledger's metadata column.
type WebhookData struct {
	OrderCode     string
	ProviderRef   string
	Status        PaymentStatus
	AmountCents   int64
	Currency      string
	PaymentMethod string
	BuyerEmail    string
	OccurredAt    time.Time
	Raw           map[string]interface{}
}

// PaymentGateway is the port to the external payment provider. The webhook
// verifier must reject any payload whose signature does not match before
// the payload is parsed or trusted.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetPaymentInfo(ctx context.Context, orderCode string) (*PaymentInfo, error)
	CancelCheckout(ctx context.Context, orderCode string) error
	// VerifyWebhook validates the signature over the raw payload and
	// returns the normalized event. A bad signature is a signature error,
	// never a parse of the payload.
	VerifyWebhook(rawPayload []byte, signature string) (*WebhookData, error)
	Name() string
}
