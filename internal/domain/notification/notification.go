package notification

import "context"

// EventType names a billing event a user may be notified about.
type EventType string

const (
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
	EventSubscriptionRenewed   EventType = "subscription_renewed"
	EventSubscriptionPastDue   EventType = "subscription_past_due"
	EventSubscriptionExpired   EventType = "subscription_expired"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventQuotaExhausted        EventType = "quota_exhausted"
)

// Event is a notification payload. Fields not relevant to the event type
// are left zero.
type Event struct {
	Type           EventType
	UserID         uint
	Email          string
	SubscriptionID uint
	OrderCode      string
	Tier           string
	AmountCents    int64
	Currency       string
	Reason         string
}

// Dispatcher delivers billing events to users. Dispatch failures must never
// fail the business operation that raised the event; callers log and move
// on.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// NoopDispatcher discards all events. Used when email is not configured.
type NoopDispatcher struct{}

func NewNoopDispatcher() *NoopDispatcher {
	return &NoopDispatcher{}
}

func (d *NoopDispatcher) Dispatch(ctx context.Context, event Event) error {
	return nil
}
