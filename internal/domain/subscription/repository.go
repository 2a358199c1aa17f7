package subscription

import (
	"context"
	"time"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
)

// Repository persists subscription aggregates. Update applies an optimistic
// lock on the aggregate version and returns ErrConcurrentModification from
// the billing domain when the row moved underneath the caller.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalID string) (*Subscription, error)
	// GetActiveByUserID returns the user's current non-terminal
	// subscription, or ErrSubscriptionNotFound.
	GetActiveByUserID(ctx context.Context, userID uint) (*Subscription, error)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Subscription, int64, error)
	// FindRenewalDue returns non-terminal subscriptions whose next billing
	// date is at or before asOf, ordered by next billing date.
	FindRenewalDue(ctx context.Context, asOf time.Time, limit int) ([]*Subscription, error)
	CountByStatus(ctx context.Context, status vo.SubscriptionStatus) (int64, error)
}

// HistoryRepository stores the append-only lifecycle audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, h *History) error
	ListBySubscriptionID(ctx context.Context, subscriptionID uint, page, pageSize int) ([]*History, int64, error)
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*History, int64, error)
}
