package billing

import (
	"context"
	"time"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
)

// TransactionFilter narrows list queries over the ledger.
type TransactionFilter struct {
	UserID         *uint
	SubscriptionID *uint
	Status         *vo.TransactionStatus
	Type           *vo.TransactionType
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
}

// RevenueByStatus is one row of the revenue-by-status aggregate.
type RevenueByStatus struct {
	Status      string
	Count       int64
	AmountCents int64
}

// RevenueByMonth is one row of the monthly revenue aggregate over paid
// transactions.
type RevenueByMonth struct {
	Month       string // YYYY-MM
	Count       int64
	AmountCents int64
}

// TransactionRepository is the ledger's persistence contract. Create must
// surface ErrDuplicateOrderCode off the unique order_code index, and
// UpdateStatusChecked must be a compare-and-set on (order_code, expected
// current status) so concurrent webhook deliveries cannot interleave.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error

	// UpdateStatusChecked persists a status transition already applied to
	// the aggregate, guarded by the status the aggregate was loaded with.
	// Returns ErrConcurrentModification when the guard misses.
	UpdateStatusChecked(ctx context.Context, tx *Transaction, expected vo.TransactionStatus) error

	GetByID(ctx context.Context, id uint) (*Transaction, error)
	GetByOrderCode(ctx context.Context, orderCode string) (*Transaction, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*Transaction, error)
	GetPendingBySubscriptionID(ctx context.Context, subscriptionID uint) (*Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)

	// ExpirePendingBefore batch-cancels pending transactions created before
	// the cutoff and returns the number of rows affected.
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)

	RevenueByStatus(ctx context.Context) ([]RevenueByStatus, error)
	RevenueByMonth(ctx context.Context, months int) ([]RevenueByMonth, error)
}
