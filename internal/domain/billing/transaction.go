package billing

import (
	"fmt"
	"time"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// Transaction is the ledger aggregate. Each row records one monetary intent
// and its outcome, keyed by a globally unique, immutable order code. Status
// moves from pending to exactly one terminal status; replays of the same
// terminal status are no-ops, replays of a different terminal status are
// conflicting transitions.
type Transaction struct {
	id             uint
	orderCode      string
	userID         uint
	subscriptionID *uint
	amount         vo.Money
	status         vo.TransactionStatus
	txType         vo.TransactionType
	provider       string
	paymentMethod  *string
	buyerEmail     *string
	description    string

	paidAt        *time.Time
	cancelledAt   *time.Time
	failureReason *string

	metadata map[string]interface{}

	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewTransaction creates a pending ledger entry for a freshly minted order
// code. subscriptionID is nil for first-signup checkouts; the subscription
// is created once the payment is confirmed.
func NewTransaction(
	orderCode string,
	userID uint,
	subscriptionID *uint,
	amount vo.Money,
	txType vo.TransactionType,
	provider string,
	description string,
) (*Transaction, error) {
	if orderCode == "" {
		return nil, fmt.Errorf("order code is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if !txType.IsValid() {
		return nil, fmt.Errorf("invalid transaction type: %s", txType)
	}

	now := biztime.NowUTC()
	return &Transaction{
		orderCode:      orderCode,
		userID:         userID,
		subscriptionID: subscriptionID,
		amount:         amount,
		status:         vo.TransactionStatusPending,
		txType:         txType,
		provider:       provider,
		description:    description,
		metadata:       make(map[string]interface{}),
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// MarkPaid transitions the transaction to paid. Replaying the same outcome
// is a no-op; any other terminal status already applied is a conflict.
func (t *Transaction) MarkPaid(paymentMethod string) error {
	if t.status == vo.TransactionStatusPaid {
		return nil
	}
	if t.status.IsTerminal() {
		return ErrTerminalConflict(t.orderCode, t.status.String(), vo.TransactionStatusPaid.String())
	}

	now := biztime.NowUTC()
	t.status = vo.TransactionStatusPaid
	if paymentMethod != "" {
		t.paymentMethod = &paymentMethod
	}
	t.paidAt = &now
	t.updatedAt = now
	t.version++

	return nil
}

// MarkCancelled transitions the transaction to cancelled with the same
// replay semantics as MarkPaid.
func (t *Transaction) MarkCancelled(reason string) error {
	if t.status == vo.TransactionStatusCancelled {
		return nil
	}
	if t.status.IsTerminal() {
		return ErrTerminalConflict(t.orderCode, t.status.String(), vo.TransactionStatusCancelled.String())
	}

	now := biztime.NowUTC()
	t.status = vo.TransactionStatusCancelled
	t.cancelledAt = &now
	if reason != "" {
		t.failureReason = &reason
	}
	t.updatedAt = now
	t.version++

	return nil
}

// MarkFailed transitions the transaction to failed with the same replay
// semantics as MarkPaid.
func (t *Transaction) MarkFailed(reason string) error {
	if t.status == vo.TransactionStatusFailed {
		return nil
	}
	if t.status.IsTerminal() {
		return ErrTerminalConflict(t.orderCode, t.status.String(), vo.TransactionStatusFailed.String())
	}

	t.status = vo.TransactionStatusFailed
	if reason != "" {
		t.failureReason = &reason
	}
	t.updatedAt = biztime.NowUTC()
	t.version++

	return nil
}

// MarkExpired transitions a stale pending transaction to expired. Expiring
// an already-terminal transaction is a no-op: the scheduled cleanup may race
// a webhook and must not raise a conflict for losing that race.
func (t *Transaction) MarkExpired() error {
	if t.status.IsTerminal() {
		return nil
	}

	t.status = vo.TransactionStatusExpired
	t.updatedAt = biztime.NowUTC()
	t.version++

	return nil
}

func (t *Transaction) SetBuyerEmail(email string) {
	if email == "" {
		return
	}
	t.buyerEmail = &email
	t.updatedAt = biztime.NowUTC()
}

func (t *Transaction) AttachSubscription(subscriptionID uint) {
	t.subscriptionID = &subscriptionID
	t.updatedAt = biztime.NowUTC()
}

// SetMetadata sets a metadata key-value pair
func (t *Transaction) SetMetadata(key string, value interface{}) {
	if t.metadata == nil {
		t.metadata = make(map[string]interface{})
	}
	t.metadata[key] = value
	t.updatedAt = biztime.NowUTC()
}

// MetadataString returns a string metadata value, empty when absent.
func (t *Transaction) MetadataString(key string) string {
	if t.metadata == nil {
		return ""
	}
	if v, ok := t.metadata[key].(string); ok {
		return v
	}
	return ""
}

// IsStalePending reports whether a pending transaction was created before
// the cutoff and is eligible for scheduled expiry.
func (t *Transaction) IsStalePending(cutoff time.Time) bool {
	return t.status.IsPending() && t.createdAt.Before(cutoff)
}

func (t *Transaction) ID() uint                       { return t.id }
func (t *Transaction) OrderCode() string              { return t.orderCode }
func (t *Transaction) UserID() uint                   { return t.userID }
func (t *Transaction) SubscriptionID() *uint          { return t.subscriptionID }
func (t *Transaction) Amount() vo.Money               { return t.amount }
func (t *Transaction) Status() vo.TransactionStatus   { return t.status }
func (t *Transaction) Type() vo.TransactionType       { return t.txType }
func (t *Transaction) Provider() string               { return t.provider }
func (t *Transaction) PaymentMethod() *string         { return t.paymentMethod }
func (t *Transaction) BuyerEmail() *string            { return t.buyerEmail }
func (t *Transaction) Description() string            { return t.description }
func (t *Transaction) PaidAt() *time.Time             { return t.paidAt }
func (t *Transaction) CancelledAt() *time.Time        { return t.cancelledAt }
func (t *Transaction) FailureReason() *string         { return t.failureReason }
func (t *Transaction) Metadata() map[string]interface{} { return t.metadata }
func (t *Transaction) Version() int                   { return t.version }
func (t *Transaction) CreatedAt() time.Time           { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time           { return t.updatedAt }

// SetID sets the transaction ID after persistence (used by repository after Create)
func (t *Transaction) SetID(id uint) {
	t.id = id
}

// TransactionReconstructParams carries persisted state back into the domain.
type TransactionReconstructParams struct {
	ID             uint
	OrderCode      string
	UserID         uint
	SubscriptionID *uint
	Amount         vo.Money
	Status         vo.TransactionStatus
	Type           vo.TransactionType
	Provider       string
	PaymentMethod  *string
	BuyerEmail     *string
	Description    string
	PaidAt         *time.Time
	CancelledAt    *time.Time
	FailureReason  *string
	Metadata       map[string]interface{}
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReconstructTransaction rebuilds a Transaction from persistence.
func ReconstructTransaction(p TransactionReconstructParams) (*Transaction, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("transaction ID cannot be zero")
	}
	if p.OrderCode == "" {
		return nil, fmt.Errorf("order code is required")
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid transaction status: %s", p.Status)
	}
	if !p.Type.IsValid() {
		return nil, fmt.Errorf("invalid transaction type: %s", p.Type)
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Transaction{
		id:             p.ID,
		orderCode:      p.OrderCode,
		userID:         p.UserID,
		subscriptionID: p.SubscriptionID,
		amount:         p.Amount,
		status:         p.Status,
		txType:         p.Type,
		provider:       p.Provider,
		paymentMethod:  p.PaymentMethod,
		buyerEmail:     p.BuyerEmail,
		description:    p.Description,
		paidAt:         p.PaidAt,
		cancelledAt:    p.CancelledAt,
		failureReason:  p.FailureReason,
		metadata:       metadata,
		version:        p.Version,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}, nil
}
