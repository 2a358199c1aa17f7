package subscription

import (
	"fmt"
	"time"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// HistoryAction names a lifecycle event recorded in the audit trail.
type HistoryAction string

const (
	HistoryActionCreated     HistoryAction = "created"
	HistoryActionRenewed     HistoryAction = "renewed"
	HistoryActionPastDue     HistoryAction = "past_due"
	HistoryActionCancelled   HistoryAction = "cancelled"
	HistoryActionExpired     HistoryAction = "expired"
	HistoryActionReactivated HistoryAction = "reactivated"
	HistoryActionTierChanged HistoryAction = "tier_changed"
)

func (a HistoryAction) IsValid() bool {
	switch a {
	case HistoryActionCreated, HistoryActionRenewed, HistoryActionPastDue,
		HistoryActionCancelled, HistoryActionExpired, HistoryActionReactivated,
		HistoryActionTierChanged:
		return true
	}
	return false
}

// History is an append-only record of a subscription lifecycle event.
// Rows are never updated or deleted.
type History struct {
	id             uint
	subscriptionID uint
	userID         uint
	action         HistoryAction
	oldTier        *vo.Tier
	newTier        *vo.Tier
	amountCents    int64
	reason         *string
	occurredAt     time.Time
	createdAt      time.Time
}

// NewHistory records an event against a subscription at occurredAt.
func NewHistory(
	subscriptionID uint,
	userID uint,
	action HistoryAction,
	oldTier, newTier *vo.Tier,
	amountCents int64,
	reason *string,
	occurredAt time.Time,
) (*History, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("invalid history action: %s", action)
	}
	if occurredAt.IsZero() {
		occurredAt = biztime.NowUTC()
	}

	return &History{
		subscriptionID: subscriptionID,
		userID:         userID,
		action:         action,
		oldTier:        oldTier,
		newTier:        newTier,
		amountCents:    amountCents,
		reason:         reason,
		occurredAt:     occurredAt,
		createdAt:      biztime.NowUTC(),
	}, nil
}

func (h *History) ID() uint               { return h.id }
func (h *History) SubscriptionID() uint   { return h.subscriptionID }
func (h *History) UserID() uint           { return h.userID }
func (h *History) Action() HistoryAction  { return h.action }
func (h *History) OldTier() *vo.Tier      { return h.oldTier }
func (h *History) NewTier() *vo.Tier      { return h.newTier }
func (h *History) AmountCents() int64     { return h.amountCents }
func (h *History) Reason() *string        { return h.reason }
func (h *History) OccurredAt() time.Time  { return h.occurredAt }
func (h *History) CreatedAt() time.Time   { return h.createdAt }

// SetID sets the history ID (only for persistence layer use)
func (h *History) SetID(id uint) error {
	if h.id != 0 {
		return fmt.Errorf("history ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("history ID cannot be zero")
	}
	h.id = id
	return nil
}

// HistoryReconstructParams carries persisted state back into the domain.
type HistoryReconstructParams struct {
	ID             uint
	SubscriptionID uint
	UserID         uint
	Action         HistoryAction
	OldTier        *vo.Tier
	NewTier        *vo.Tier
	AmountCents    int64
	Reason         *string
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// ReconstructHistory rebuilds a history record from persistence.
func ReconstructHistory(p HistoryReconstructParams) (*History, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("history ID cannot be zero")
	}
	if !p.Action.IsValid() {
		return nil, fmt.Errorf("invalid history action: %s", p.Action)
	}

	return &History{
		id:             p.ID,
		subscriptionID: p.SubscriptionID,
		userID:         p.UserID,
		action:         p.Action,
		oldTier:        p.OldTier,
		newTier:        p.NewTier,
		amountCents:    p.AmountCents,
		reason:         p.Reason,
		occurredAt:     p.OccurredAt,
		createdAt:      p.CreatedAt,
	}, nil
}
