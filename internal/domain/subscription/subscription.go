package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// Subscription is the aggregate root owning subscription status and billing
// dates. It is mutated exclusively through its transition methods; CRUD
// endpoints never touch it directly. Cancelled and expired are terminal.
type Subscription struct {
	id                     uint
	userID                 uint
	tier                   vo.Tier
	status                 vo.SubscriptionStatus
	billingCycle           vo.BillingCycle
	priceCents             int64
	currency               string
	startDate              time.Time
	endDate                time.Time
	nextBillingDate        time.Time
	autoRenew              bool
	externalSubscriptionID string
	cancelledAt            *time.Time
	cancellationReason     *string
	metadata               map[string]interface{}
	version                int
	createdAt              time.Time
	updatedAt              time.Time
}

// NewSubscription creates an active subscription starting at startDate.
// Subscriptions come into existence alongside the first successful payment,
// so the initial status is active and the first period is already paid for.
func NewSubscription(
	userID uint,
	tier vo.Tier,
	cycle vo.BillingCycle,
	priceCents int64,
	currency string,
	startDate time.Time,
	autoRenew bool,
) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !tier.IsValid() {
		return nil, fmt.Errorf("invalid tier: %s", tier)
	}
	if !cycle.IsValid() {
		return nil, fmt.Errorf("invalid billing cycle: %s", cycle)
	}
	if currency == "" {
		currency = "USD"
	}

	endDate := cycle.Advance(startDate)
	now := biztime.NowUTC()

	return &Subscription{
		userID:                 userID,
		tier:                   tier,
		status:                 vo.StatusActive,
		billingCycle:           cycle,
		priceCents:             priceCents,
		currency:               currency,
		startDate:              startDate,
		endDate:                endDate,
		nextBillingDate:        endDate,
		autoRenew:              autoRenew,
		externalSubscriptionID: uuid.NewString(),
		metadata:               make(map[string]interface{}),
		version:                1,
		createdAt:              now,
		updatedAt:              now,
	}, nil
}

// RenewalDue reports whether the subscription's next billing date has
// passed as of asOf. Only meaningful while the subscription is active or
// past due.
func (s *Subscription) RenewalDue(asOf time.Time) bool {
	return !s.status.IsTerminal() && !s.nextBillingDate.After(asOf)
}

// Renew extends endDate and nextBillingDate by one billing cycle. The due
// check makes the operation idempotent: a scheduler tick and a paid webhook
// racing over the same cycle both call Renew, and whichever applies second
// sees nextBillingDate already in the future and no-ops. A past-due
// subscription recovers to active on renewal.
func (s *Subscription) Renew(asOf time.Time) error {
	if !s.status.CanRenew() {
		return fmt.Errorf("cannot renew subscription with status %s", s.status)
	}

	if !s.RenewalDue(asOf) {
		// Already renewed this cycle.
		return nil
	}

	s.endDate = s.billingCycle.Advance(s.endDate)
	s.nextBillingDate = s.billingCycle.Advance(s.nextBillingDate)
	if s.status == vo.StatusPastDue {
		s.status = vo.StatusActive
	}
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// ConfirmPayment applies a paid outcome: a past-due subscription recovers
// to active, and the current cycle is extended if still due. Safe to call
// on replayed webhooks.
func (s *Subscription) ConfirmPayment(asOf time.Time) error {
	if !s.status.CanRenew() {
		return fmt.Errorf("cannot confirm payment for subscription with status %s", s.status)
	}

	if err := s.Renew(asOf); err != nil {
		return err
	}

	if s.status == vo.StatusPastDue {
		s.status = vo.StatusActive
		s.updatedAt = biztime.NowUTC()
		s.version++
	}

	return nil
}

// MarkPastDue records a failed or missing renewal payment. Idempotent.
func (s *Subscription) MarkPastDue() error {
	if s.status == vo.StatusPastDue {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusPastDue) {
		return ErrInvalidTransition(s.status.String(), vo.StatusPastDue.String())
	}

	s.status = vo.StatusPastDue
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// Cancel terminates the subscription immediately with a reason.
func (s *Subscription) Cancel(reason string) error {
	if s.status == vo.StatusCancelled {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusCancelled) {
		return ErrInvalidTransition(s.status.String(), vo.StatusCancelled.String())
	}
	if reason == "" {
		return fmt.Errorf("cancel reason is required")
	}

	now := biztime.NowUTC()
	s.status = vo.StatusCancelled
	s.cancelledAt = &now
	s.cancellationReason = &reason
	s.autoRenew = false
	s.updatedAt = now
	s.version++

	return nil
}

// ScheduleCancellation keeps the subscription active until the end of the
// paid period but forces auto-renew off, so the renewal-due rule expires it.
func (s *Subscription) ScheduleCancellation(reason string) error {
	if s.status.IsTerminal() {
		return fmt.Errorf("cannot schedule cancellation with status %s", s.status)
	}

	now := biztime.NowUTC()
	s.autoRenew = false
	if reason != "" {
		s.cancellationReason = &reason
	}
	s.updatedAt = now
	s.version++

	return nil
}

// MarkAsExpired marks the subscription expired. Idempotent.
func (s *Subscription) MarkAsExpired() error {
	if s.status == vo.StatusExpired {
		return nil
	}
	if !s.status.CanTransitionTo(vo.StatusExpired) {
		return ErrInvalidTransition(s.status.String(), vo.StatusExpired.String())
	}

	s.status = vo.StatusExpired
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// SetAutoRenew updates the auto-renew setting.
func (s *Subscription) SetAutoRenew(autoRenew bool) {
	if s.autoRenew == autoRenew {
		return
	}
	s.autoRenew = autoRenew
	s.updatedAt = biztime.NowUTC()
	s.version++
}

// ChangeTier records an upgrade or downgrade taking effect immediately.
// Pricing changes only apply to future renewals.
func (s *Subscription) ChangeTier(tier vo.Tier, priceCents int64) error {
	if !tier.IsValid() {
		return fmt.Errorf("invalid tier: %s", tier)
	}
	if s.status.IsTerminal() {
		return fmt.Errorf("cannot change tier with status %s", s.status)
	}
	if tier == s.tier {
		return nil
	}

	s.tier = tier
	s.priceCents = priceCents
	s.updatedAt = biztime.NowUTC()
	s.version++

	return nil
}

// IsActive reports whether the subscription currently grants service.
func (s *Subscription) IsActive(asOf time.Time) bool {
	return s.status.CanUseService() && s.endDate.After(asOf)
}

func (s *Subscription) ID() uint                         { return s.id }
func (s *Subscription) UserID() uint                     { return s.userID }
func (s *Subscription) Tier() vo.Tier                    { return s.tier }
func (s *Subscription) Status() vo.SubscriptionStatus    { return s.status }
func (s *Subscription) BillingCycle() vo.BillingCycle    { return s.billingCycle }
func (s *Subscription) PriceCents() int64                { return s.priceCents }
func (s *Subscription) Currency() string                 { return s.currency }
func (s *Subscription) StartDate() time.Time             { return s.startDate }
func (s *Subscription) EndDate() time.Time               { return s.endDate }
func (s *Subscription) NextBillingDate() time.Time       { return s.nextBillingDate }
func (s *Subscription) AutoRenew() bool                  { return s.autoRenew }
func (s *Subscription) ExternalSubscriptionID() string   { return s.externalSubscriptionID }
func (s *Subscription) CancelledAt() *time.Time          { return s.cancelledAt }
func (s *Subscription) CancellationReason() *string      { return s.cancellationReason }
func (s *Subscription) Metadata() map[string]interface{} { return s.metadata }
func (s *Subscription) Version() int                     { return s.version }
func (s *Subscription) CreatedAt() time.Time             { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time             { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

// SubscriptionReconstructParams carries persisted state back into the domain.
type SubscriptionReconstructParams struct {
	ID                     uint
	UserID                 uint
	Tier                   vo.Tier
	Status                 vo.SubscriptionStatus
	BillingCycle           vo.BillingCycle
	PriceCents             int64
	Currency               string
	StartDate              time.Time
	EndDate                time.Time
	NextBillingDate        time.Time
	AutoRenew              bool
	ExternalSubscriptionID string
	CancelledAt            *time.Time
	CancellationReason     *string
	Metadata               map[string]interface{}
	Version                int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ReconstructSubscription rebuilds a subscription from persistence.
func ReconstructSubscription(p SubscriptionReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !vo.ValidStatuses[p.Status] {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	if !p.Tier.IsValid() {
		return nil, fmt.Errorf("invalid tier: %s", p.Tier)
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Subscription{
		id:                     p.ID,
		userID:                 p.UserID,
		tier:                   p.Tier,
		status:                 p.Status,
		billingCycle:           p.BillingCycle,
		priceCents:             p.PriceCents,
		currency:               p.Currency,
		startDate:              p.StartDate,
		endDate:                p.EndDate,
		nextBillingDate:        p.NextBillingDate,
		autoRenew:              p.AutoRenew,
		externalSubscriptionID: p.ExternalSubscriptionID,
		cancelledAt:            p.CancelledAt,
		cancellationReason:     p.CancellationReason,
		metadata:               metadata,
		version:                p.Version,
		createdAt:              p.CreatedAt,
		updatedAt:              p.UpdatedAt,
	}, nil
}
