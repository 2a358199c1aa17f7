package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// SubscriptionView is the read model returned to API callers. Users
// without a stored subscription are on the free tier.
type SubscriptionView struct {
	ID              uint
	Tier            subvo.Tier
	Status          subvo.SubscriptionStatus
	BillingCycle    subvo.BillingCycle
	PriceCents      int64
	Currency        string
	StartDate       time.Time
	EndDate         time.Time
	NextBillingDate time.Time
	AutoRenew       bool
	IsActive        bool
}

// GetSubscriptionUseCase resolves a user's current subscription state,
// falling back to an implicit free-tier view when none exists.
type GetSubscriptionUseCase struct {
	subRepo subscription.Repository
	now     func() time.Time
}

func NewGetSubscriptionUseCase(subRepo subscription.Repository) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{subRepo: subRepo, now: biztime.NowUTC}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, userID uint) (*SubscriptionView, error) {
	sub, err := uc.subRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return &SubscriptionView{
				Tier:     subvo.TierFree,
				Status:   subvo.StatusActive,
				IsActive: true,
			}, nil
		}
		return nil, err
	}

	return &SubscriptionView{
		ID:              sub.ID(),
		Tier:            sub.Tier(),
		Status:          sub.Status(),
		BillingCycle:    sub.BillingCycle(),
		PriceCents:      sub.PriceCents(),
		Currency:        sub.Currency(),
		StartDate:       sub.StartDate(),
		EndDate:         sub.EndDate(),
		NextBillingDate: sub.NextBillingDate(),
		AutoRenew:       sub.AutoRenew(),
		IsActive:        sub.IsActive(uc.now()),
	}, nil
}
