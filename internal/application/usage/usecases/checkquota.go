package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// QuotaDecision answers one quota check. Remaining values are -1 when the
// axis is unlimited.
type QuotaDecision struct {
	Allowed          bool
	Tier             subvo.Tier
	DailyUsed        int64
	DailyLimit       int
	DailyRemaining   int64
	MonthlyUsed      int64
	MonthlyLimit     int
	MonthlyRemaining int64
	DeniedAxis       string // "daily" or "monthly" when denied
}

// CheckQuotaUseCase answers whether a user may consume one more unit of a
// metered resource. Both axes must pass: today's counter against the daily
// limit and the month's sum against the monthly limit. An unresolvable
// tier denies the request rather than granting default quota.
type CheckQuotaUseCase struct {
	subRepo   subscription.Repository
	usageRepo usage.Repository
	catalog   *subscription.Catalog
	logger    logger.Interface
	now       func() time.Time
}

func NewCheckQuotaUseCase(
	subRepo subscription.Repository,
	usageRepo usage.Repository,
	catalog *subscription.Catalog,
	logger logger.Interface,
) *CheckQuotaUseCase {
	return &CheckQuotaUseCase{
		subRepo:   subRepo,
		usageRepo: usageRepo,
		catalog:   catalog,
		logger:    logger,
		now:       biztime.NowUTC,
	}
}

// WithNow overrides the clock. Only for tests.
func (uc *CheckQuotaUseCase) WithNow(now func() time.Time) *CheckQuotaUseCase {
	uc.now = now
	return uc
}

func (uc *CheckQuotaUseCase) Execute(ctx context.Context, userID uint, usageType usage.UsageType) (*QuotaDecision, error) {
	if !usageType.IsValid() {
		return nil, fmt.Errorf("invalid usage type: %s", usageType)
	}

	tier := uc.resolveTier(ctx, userID)

	plan, err := uc.catalog.Resolve(tier)
	if err != nil {
		// Fail closed: a tier the catalog does not know grants nothing.
		uc.logger.Errorw("quota check against unknown tier, denying",
			"user_id", userID,
			"tier", tier.String(),
		)
		return &QuotaDecision{Allowed: false, Tier: tier, DeniedAxis: "daily"}, err
	}

	day := uc.now()
	counts, err := uc.usageRepo.GetCounts(ctx, userID, day, usageType)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage counts: %w", err)
	}

	decision := &QuotaDecision{
		Allowed:      true,
		Tier:         tier,
		DailyUsed:    counts.Daily,
		DailyLimit:   plan.DailyGenerationLimit(),
		MonthlyUsed:  counts.Monthly,
		MonthlyLimit: plan.MonthlyGenerationLimit(),
	}

	if plan.DailyUnlimited() {
		decision.DailyRemaining = subscription.UnlimitedQuota
	} else {
		decision.DailyRemaining = int64(plan.DailyGenerationLimit()) - counts.Daily
		if decision.DailyRemaining < 0 {
			decision.DailyRemaining = 0
		}
		if counts.Daily >= int64(plan.DailyGenerationLimit()) {
			decision.Allowed = false
			decision.DeniedAxis = "daily"
		}
	}

	if plan.MonthlyUnlimited() {
		decision.MonthlyRemaining = subscription.UnlimitedQuota
	} else {
		decision.MonthlyRemaining = int64(plan.MonthlyGenerationLimit()) - counts.Monthly
		if decision.MonthlyRemaining < 0 {
			decision.MonthlyRemaining = 0
		}
		if decision.Allowed && counts.Monthly >= int64(plan.MonthlyGenerationLimit()) {
			decision.Allowed = false
			decision.DeniedAxis = "monthly"
		}
	}

	return decision, nil
}

// resolveTier maps a user to their quota tier: the active subscription's
// tier, or free when none exists or the lookup fails. Lookup failures fall
// back to free rather than denying, since the free tier is the floor every
// user holds.
func (uc *CheckQuotaUseCase) resolveTier(ctx context.Context, userID uint) subvo.Tier {
	sub, err := uc.subRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, subscription.ErrSubscriptionNotFound) {
			uc.logger.Warnw("subscription lookup failed, falling back to free tier",
				"user_id", userID,
				"error", err,
			)
		}
		return subvo.TierFree
	}
	if !sub.Status().CanUseService() || !sub.EndDate().After(uc.now()) {
		return subvo.TierFree
	}
	return sub.Tier()
}
