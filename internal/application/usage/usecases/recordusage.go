package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// RecordUsageCommand adds consumed units to a user's daily counter.
type RecordUsageCommand struct {
	UserID    uint
	UsageType usage.UsageType
	Delta     int64
	// Enforce rejects the increment with ErrQuotaExceeded when the quota
	// check denies. Without it the units are recorded unconditionally,
	// which is what the generation pipeline wants after work already
	// happened.
	Enforce bool
}

// RecordUsageUseCase increments the usage counter for the caller's current
// business day. The underlying repository write is an atomic upsert, so
// concurrent recordings for the same user and day all land on one row.
type RecordUsageUseCase struct {
	usageRepo  usage.Repository
	checkQuota *CheckQuotaUseCase
	logger     logger.Interface
	now        func() time.Time
}

func NewRecordUsageUseCase(
	usageRepo usage.Repository,
	checkQuota *CheckQuotaUseCase,
	logger logger.Interface,
) *RecordUsageUseCase {
	return &RecordUsageUseCase{
		usageRepo:  usageRepo,
		checkQuota: checkQuota,
		logger:     logger,
		now:        biztime.NowUTC,
	}
}

// WithNow overrides the clock. Only for tests.
func (uc *RecordUsageUseCase) WithNow(now func() time.Time) *RecordUsageUseCase {
	uc.now = now
	return uc
}

func (uc *RecordUsageUseCase) Execute(ctx context.Context, cmd RecordUsageCommand) error {
	if !cmd.UsageType.IsValid() {
		return fmt.Errorf("invalid usage type: %s", cmd.UsageType)
	}
	if cmd.Delta <= 0 {
		return fmt.Errorf("delta must be positive")
	}

	if cmd.Enforce {
		decision, err := uc.checkQuota.Execute(ctx, cmd.UserID, cmd.UsageType)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return fmt.Errorf("%w: %s limit reached", subscription.ErrQuotaExceeded, decision.DeniedAxis)
		}
	}

	day := uc.now()
	if err := uc.usageRepo.Increment(ctx, cmd.UserID, day, cmd.UsageType, cmd.Delta); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	uc.logger.Debugw("usage recorded",
		"user_id", cmd.UserID,
		"usage_type", cmd.UsageType.String(),
		"delta", cmd.Delta,
		"day", biztime.DayKey(day),
	)

	return nil
}
