package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// PurgeUsageUseCase deletes usage rows older than the retention window.
// Runs from the usage scheduler; the retention window must cover at least
// the current month so monthly sums stay correct.
type PurgeUsageUseCase struct {
	usageRepo     usage.Repository
	retentionDays int
	logger        logger.Interface
	now           func() time.Time
}

func NewPurgeUsageUseCase(
	usageRepo usage.Repository,
	retentionDays int,
	logger logger.Interface,
) *PurgeUsageUseCase {
	return &PurgeUsageUseCase{
		usageRepo:     usageRepo,
		retentionDays: retentionDays,
		logger:        logger,
		now:           biztime.NowUTC,
	}
}

// WithNow overrides the clock. Only for tests.
func (uc *PurgeUsageUseCase) WithNow(now func() time.Time) *PurgeUsageUseCase {
	uc.now = now
	return uc
}

// Execute purges expired rows and returns how many were deleted.
func (uc *PurgeUsageUseCase) Execute(ctx context.Context) (int64, error) {
	if uc.retentionDays <= 0 {
		return 0, fmt.Errorf("usage retention days must be positive")
	}

	cutoff := biztime.DayKey(uc.now().AddDate(0, 0, -uc.retentionDays))

	deleted, err := uc.usageRepo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge usage rows: %w", err)
	}

	if deleted > 0 {
		uc.logger.Infow("purged expired usage rows",
			"count", deleted,
			"cutoff", cutoff,
		)
	}

	return deleted, nil
}
