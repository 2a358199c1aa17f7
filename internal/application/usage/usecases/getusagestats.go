package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// UsageStats is the per-user usage read model: today's counter, the
// month-to-date sum, and the daily series over the requested window.
type UsageStats struct {
	Today       int64
	MonthToDate int64
	DailySeries []DailyUsage
}

// DailyUsage is one day's counter in the series.
type DailyUsage struct {
	Date  time.Time
	Count int64
}

// GetUsageStatsUseCase builds the usage dashboard for one user.
type GetUsageStatsUseCase struct {
	usageRepo usage.Repository
	now       func() time.Time
}

func NewGetUsageStatsUseCase(usageRepo usage.Repository) *GetUsageStatsUseCase {
	return &GetUsageStatsUseCase{usageRepo: usageRepo, now: biztime.NowUTC}
}

func (uc *GetUsageStatsUseCase) Execute(ctx context.Context, userID uint, usageType usage.UsageType, days int) (*UsageStats, error) {
	if !usageType.IsValid() {
		return nil, fmt.Errorf("invalid usage type: %s", usageType)
	}
	if days <= 0 || days > 90 {
		days = 30
	}

	now := uc.now()
	counts, err := uc.usageRepo.GetCounts(ctx, userID, now, usageType)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage counts: %w", err)
	}

	from := biztime.DayKey(now.AddDate(0, 0, -(days - 1)))
	to := biztime.DayKey(now)
	records, err := uc.usageRepo.ListByUser(ctx, userID, from, to, usageType)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	series := make([]DailyUsage, 0, len(records))
	for _, r := range records {
		series = append(series, DailyUsage{Date: r.UsageDate(), Count: r.Count()})
	}

	return &UsageStats{
		Today:       counts.Daily,
		MonthToDate: counts.Monthly,
		DailySeries: series,
	}, nil
}
