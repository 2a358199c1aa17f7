package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/mappers"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Increment upserts the day's counter row in a single statement: insert on
// first use, otherwise add delta to the existing count. The unique index on
// (user_id, usage_date, usage_type) makes concurrent increments serialize
// on the row instead of creating duplicates.
func (r *UsageRepository) Increment(ctx context.Context, userID uint, day time.Time, usageType usage.UsageType, delta int64) error {
	now := biztime.NowUTC()
	model := &models.UsageTrackingModel{
		UserID:    userID,
		UsageDate: biztime.DayKey(day),
		UsageType: usageType.String(),
		Count:     delta,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "usage_date"}, {Name: "usage_type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("count + ?", delta),
				"updated_at": now,
			}),
		}).
		Create(model).Error; err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}

	return nil
}

func (r *UsageRepository) GetCounts(ctx context.Context, userID uint, day time.Time, usageType usage.UsageType) (usage.Counts, error) {
	daily, err := r.GetDailyCount(ctx, userID, day, usageType)
	if err != nil {
		return usage.Counts{}, err
	}

	monthly, err := r.GetMonthlySum(ctx, userID, day, usageType)
	if err != nil {
		return usage.Counts{}, err
	}

	return usage.Counts{Daily: daily, Monthly: monthly}, nil
}

func (r *UsageRepository) GetDailyCount(ctx context.Context, userID uint, day time.Time, usageType usage.UsageType) (int64, error) {
	var model models.UsageTrackingModel

	err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND usage_date = ? AND usage_type = ?",
			userID, biztime.DayKey(day), usageType.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get daily count: %w", err)
	}

	return model.Count, nil
}

// GetMonthlySum sums the daily counters over the calendar month containing
// monthOf. The monthly axis has no row of its own.
func (r *UsageRepository) GetMonthlySum(ctx context.Context, userID uint, monthOf time.Time, usageType usage.UsageType) (int64, error) {
	monthStart := biztime.MonthStart(monthOf)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var sum int64
	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.UsageTrackingModel{}).
		Select("COALESCE(SUM(count), 0)").
		Where("user_id = ? AND usage_type = ? AND usage_date >= ? AND usage_date < ?",
			userID, usageType.String(), monthStart, nextMonth).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum monthly usage: %w", err)
	}

	return sum, nil
}

func (r *UsageRepository) ListByUser(ctx context.Context, userID uint, from, to time.Time, usageType usage.UsageType) ([]*usage.Record, error) {
	var modelList []models.UsageTrackingModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND usage_type = ? AND usage_date >= ? AND usage_date <= ?",
			userID, usageType.String(), biztime.DayKey(from), biztime.DayKey(to)).
		Order("usage_date ASC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage records: %w", err)
	}

	records := make([]*usage.Record, 0, len(modelList))
	for i := range modelList {
		rec, err := mappers.UsageRecordToDomain(&modelList[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func (r *UsageRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Where("usage_date < ?", cutoff).
		Delete(&models.UsageTrackingModel{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge usage records: %w", result.Error)
	}

	return result.RowsAffected, nil
}
