package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/mappers"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type SubscriptionHistoryRepository struct {
	db *gorm.DB
}

func NewSubscriptionHistoryRepository(db *gorm.DB) *SubscriptionHistoryRepository {
	return &SubscriptionHistoryRepository{db: db}
}

func (r *SubscriptionHistoryRepository) Append(ctx context.Context, h *subscription.History) error {
	model := mappers.HistoryToModel(h)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append subscription history: %w", err)
	}

	h.SetID(model.ID)

	return nil
}

func (r *SubscriptionHistoryRepository) ListBySubscriptionID(ctx context.Context, subscriptionID uint, page, pageSize int) ([]*subscription.History, int64, error) {
	return r.list(ctx, "subscription_id = ?", subscriptionID, page, pageSize)
}

func (r *SubscriptionHistoryRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.History, int64, error) {
	return r.list(ctx, "user_id = ?", userID, page, pageSize)
}

func (r *SubscriptionHistoryRepository) list(ctx context.Context, cond string, arg uint, page, pageSize int) ([]*subscription.History, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionHistoryModel{}).
		Where(cond, arg)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscription history: %w", err)
	}

	pagination := utils.ValidatePagination(page, pageSize)

	var modelList []models.SubscriptionHistoryModel
	if err := query.
		Order("occurred_at DESC, id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PageSize).
		Find(&modelList).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscription history: %w", err)
	}

	records := make([]*subscription.History, 0, len(modelList))
	for i := range modelList {
		h, err := mappers.HistoryToDomain(&modelList[i])
		if err != nil {
			return nil, 0, err
		}
		records = append(records, h)
	}

	return records, total, nil
}
