package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/mappers"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	model := mappers.SubscriptionToModel(s)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	// Write back the auto-generated ID to the domain object
	if err := s.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

// Update persists the aggregate guarded by its previous version. Zero rows
// affected means another writer bumped the version first.
func (r *SubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	model := mappers.SubscriptionToModel(s)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("id = ? AND version < ?", model.ID, model.Version).
		Updates(map[string]interface{}{
			"tier":                model.Tier,
			"status":              model.Status,
			"billing_cycle":       model.BillingCycle,
			"price_cents":         model.PriceCents,
			"currency":            model.Currency,
			"end_date":            model.EndDate,
			"next_billing_date":   model.NextBillingDate,
			"auto_renew":          model.AutoRenew,
			"cancelled_at":        model.CancelledAt,
			"cancellation_reason": model.CancellationReason,
			"metadata":            model.Metadata,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrConcurrentModification
	}

	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return mappers.SubscriptionToDomain(&model)
}

func (r *SubscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("external_subscription_id = ?", externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return mappers.SubscriptionToDomain(&model)
}

func (r *SubscriptionRepository) GetActiveByUserID(ctx context.Context, userID uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND status IN ?", userID,
			[]string{vo.StatusActive.String(), vo.StatusPastDue.String()}).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return mappers.SubscriptionToDomain(&model)
}

func (r *SubscriptionRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.Subscription, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	pagination := utils.ValidatePagination(page, pageSize)

	var modelList []models.SubscriptionModel
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PageSize).
		Find(&modelList).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	subs := make([]*subscription.Subscription, 0, len(modelList))
	for i := range modelList {
		s, err := mappers.SubscriptionToDomain(&modelList[i])
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, s)
	}

	return subs, total, nil
}

func (r *SubscriptionRepository) FindRenewalDue(ctx context.Context, asOf time.Time, limit int) ([]*subscription.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}

	var modelList []models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status IN ? AND next_billing_date <= ?",
			[]string{vo.StatusActive.String(), vo.StatusPastDue.String()}, asOf).
		Order("next_billing_date ASC").
		Limit(limit).
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	subs := make([]*subscription.Subscription, 0, len(modelList))
	for i := range modelList {
		s, err := mappers.SubscriptionToDomain(&modelList[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}

	return subs, nil
}

func (r *SubscriptionRepository) CountByStatus(ctx context.Context, status vo.SubscriptionStatus) (int64, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("status = ?", status.String()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}
