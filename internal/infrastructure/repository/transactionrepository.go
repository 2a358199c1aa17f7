package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/mappers"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *billing.Transaction) error {
	model := mappers.TransactionToModel(t)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateKeyError(err) {
			return billing.ErrDuplicateOrderCode
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	// Write back the auto-generated ID to the domain object
	t.SetID(model.ID)

	return nil
}

// UpdateStatusChecked persists the aggregate's current state guarded by the
// status it was loaded with. Zero rows affected means another writer moved
// the row first.
func (r *TransactionRepository) UpdateStatusChecked(ctx context.Context, t *billing.Transaction, expected vo.TransactionStatus) error {
	model := mappers.TransactionToModel(t)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("order_code = ? AND status = ?", model.OrderCode, expected.String()).
		Updates(map[string]interface{}{
			"status":          model.Status,
			"subscription_id": model.SubscriptionID,
			"payment_method":  model.PaymentMethod,
			"buyer_email":     model.BuyerEmail,
			"paid_at":         model.PaidAt,
			"cancelled_at":    model.CancelledAt,
			"failure_reason":  model.FailureReason,
			"metadata":        model.Metadata,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billing.ErrConcurrentModification
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uint) (*billing.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) GetByOrderCode(ctx context.Context, orderCode string) (*billing.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("order_code = ?", orderCode).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID uint) ([]*billing.Transaction, error) {
	var modelList []models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return r.toDomainList(modelList)
}

func (r *TransactionRepository) GetPendingBySubscriptionID(ctx context.Context, subscriptionID uint) (*billing.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ? AND status IN ?", subscriptionID,
			[]string{vo.TransactionStatusPending.String(), vo.TransactionStatusProcessing.String()}).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get pending transaction: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) List(ctx context.Context, filter billing.TransactionFilter) ([]*billing.Transaction, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.TransactionModel{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.SubscriptionID != nil {
		query = query.Where("subscription_id = ?", *filter.SubscriptionID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Type != nil {
		query = query.Where("type = ?", filter.Type.String())
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	pagination := utils.ValidatePagination(filter.Page, filter.PageSize)

	var modelList []models.TransactionModel
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PageSize).
		Find(&modelList).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	txs, err := r.toDomainList(modelList)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ExpirePendingBefore batch-expires stale pending rows. The status guard in
// the WHERE clause keeps it from touching anything a webhook settled in the
// meantime.
func (r *TransactionRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("status IN ? AND created_at < ?",
			[]string{vo.TransactionStatusPending.String(), vo.TransactionStatusProcessing.String()}, cutoff).
		Updates(map[string]interface{}{
			"status":     vo.TransactionStatusExpired.String(),
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire pending transactions: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *TransactionRepository) RevenueByStatus(ctx context.Context) ([]billing.RevenueByStatus, error) {
	var rows []billing.RevenueByStatus

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS amount_cents").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by status: %w", err)
	}

	return rows, nil
}

func (r *TransactionRepository) RevenueByMonth(ctx context.Context, months int) ([]billing.RevenueByMonth, error) {
	since := time.Now().UTC().AddDate(0, -months, 0)

	monthExpr := "DATE_FORMAT(paid_at, '%Y-%m')"
	if r.db.Dialector.Name() == "sqlite" {
		monthExpr = "strftime('%Y-%m', paid_at)"
	}

	var rows []billing.RevenueByMonth
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Select(monthExpr+" AS month, COUNT(*) AS count, COALESCE(SUM(amount_cents), 0) AS amount_cents").
		Where("status = ? AND paid_at >= ?", vo.TransactionStatusPaid.String(), since).
		Group("month").
		Order("month DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by month: %w", err)
	}

	return rows, nil
}

func (r *TransactionRepository) toDomainList(modelList []models.TransactionModel) ([]*billing.Transaction, error) {
	txs := make([]*billing.Transaction, 0, len(modelList))
	for i := range modelList {
		t, err := mappers.TransactionToDomain(&modelList[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
