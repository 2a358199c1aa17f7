package mappers

import (
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
)

func TransactionToModel(t *billing.Transaction) *models.TransactionModel {
	model := &models.TransactionModel{
		ID:             t.ID(),
		OrderCode:      t.OrderCode(),
		UserID:         t.UserID(),
		SubscriptionID: t.SubscriptionID(),
		AmountCents:    t.Amount().AmountInCents(),
		Currency:       t.Amount().Currency(),
		Status:         t.Status().String(),
		Type:           t.Type().String(),
		Provider:       t.Provider(),
		PaymentMethod:  t.PaymentMethod(),
		BuyerEmail:     t.BuyerEmail(),
		Description:    t.Description(),
		PaidAt:         t.PaidAt(),
		CancelledAt:    t.CancelledAt(),
		FailureReason:  t.FailureReason(),
		Version:        t.Version(),
		CreatedAt:      t.CreatedAt(),
		UpdatedAt:      t.UpdatedAt(),
	}

	if len(t.Metadata()) > 0 {
		model.Metadata = t.Metadata()
	}

	return model
}

func TransactionToDomain(model *models.TransactionModel) (*billing.Transaction, error) {
	status, err := vo.ParseTransactionStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction status: %w", err)
	}

	txType, err := vo.ParseTransactionType(model.Type)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction type: %w", err)
	}

	return billing.ReconstructTransaction(billing.TransactionReconstructParams{
		ID:             model.ID,
		OrderCode:      model.OrderCode,
		UserID:         model.UserID,
		SubscriptionID: model.SubscriptionID,
		Amount:         vo.NewMoney(model.AmountCents, model.Currency),
		Status:         status,
		Type:           txType,
		Provider:       model.Provider,
		PaymentMethod:  model.PaymentMethod,
		BuyerEmail:     model.BuyerEmail,
		Description:    model.Description,
		PaidAt:         model.PaidAt,
		CancelledAt:    model.CancelledAt,
		FailureReason:  model.FailureReason,
		Metadata:       model.Metadata,
		Version:        model.Version,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	})
}
