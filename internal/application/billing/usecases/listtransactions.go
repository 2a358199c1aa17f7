package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
)

// ListTransactionsQuery filters the ledger listing.
type ListTransactionsQuery struct {
	UserID   *uint
	Status   string
	Type     string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListTransactionsUseCase lists ledger entries with filters and pagination.
type ListTransactionsUseCase struct {
	txRepo billing.TransactionRepository
}

func NewListTransactionsUseCase(txRepo billing.TransactionRepository) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{txRepo: txRepo}
}

func (uc *ListTransactionsUseCase) Execute(ctx context.Context, q ListTransactionsQuery) ([]*billing.Transaction, int64, error) {
	filter := billing.TransactionFilter{
		UserID:   q.UserID,
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
	}

	if q.Status != "" {
		status, err := billingvo.ParseTransactionStatus(q.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &status
	}
	if q.Type != "" {
		txType, err := billingvo.ParseTransactionType(q.Type)
		if err != nil {
			return nil, 0, err
		}
		filter.Type = &txType
	}

	txs, total, err := uc.txRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}
