package usecases

import (
	"context"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
)

// GetTransactionUseCase fetches one ledger entry by order code.
type GetTransactionUseCase struct {
	txRepo billing.TransactionRepository
}

func NewGetTransactionUseCase(txRepo billing.TransactionRepository) *GetTransactionUseCase {
	return &GetTransactionUseCase{txRepo: txRepo}
}

func (uc *GetTransactionUseCase) Execute(ctx context.Context, orderCode string) (*billing.Transaction, error) {
	return uc.txRepo.GetByOrderCode(ctx, orderCode)
}
