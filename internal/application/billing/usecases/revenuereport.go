package usecases

import (
	"context"
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
)

// RevenueReport groups the ledger's revenue aggregates.
type RevenueReport struct {
	ByStatus []billing.RevenueByStatus
	ByMonth  []billing.RevenueByMonth
}

// RevenueReportUseCase builds the admin revenue report from ledger
// aggregates.
type RevenueReportUseCase struct {
	txRepo billing.TransactionRepository
}

func NewRevenueReportUseCase(txRepo billing.TransactionRepository) *RevenueReportUseCase {
	return &RevenueReportUseCase{txRepo: txRepo}
}

func (uc *RevenueReportUseCase) Execute(ctx context.Context, months int) (*RevenueReport, error) {
	if months <= 0 {
		months = 12
	}

	byStatus, err := uc.txRepo.RevenueByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by status: %w", err)
	}

	byMonth, err := uc.txRepo.RevenueByMonth(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue by month: %w", err)
	}

	return &RevenueReport{ByStatus: byStatus, ByMonth: byMonth}, nil
}
