package usecases

import (
	"context"
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
)

// ListHistoryUseCase pages through a user's subscription audit trail,
// newest first.
type ListHistoryUseCase struct {
	historyRepo subscription.HistoryRepository
}

func NewListHistoryUseCase(historyRepo subscription.HistoryRepository) *ListHistoryUseCase {
	return &ListHistoryUseCase{historyRepo: historyRepo}
}

func (uc *ListHistoryUseCase) Execute(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.History, int64, error) {
	records, total, err := uc.historyRepo.ListByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscription history: %w", err)
	}
	return records, total, nil
}
