package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// ExpireTransactionsUseCase closes out checkouts the payer abandoned. Runs
// periodically from the ledger scheduler; the batch update only touches
// rows still pending, so it cannot race a paid webhook into a terminal
// conflict.
type ExpireTransactionsUseCase struct {
	txRepo     billing.TransactionRepository
	pendingTTL time.Duration
	logger     logger.Interface
	now        func() time.Time
}

func NewExpireTransactionsUseCase(
	txRepo billing.TransactionRepository,
	pendingTTL time.Duration,
	logger logger.Interface,
) *ExpireTransactionsUseCase {
	return &ExpireTransactionsUseCase{
		txRepo:     txRepo,
		pendingTTL: pendingTTL,
		logger:     logger,
		now:        biztime.NowUTC,
	}
}

// WithNow overrides the clock. Only for tests.
func (uc *ExpireTransactionsUseCase) WithNow(now func() time.Time) *ExpireTransactionsUseCase {
	uc.now = now
	return uc
}

// Execute expires all pending transactions older than the configured TTL
// and returns how many were expired.
func (uc *ExpireTransactionsUseCase) Execute(ctx context.Context) (int64, error) {
	cutoff := uc.now().Add(-uc.pendingTTL)

	expired, err := uc.txRepo.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending transactions: %w", err)
	}

	if expired > 0 {
		uc.logger.Infow("expired stale pending transactions",
			"count", expired,
			"cutoff", cutoff,
		)
	}

	return expired, nil
}
