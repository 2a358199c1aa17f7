package scheduler

import (
	"context"
	"sync"
	"time"

	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// LedgerScheduler expires checkouts the payer walked away from, so pending
// rows cannot pile up in the ledger.
type LedgerScheduler struct {
	expireTransactionsUC *billingUsecases.ExpireTransactionsUseCase
	logger               logger.Interface
	stopChan             chan struct{}
	stopOnce             sync.Once
	wg                   sync.WaitGroup
	interval             time.Duration
}

func NewLedgerScheduler(
	expireTransactionsUC *billingUsecases.ExpireTransactionsUseCase,
	interval time.Duration,
	logger logger.Interface,
) *LedgerScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &LedgerScheduler{
		expireTransactionsUC: expireTransactionsUC,
		logger:               logger,
		stopChan:             make(chan struct{}),
		interval:             interval,
	}
}

// Start starts the scheduler loop in the background.
func (s *LedgerScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting ledger scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop stops the scheduler gracefully. Safe to call multiple times.
func (s *LedgerScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping ledger scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("ledger scheduler stopped")
	})
}

func (s *LedgerScheduler) run(ctx context.Context) {
	s.expire(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("ledger scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.expire(ctx)
		}
	}
}

func (s *LedgerScheduler) expire(ctx context.Context) {
	startTime := time.Now()

	count, err := s.expireTransactionsUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("transaction expiry failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if count > 0 {
		s.logger.Infow("transaction expiry completed",
			"expired", count,
			"duration", time.Since(startTime),
		)
	}
}
