package scheduler

import (
	"context"
	"sync"
	"time"

	subUsecases "github.com/pixelmuse/pixelmuse/internal/application/subscription/usecases"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// RenewalScheduler drives the periodic renewal sweep: subscriptions whose
// next billing date has passed get a renewal checkout, lapse to past due,
// or expire, depending on auto-renew and gateway outcome.
type RenewalScheduler struct {
	renewDueUC *subUsecases.RenewDueUseCase
	logger     logger.Interface
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	interval   time.Duration
}

func NewRenewalScheduler(
	renewDueUC *subUsecases.RenewDueUseCase,
	interval time.Duration,
	logger logger.Interface,
) *RenewalScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RenewalScheduler{
		renewDueUC: renewDueUC,
		logger:     logger,
		stopChan:   make(chan struct{}),
		interval:   interval,
	}
}

// Start starts the scheduler loop in the background.
func (s *RenewalScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting renewal scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop stops the scheduler gracefully. Safe to call multiple times.
func (s *RenewalScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping renewal scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("renewal scheduler stopped")
	})
}

func (s *RenewalScheduler) run(ctx context.Context) {
	// Run immediately on startup to catch renewals missed while down.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("renewal scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RenewalScheduler) sweep(ctx context.Context) {
	startTime := time.Now()

	result, err := s.renewDueUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("renewal sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if result.Processed > 0 {
		s.logger.Infow("renewal sweep completed",
			"processed", result.Processed,
			"renewed", result.Renewed,
			"expired", result.Expired,
			"past_due", result.PastDue,
			"failed", result.Failed,
			"duration", time.Since(startTime),
		)
	}
}
