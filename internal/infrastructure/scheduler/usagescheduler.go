package scheduler

import (
	"context"
	"sync"
	"time"

	usageUsecases "github.com/pixelmuse/pixelmuse/internal/application/usage/usecases"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// UsageScheduler purges usage counters past the retention window.
type UsageScheduler struct {
	purgeUsageUC *usageUsecases.PurgeUsageUseCase
	logger       logger.Interface
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	interval     time.Duration
}

func NewUsageScheduler(
	purgeUsageUC *usageUsecases.PurgeUsageUseCase,
	interval time.Duration,
	logger logger.Interface,
) *UsageScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &UsageScheduler{
		purgeUsageUC: purgeUsageUC,
		logger:       logger,
		stopChan:     make(chan struct{}),
		interval:     interval,
	}
}

// Start starts the scheduler loop in the background.
func (s *UsageScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting usage scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop stops the scheduler gracefully. Safe to call multiple times.
func (s *UsageScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping usage scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("usage scheduler stopped")
	})
}

func (s *UsageScheduler) run(ctx context.Context) {
	s.purge(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("usage scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *UsageScheduler) purge(ctx context.Context) {
	startTime := time.Now()

	count, err := s.purgeUsageUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("usage purge failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if count > 0 {
		s.logger.Infow("usage purge completed",
			"deleted", count,
			"duration", time.Since(startTime),
		)
	}
}
