package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	subscriptionUsecases "github.com/pixelmuse/pixelmuse/internal/application/subscription/usecases"
	usageUsecases "github.com/pixelmuse/pixelmuse/internal/application/usage/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/config"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/database"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/email"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/gateway"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/repository"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/scheduler"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// The worker runs only the background sweeps. Deployments that scale the
// API horizontally run exactly one worker so the renewal sweep is not
// raced by multiple instances.
func main() {
	env := "development"
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger()
	log.Infow("starting billing worker", "environment", env)

	biztime.MustInit(cfg.Billing.Timezone)

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	catalog, err := subscription.NewCatalog(cfg.Plans)
	if err != nil {
		log.Fatalw("failed to build plan catalog", "error", err)
	}

	gw := gateway.NewPayFlowClient(&cfg.Gateway, log)

	var dispatcher notification.Dispatcher = notification.NewNoopDispatcher()
	if cfg.Email.SMTPHost != "" {
		dispatcher = email.NewDispatcher(&cfg.Email, log)
	}

	gormDB := database.Get()
	txRepo := repository.NewTransactionRepository(gormDB)
	subRepo := repository.NewSubscriptionRepository(gormDB)
	historyRepo := repository.NewSubscriptionHistoryRepository(gormDB)
	usageRepo := repository.NewUsageRepository(gormDB)
	orderCodes := billing.NewOrderCodeGenerator()

	renewDueUC := subscriptionUsecases.NewRenewDueUseCase(
		subRepo, txRepo, historyRepo, catalog, gw, orderCodes, dispatcher,
		cfg.Gateway.ReturnURL, cfg.Gateway.WebhookURL, cfg.Billing.PendingTTL(), log,
	)
	expireTransactionsUC := billingUsecases.NewExpireTransactionsUseCase(
		txRepo, cfg.Billing.PendingTTL(), log,
	)
	purgeUsageUC := usageUsecases.NewPurgeUsageUseCase(
		usageRepo, cfg.Billing.UsageRetentionDays, log,
	)

	renewalScheduler := scheduler.NewRenewalScheduler(renewDueUC, cfg.Billing.RenewalInterval(), log)
	ledgerScheduler := scheduler.NewLedgerScheduler(expireTransactionsUC, cfg.Billing.LedgerInterval(), log)
	usageScheduler := scheduler.NewUsageScheduler(purgeUsageUC, cfg.Billing.UsagePurgeInterval(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renewalScheduler.Start(ctx)
	ledgerScheduler.Start(ctx)
	usageScheduler.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infow("shutting down worker", "signal", sig.String())

	cancel()
	renewalScheduler.Stop()
	ledgerScheduler.Stop()
	usageScheduler.Stop()

	log.Infow("worker stopped")
}
