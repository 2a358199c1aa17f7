package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appgateway "github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	subscriptionUsecases "github.com/pixelmuse/pixelmuse/internal/application/subscription/usecases"
	usageUsecases "github.com/pixelmuse/pixelmuse/internal/application/usage/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/cache"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/config"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/database"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/email"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/gateway"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/migration"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/ratelimit"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/repository"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/scheduler"
	httpRouter "github.com/pixelmuse/pixelmuse/internal/interfaces/http"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the PixelMuse billing server with the renewal, ledger, and usage schedulers.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	biztime.MustInit(cfg.Billing.Timezone)

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if autoMigrate {
		if err := migration.Up(database.Get(), log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	catalog, err := subscription.NewCatalog(cfg.Plans)
	if err != nil {
		return fmt.Errorf("failed to build plan catalog: %w", err)
	}

	gw := gateway.NewPayFlowClient(&cfg.Gateway, log)
	dispatcher := buildDispatcher(cfg, log)
	rateLimiter := buildRateLimiter(cfg, log)

	router := httpRouter.NewRouter(&httpRouter.Dependencies{
		Config:      cfg,
		DB:          database.Get(),
		Catalog:     catalog,
		Gateway:     gw,
		Dispatcher:  dispatcher,
		RateLimiter: rateLimiter,
		Logger:      log,
	})

	schedulers := buildSchedulers(cfg, catalog, gw, dispatcher, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, s := range schedulers {
		s.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infow("starting http server", "addr", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-sigChan:
		log.Infow("shutting down", "signal", sig.String())
	}

	cancel()
	for _, s := range schedulers {
		s.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Infow("server stopped")
	return nil
}

// Scheduler is the shared lifecycle of the background sweeps.
type Scheduler interface {
	Start(ctx context.Context)
	Stop()
}

func buildSchedulers(
	cfg *config.Config,
	catalog *subscription.Catalog,
	gw appgateway.PaymentGateway,
	dispatcher notification.Dispatcher,
	log logger.Interface,
) []Scheduler {
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

	return []Scheduler{
		scheduler.NewRenewalScheduler(renewDueUC, cfg.Billing.RenewalInterval(), log),
		scheduler.NewLedgerScheduler(expireTransactionsUC, cfg.Billing.LedgerInterval(), log),
		scheduler.NewUsageScheduler(purgeUsageUC, cfg.Billing.UsagePurgeInterval(), log),
	}
}

func buildDispatcher(cfg *config.Config, log logger.Interface) notification.Dispatcher {
	if cfg.Email.SMTPHost == "" {
		log.Infow("email not configured, notifications disabled")
		return notification.NewNoopDispatcher()
	}
	return email.NewDispatcher(&cfg.Email, log)
}

func buildRateLimiter(cfg *config.Config, log logger.Interface) ratelimit.RateLimiter {
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warnw("redis unavailable, webhook rate limiting disabled", "error", err)
		return ratelimit.NewNoopRateLimiter()
	}
	return ratelimit.NewRedisRateLimiter(client, "webhook", cfg.Billing.WebhookRatePerMinute, time.Minute)
}
