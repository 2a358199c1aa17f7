package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/repository"
	"github.com/pixelmuse/pixelmuse/internal/shared/config"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

type fakeGateway struct {
	checkoutErr   error
	checkoutCalls int
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	g.checkoutCalls++
	if g.checkoutErr != nil {
		return nil, g.checkoutErr
	}
	return &gateway.CheckoutSession{ProviderRef: "pf_test", CheckoutURL: "https://pay.example.com/s"}, nil
}

func (g *fakeGateway) GetPaymentInfo(ctx context.Context, orderCode string) (*gateway.PaymentInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *fakeGateway) CancelCheckout(ctx context.Context, orderCode string) error { return nil }

func (g *fakeGateway) VerifyWebhook(rawPayload []byte, signature string) (*gateway.WebhookData, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *fakeGateway) Name() string { return "payflow" }

type renewTestEnv struct {
	subRepo     *repository.SubscriptionRepository
	txRepo      *repository.TransactionRepository
	historyRepo *repository.SubscriptionHistoryRepository
	gw          *fakeGateway
	uc          *RenewDueUseCase
	now         time.Time
}

var renewTestDB atomic.Int64

func setupRenewTest(t *testing.T) *renewTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:renewtest%d?mode=memory&cache=shared", renewTestDB.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, gormDB.AutoMigrate(
		&models.TransactionModel{},
		&models.SubscriptionModel{},
		&models.SubscriptionHistoryModel{},
	))

	catalog, err := subscription.NewCatalog(map[string]config.PlanConfig{
		"free":    {DailyGenerationLimit: 10, MonthlyGenerationLimit: 100},
		"basic":   {DailyGenerationLimit: 100, MonthlyGenerationLimit: 1500, MonthlyPriceCents: 999, YearlyPriceCents: 9990},
		"premium": {DailyGenerationLimit: -1, MonthlyGenerationLimit: 10000, MonthlyPriceCents: 2999, YearlyPriceCents: 29990},
	})
	require.NoError(t, err)

	env := &renewTestEnv{
		subRepo:     repository.NewSubscriptionRepository(gormDB),
		txRepo:      repository.NewTransactionRepository(gormDB),
		historyRepo: repository.NewSubscriptionHistoryRepository(gormDB),
		gw:          &fakeGateway{},
		now:         time.Date(2024, time.March, 10, 3, 0, 0, 0, time.UTC),
	}
	env.uc = NewRenewDueUseCase(
		env.subRepo, env.txRepo, env.historyRepo, catalog, env.gw,
		billing.NewOrderCodeGenerator(), notification.NewNoopDispatcher(),
		"https://app.example.com/return", "https://app.example.com/webhook",
		24*time.Hour, logger.NewLogger(),
	).WithNow(func() time.Time { return env.now })

	return env
}

func (e *renewTestEnv) createSubscription(t *testing.T, userID uint, start time.Time, autoRenew bool) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.NewSubscription(userID, subvo.TierBasic, subvo.BillingCycleMonthly, 999, "USD", start, autoRenew)
	require.NoError(t, err)
	require.NoError(t, e.subRepo.Create(context.Background(), sub))
	return sub
}

func TestRenewDueExtendsExactlyOneCycle(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, -1, -2), true)
	originalNext := sub.NextBillingDate()

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Renewed)
	assert.Equal(t, 1, env.gw.checkoutCalls)

	reloaded, err := env.subRepo.GetByID(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.Equal(t, originalNext.AddDate(0, 1, 0), reloaded.NextBillingDate())

	// The paid webhook for this cycle finds nothing due and must not
	// extend a second time.
	endAfterSweep := reloaded.EndDate()
	require.NoError(t, reloaded.ConfirmPayment(env.now))
	assert.Equal(t, endAfterSweep, reloaded.EndDate())
}

func TestRenewDueWithAutoRenewOffExpires(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, -1, -2), false)

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 0, env.gw.checkoutCalls)

	reloaded, err := env.subRepo.GetByID(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusExpired, reloaded.Status())
}

func TestRenewDueGatewayFailureMarksPastDue(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, -1, -2), true)
	env.gw.checkoutErr = fmt.Errorf("provider unavailable")

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PastDue)
	assert.Equal(t, 0, result.Renewed)

	reloaded, err := env.subRepo.GetByID(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusPastDue, reloaded.Status())
	// Dates were not advanced; the next sweep retries.
	assert.Equal(t, sub.NextBillingDate(), reloaded.NextBillingDate())

	// The orphaned checkout transaction is failed, not left pending.
	pending, err := env.txRepo.GetPendingBySubscriptionID(context.Background(), sub.ID())
	assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
	assert.Nil(t, pending)
}

func TestRenewDuePastDueGetsCheckoutWithoutExtension(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, -1, -2), true)
	require.NoError(t, sub.MarkPastDue())
	require.NoError(t, env.subRepo.Update(context.Background(), sub))
	originalNext := sub.NextBillingDate()
	originalEnd := sub.EndDate()

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PastDue)
	assert.Equal(t, 0, result.Renewed)
	assert.Equal(t, 1, env.gw.checkoutCalls, "a fresh checkout is reissued")

	// Service does not come back for a minted payment link; only a paid
	// webhook moves the dates and recovers the status.
	reloaded, err := env.subRepo.GetByID(context.Background(), sub.ID())
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusPastDue, reloaded.Status())
	assert.Equal(t, originalNext, reloaded.NextBillingDate())
	assert.Equal(t, originalEnd, reloaded.EndDate())

	require.NoError(t, reloaded.ConfirmPayment(env.now))
	require.NoError(t, env.subRepo.Update(context.Background(), reloaded))
	assert.Equal(t, subvo.StatusActive, reloaded.Status())
	assert.Equal(t, originalEnd.AddDate(0, 1, 0), reloaded.EndDate())
}

func TestRenewDueSkipsWhenCheckoutStillPending(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, -1, -2), true)

	subID := sub.ID()
	tx, err := billing.NewTransaction(
		"PMX-PENDING-1", sub.UserID(), &subID,
		billingvo.NewMoney(999, "USD"),
		billingvo.TransactionTypeRenewal, "payflow", "basic plan renewal",
	)
	require.NoError(t, err)
	require.NoError(t, env.txRepo.Create(context.Background(), tx))

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Renewed)
	assert.Equal(t, 0, env.gw.checkoutCalls, "no second checkout while one is pending")
}

func TestRenewDueFailureIsolation(t *testing.T) {
	env := setupRenewTest(t)
	healthy := env.createSubscription(t, 1, env.now.AddDate(0, -1, -2), true)
	lapsed := env.createSubscription(t, 2, env.now.AddDate(0, -1, -2), false)

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Renewed)
	assert.Equal(t, 1, result.Expired)

	reloaded, err := env.subRepo.GetByID(context.Background(), healthy.ID())
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusActive, reloaded.Status())

	reloaded, err = env.subRepo.GetByID(context.Background(), lapsed.ID())
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusExpired, reloaded.Status())
}

func TestRenewDueNothingDue(t *testing.T) {
	env := setupRenewTest(t)
	env.createSubscription(t, 1, env.now, true)

	result, err := env.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}
