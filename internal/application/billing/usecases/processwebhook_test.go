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
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// fakeGateway scripts webhook verification results; the HTTP client is not
// exercised in these tests.
type fakeGateway struct {
	webhookData *gateway.WebhookData
	webhookErr  error
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return &gateway.CheckoutSession{ProviderRef: "pf_test", CheckoutURL: "https://pay.example.com/s"}, nil
}

func (g *fakeGateway) GetPaymentInfo(ctx context.Context, orderCode string) (*gateway.PaymentInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *fakeGateway) CancelCheckout(ctx context.Context, orderCode string) error {
	return nil
}

func (g *fakeGateway) VerifyWebhook(rawPayload []byte, signature string) (*gateway.WebhookData, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	return g.webhookData, nil
}

func (g *fakeGateway) Name() string { return "payflow" }

type webhookTestEnv struct {
	txRepo      *repository.TransactionRepository
	subRepo     *repository.SubscriptionRepository
	historyRepo *repository.SubscriptionHistoryRepository
	gw          *fakeGateway
	uc          *ProcessWebhookUseCase
	now         time.Time
}

var webhookTestDB atomic.Int64

func setupWebhookTest(t *testing.T) *webhookTestEnv {
	t.Helper()

	// A named shared-cache DSN keeps every pooled connection on the same
	// in-memory database.
	dsn := fmt.Sprintf("file:webhooktest%d?mode=memory&cache=shared", webhookTestDB.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, gormDB.AutoMigrate(
		&models.TransactionModel{},
		&models.SubscriptionModel{},
		&models.SubscriptionHistoryModel{},
		&models.UsageTrackingModel{},
	))

	env := &webhookTestEnv{
		txRepo:      repository.NewTransactionRepository(gormDB),
		subRepo:     repository.NewSubscriptionRepository(gormDB),
		historyRepo: repository.NewSubscriptionHistoryRepository(gormDB),
		gw:          &fakeGateway{},
		now:         time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	env.uc = NewProcessWebhookUseCase(
		env.gw,
		env.txRepo,
		env.subRepo,
		env.historyRepo,
		db.NewTransactionManager(gormDB),
		notification.NewNoopDispatcher(),
		logger.NewLogger(),
	).WithNow(func() time.Time { return env.now })

	return env
}

func (e *webhookTestEnv) createPendingCheckout(t *testing.T, orderCode string, subID *uint) *billing.Transaction {
	t.Helper()
	txType := billingvo.TransactionTypeSubscriptionPayment
	if subID != nil {
		txType = billingvo.TransactionTypeRenewal
	}
	tx, err := billing.NewTransaction(
		orderCode, 42, subID,
		billingvo.NewMoney(999, "USD"),
		txType, "payflow", "basic monthly subscription",
	)
	require.NoError(t, err)
	tx.SetMetadata("tier", "basic")
	tx.SetMetadata("billing_cycle", "monthly")
	require.NoError(t, e.txRepo.Create(context.Background(), tx))
	return tx
}

func paidEvent(orderCode string) *gateway.WebhookData {
	return &gateway.WebhookData{
		OrderCode:     orderCode,
		ProviderRef:   "pf_123",
		Status:        gateway.PaymentStatusPaid,
		AmountCents:   999,
		Currency:      "USD",
		PaymentMethod: "card",
		BuyerEmail:    "buyer@example.com",
		Raw:           map[string]interface{}{"provider_ref": "pf_123"},
	}
}

func TestProcessWebhookFirstPurchaseCreatesSubscription(t *testing.T) {
	env := setupWebhookTest(t)
	env.createPendingCheckout(t, "PMX-FIRST-1", nil)
	env.gw.webhookData = paidEvent("PMX-FIRST-1")

	result, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{
		RawPayload: []byte(`{}`), Signature: "sig",
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, billingvo.TransactionStatusPaid, result.Status)

	sub, err := env.subRepo.GetActiveByUserID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, subvo.TierBasic, sub.Tier())
	assert.Equal(t, subvo.StatusActive, sub.Status())
	assert.Equal(t, env.now.AddDate(0, 1, 0), sub.EndDate())

	tx, err := env.txRepo.GetByOrderCode(context.Background(), "PMX-FIRST-1")
	require.NoError(t, err)
	require.NotNil(t, tx.SubscriptionID())
	assert.Equal(t, sub.ID(), *tx.SubscriptionID())

	records, _, err := env.historyRepo.ListBySubscriptionID(context.Background(), sub.ID(), 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, subscription.HistoryActionCreated, records[0].Action())
}

func TestProcessWebhookDuplicateDeliveryIsNoop(t *testing.T) {
	env := setupWebhookTest(t)
	env.createPendingCheckout(t, "PMX-DUP-1", nil)
	env.gw.webhookData = paidEvent("PMX-DUP-1")

	first, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "sig"})
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	sub, err := env.subRepo.GetActiveByUserID(context.Background(), 42)
	require.NoError(t, err)
	endAfterFirst := sub.EndDate()

	second, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "sig"})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	sub, err = env.subRepo.GetActiveByUserID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, endAfterFirst, sub.EndDate())
}

func TestProcessWebhookPaidRenewalConfirmsWithoutDoubleExtension(t *testing.T) {
	env := setupWebhookTest(t)

	start := env.now.AddDate(0, -1, 0)
	sub, err := subscription.NewSubscription(42, subvo.TierBasic, subvo.BillingCycleMonthly, 999, "USD", start, true)
	require.NoError(t, err)
	require.NoError(t, env.subRepo.Create(context.Background(), sub))

	// The renewal sweep extended the cycle when it opened the checkout.
	require.NoError(t, sub.Renew(env.now))
	require.NoError(t, env.subRepo.Update(context.Background(), sub))
	endAfterSweep := sub.EndDate()

	subID := sub.ID()
	env.createPendingCheckout(t, "PMX-RENEW-1", &subID)
	env.gw.webhookData = paidEvent("PMX-RENEW-1")

	result, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "sig"})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	reloaded, err := env.subRepo.GetByID(context.Background(), subID)
	require.NoError(t, err)
	assert.Equal(t, endAfterSweep, reloaded.EndDate(), "sweep and webhook together must extend exactly one cycle")

	// The ledger row settles even though the subscription had nothing left
	// to apply; the payment must not be misread as a lost race.
	tx, err := env.txRepo.GetByOrderCode(context.Background(), "PMX-RENEW-1")
	require.NoError(t, err)
	assert.Equal(t, billingvo.TransactionStatusPaid, tx.Status())
}

func TestProcessWebhookFailedRenewalMarksPastDue(t *testing.T) {
	env := setupWebhookTest(t)

	start := env.now.AddDate(0, -1, 0)
	sub, err := subscription.NewSubscription(42, subvo.TierBasic, subvo.BillingCycleMonthly, 999, "USD", start, true)
	require.NoError(t, err)
	require.NoError(t, env.subRepo.Create(context.Background(), sub))

	subID := sub.ID()
	env.createPendingCheckout(t, "PMX-FAIL-1", &subID)
	event := paidEvent("PMX-FAIL-1")
	event.Status = gateway.PaymentStatusFailed
	event.Raw["failure_reason"] = "card declined"
	env.gw.webhookData = event

	result, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, billingvo.TransactionStatusFailed, result.Status)

	reloaded, err := env.subRepo.GetByID(context.Background(), subID)
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusPastDue, reloaded.Status())

	tx, err := env.txRepo.GetByOrderCode(context.Background(), "PMX-FAIL-1")
	require.NoError(t, err)
	assert.Equal(t, billingvo.TransactionStatusFailed, tx.Status())
	require.NotNil(t, tx.FailureReason())
	assert.Equal(t, "card declined", *tx.FailureReason())
}

func TestProcessWebhookBadSignatureRejected(t *testing.T) {
	env := setupWebhookTest(t)
	env.gw.webhookErr = fmt.Errorf("webhook signature mismatch")

	_, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "bad"})
	assert.Error(t, err)
}

func TestProcessWebhookUnknownOrderCode(t *testing.T) {
	env := setupWebhookTest(t)
	env.gw.webhookData = paidEvent("PMX-MISSING")

	_, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "sig"})
	assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
}

func TestProcessWebhookCancelledCheckout(t *testing.T) {
	env := setupWebhookTest(t)
	env.createPendingCheckout(t, "PMX-CXL-1", nil)
	event := paidEvent("PMX-CXL-1")
	event.Status = gateway.PaymentStatusCancelled
	env.gw.webhookData = event

	result, err := env.uc.Execute(context.Background(), ProcessWebhookCommand{RawPayload: []byte(`{}`), Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, billingvo.TransactionStatusCancelled, result.Status)

	// No subscription came into existence.
	_, err = env.subRepo.GetActiveByUserID(context.Background(), 42)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}
