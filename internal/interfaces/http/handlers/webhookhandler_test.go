package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/repository"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	sharederrors "github.com/pixelmuse/pixelmuse/internal/shared/errors"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

type stubGateway struct {
	webhookData *gateway.WebhookData
	webhookErr  error
}

func (g *stubGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *stubGateway) GetPaymentInfo(ctx context.Context, orderCode string) (*gateway.PaymentInfo, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *stubGateway) CancelCheckout(ctx context.Context, orderCode string) error { return nil }

func (g *stubGateway) VerifyWebhook(rawPayload []byte, signature string) (*gateway.WebhookData, error) {
	if g.webhookErr != nil {
		return nil, g.webhookErr
	}
	return g.webhookData, nil
}

func (g *stubGateway) Name() string { return "payflow" }

var handlerTestDB atomic.Int64

func setupWebhookHandler(t *testing.T, gw *stubGateway) (*gin.Engine, *repository.TransactionRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", handlerTestDB.Add(1))
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

	txRepo := repository.NewTransactionRepository(gormDB)
	uc := billingUsecases.NewProcessWebhookUseCase(
		gw,
		txRepo,
		repository.NewSubscriptionRepository(gormDB),
		repository.NewSubscriptionHistoryRepository(gormDB),
		db.NewTransactionManager(gormDB),
		notification.NewNoopDispatcher(),
		logger.NewLogger(),
	)

	engine := gin.New()
	engine.POST("/webhooks/payflow", NewWebhookHandler(uc, logger.NewLogger()).HandlePayFlow)
	return engine, txRepo
}

func postWebhook(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payflow", strings.NewReader(body))
	req.Header.Set(signatureHeader, "sig")
	engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhookEndpointBadSignatureStillAnswers200(t *testing.T) {
	engine, _ := setupWebhookHandler(t, &stubGateway{
		webhookErr: sharederrors.NewSignatureError("webhook signature mismatch"),
	})

	rec := postWebhook(engine, `{"order_code":"PMX-H1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestWebhookEndpointUnknownOrderCodeStillAnswers200(t *testing.T) {
	engine, _ := setupWebhookHandler(t, &stubGateway{
		webhookData: &gateway.WebhookData{
			OrderCode:  "PMX-UNKNOWN",
			Status:     gateway.PaymentStatusPaid,
			OccurredAt: time.Now().UTC(),
			Raw:        map[string]interface{}{},
		},
	})

	rec := postWebhook(engine, `{"order_code":"PMX-UNKNOWN"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
	assert.Contains(t, rec.Body.String(), `"message":"event not applied"`)
}

func TestWebhookEndpointAppliesFailedPayment(t *testing.T) {
	engine, txRepo := setupWebhookHandler(t, &stubGateway{
		webhookData: &gateway.WebhookData{
			OrderCode:  "PMX-H2",
			Status:     gateway.PaymentStatusFailed,
			OccurredAt: time.Now().UTC(),
			Raw:        map[string]interface{}{"failure_reason": "card declined"},
		},
	})

	tx, err := billing.NewTransaction(
		"PMX-H2", 1, nil,
		vo.NewMoney(999, "USD"),
		vo.TransactionTypeSubscriptionPayment, "payflow", "basic monthly subscription",
	)
	require.NoError(t, err)
	require.NoError(t, txRepo.Create(context.Background(), tx))

	rec := postWebhook(engine, `{"order_code":"PMX-H2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
	assert.Contains(t, rec.Body.String(), `"message":"event applied"`)

	loaded, err := txRepo.GetByOrderCode(context.Background(), "PMX-H2")
	require.NoError(t, err)
	assert.Equal(t, vo.TransactionStatusFailed, loaded.Status())
}
