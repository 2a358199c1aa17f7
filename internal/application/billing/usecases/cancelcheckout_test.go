package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

func newCancelCheckoutUseCase(env *webhookTestEnv) *CancelCheckoutUseCase {
	return NewCancelCheckoutUseCase(env.txRepo, env.gw, logger.NewLogger())
}

func TestCancelCheckoutPendingSucceeds(t *testing.T) {
	env := setupWebhookTest(t)
	env.createPendingCheckout(t, "PMX-CC-1", nil)

	err := newCancelCheckoutUseCase(env).Execute(context.Background(), CancelCheckoutCommand{
		OrderCode: "PMX-CC-1",
		UserID:    42,
	})
	require.NoError(t, err)

	loaded, err := env.txRepo.GetByOrderCode(context.Background(), "PMX-CC-1")
	require.NoError(t, err)
	assert.Equal(t, billingvo.TransactionStatusCancelled, loaded.Status())
}

func TestCancelCheckoutPaidReportsConflict(t *testing.T) {
	env := setupWebhookTest(t)
	tx := env.createPendingCheckout(t, "PMX-CC-2", nil)
	require.NoError(t, tx.MarkPaid("card"))
	require.NoError(t, env.txRepo.UpdateStatusChecked(context.Background(), tx, billingvo.TransactionStatusPending))

	err := newCancelCheckoutUseCase(env).Execute(context.Background(), CancelCheckoutCommand{
		OrderCode: "PMX-CC-2",
		UserID:    42,
	})
	assert.ErrorIs(t, err, billing.ErrConflictingTransition)

	loaded, err := env.txRepo.GetByOrderCode(context.Background(), "PMX-CC-2")
	require.NoError(t, err)
	assert.Equal(t, billingvo.TransactionStatusPaid, loaded.Status())
}

func TestCancelCheckoutAlreadyCancelledIsNoop(t *testing.T) {
	env := setupWebhookTest(t)
	tx := env.createPendingCheckout(t, "PMX-CC-3", nil)
	require.NoError(t, tx.MarkCancelled("changed my mind"))
	require.NoError(t, env.txRepo.UpdateStatusChecked(context.Background(), tx, billingvo.TransactionStatusPending))

	err := newCancelCheckoutUseCase(env).Execute(context.Background(), CancelCheckoutCommand{
		OrderCode: "PMX-CC-3",
		UserID:    42,
	})
	assert.NoError(t, err)
}

func TestCancelCheckoutWrongUserLooksLikeNotFound(t *testing.T) {
	env := setupWebhookTest(t)
	env.createPendingCheckout(t, "PMX-CC-4", nil)

	err := newCancelCheckoutUseCase(env).Execute(context.Background(), CancelCheckoutCommand{
		OrderCode: "PMX-CC-4",
		UserID:    7,
	})
	assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
}
