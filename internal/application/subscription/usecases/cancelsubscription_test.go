package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

func newCancelSubscriptionUseCase(env *renewTestEnv) *CancelSubscriptionUseCase {
	return NewCancelSubscriptionUseCase(
		env.subRepo, env.txRepo, env.historyRepo, env.gw,
		notification.NewNoopDispatcher(), logger.NewLogger(),
	)
}

func TestCancelSubscriptionImmediate(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, 0, -5), true)

	updated, err := newCancelSubscriptionUseCase(env).Execute(context.Background(), CancelSubscriptionCommand{
		UserID: 1,
		Reason: "too expensive",
	})
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusCancelled, updated.Status())
	require.NotNil(t, updated.CancellationReason())
	assert.Equal(t, "too expensive", *updated.CancellationReason())

	records, total, err := env.historyRepo.ListBySubscriptionID(context.Background(), sub.ID(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, subscription.HistoryActionCancelled, records[0].Action())
}

func TestCancelSubscriptionAtPeriodEndKeepsServiceAndLeavesTrail(t *testing.T) {
	env := setupRenewTest(t)
	sub := env.createSubscription(t, 1, env.now.AddDate(0, 0, -5), true)

	updated, err := newCancelSubscriptionUseCase(env).Execute(context.Background(), CancelSubscriptionCommand{
		UserID:      1,
		Reason:      "switching plans next month",
		AtPeriodEnd: true,
	})
	require.NoError(t, err)
	assert.Equal(t, subvo.StatusActive, updated.Status())
	assert.False(t, updated.AutoRenew())
	assert.Equal(t, sub.EndDate(), updated.EndDate())

	// The scheduled intent is auditable, same as an immediate cancel.
	records, total, err := env.historyRepo.ListBySubscriptionID(context.Background(), sub.ID(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, subscription.HistoryActionCancelled, records[0].Action())
	require.NotNil(t, records[0].Reason())
	assert.Contains(t, *records[0].Reason(), "scheduled at period end")
}
