package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
)

func newTestTransaction(t *testing.T, orderCode string, userID uint) *billing.Transaction {
	t.Helper()
	tx, err := billing.NewTransaction(
		orderCode, userID, nil,
		vo.NewMoney(999, "USD"),
		vo.TransactionTypeSubscriptionPayment,
		"payflow",
		"basic monthly subscription",
	)
	require.NoError(t, err)
	return tx
}

func TestTransactionRepositoryCreateAndGet(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	tx := newTestTransaction(t, "PMX-T1", 1)
	tx.SetMetadata("tier", "basic")
	require.NoError(t, repo.Create(ctx, tx))
	assert.NotZero(t, tx.ID())

	loaded, err := repo.GetByOrderCode(ctx, "PMX-T1")
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), loaded.ID())
	assert.Equal(t, vo.TransactionStatusPending, loaded.Status())
	assert.Equal(t, int64(999), loaded.Amount().AmountInCents())
	assert.Equal(t, "basic", loaded.MetadataString("tier"))
}

func TestTransactionRepositoryDuplicateOrderCode(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestTransaction(t, "PMX-DUP", 1)))

	err := repo.Create(ctx, newTestTransaction(t, "PMX-DUP", 2))
	assert.ErrorIs(t, err, billing.ErrDuplicateOrderCode)
}

func TestTransactionRepositoryGetByOrderCodeNotFound(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))

	_, err := repo.GetByOrderCode(context.Background(), "PMX-NOPE")
	assert.ErrorIs(t, err, billing.ErrTransactionNotFound)
}

func TestTransactionRepositoryCompareAndSet(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	tx := newTestTransaction(t, "PMX-CAS", 1)
	require.NoError(t, repo.Create(ctx, tx))

	// Two deliveries load the same pending row.
	first, err := repo.GetByOrderCode(ctx, "PMX-CAS")
	require.NoError(t, err)
	second, err := repo.GetByOrderCode(ctx, "PMX-CAS")
	require.NoError(t, err)

	require.NoError(t, first.MarkPaid("card"))
	require.NoError(t, repo.UpdateStatusChecked(ctx, first, vo.TransactionStatusPending))

	// The loser's guard no longer matches the stored status.
	require.NoError(t, second.MarkCancelled("payer cancelled"))
	err = repo.UpdateStatusChecked(ctx, second, vo.TransactionStatusPending)
	assert.ErrorIs(t, err, billing.ErrConcurrentModification)

	loaded, err := repo.GetByOrderCode(ctx, "PMX-CAS")
	require.NoError(t, err)
	assert.Equal(t, vo.TransactionStatusPaid, loaded.Status())
}

func TestTransactionRepositoryList(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	for i, code := range []string{"PMX-L1", "PMX-L2", "PMX-L3"} {
		userID := uint(1)
		if i == 2 {
			userID = 2
		}
		require.NoError(t, repo.Create(ctx, newTestTransaction(t, code, userID)))
	}

	userID := uint(1)
	txs, total, err := repo.List(ctx, billing.TransactionFilter{UserID: &userID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, txs, 2)

	status := vo.TransactionStatusPaid
	txs, total, err = repo.List(ctx, billing.TransactionFilter{Status: &status, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, txs)
}

func TestTransactionRepositoryExpirePendingBefore(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	stale := newTestTransaction(t, "PMX-OLD", 1)
	require.NoError(t, repo.Create(ctx, stale))

	paid := newTestTransaction(t, "PMX-KEEP", 1)
	require.NoError(t, repo.Create(ctx, paid))
	require.NoError(t, paid.MarkPaid("card"))
	require.NoError(t, repo.UpdateStatusChecked(ctx, paid, vo.TransactionStatusPending))

	count, err := repo.ExpirePendingBefore(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	loaded, err := repo.GetByOrderCode(ctx, "PMX-OLD")
	require.NoError(t, err)
	assert.Equal(t, vo.TransactionStatusExpired, loaded.Status())

	loaded, err = repo.GetByOrderCode(ctx, "PMX-KEEP")
	require.NoError(t, err)
	assert.Equal(t, vo.TransactionStatusPaid, loaded.Status())
}

func TestTransactionRepositoryRevenueAggregates(t *testing.T) {
	repo := NewTransactionRepository(setupTestDB(t))
	ctx := context.Background()

	paid := newTestTransaction(t, "PMX-R1", 1)
	require.NoError(t, repo.Create(ctx, paid))
	require.NoError(t, paid.MarkPaid("card"))
	require.NoError(t, repo.UpdateStatusChecked(ctx, paid, vo.TransactionStatusPending))

	require.NoError(t, repo.Create(ctx, newTestTransaction(t, "PMX-R2", 1)))

	byStatus, err := repo.RevenueByStatus(ctx)
	require.NoError(t, err)
	statusTotals := make(map[string]int64, len(byStatus))
	for _, row := range byStatus {
		statusTotals[row.Status] = row.AmountCents
	}
	assert.Equal(t, int64(999), statusTotals["paid"])
	assert.Equal(t, int64(999), statusTotals["pending"])

	byMonth, err := repo.RevenueByMonth(ctx, 12)
	require.NoError(t, err)
	require.Len(t, byMonth, 1)
	assert.Equal(t, int64(999), byMonth[0].AmountCents)
}
