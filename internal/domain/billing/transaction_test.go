package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
)

func newPendingTransaction(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(
		"PMX-20240301-ABCDEF",
		1,
		nil,
		vo.NewMoney(999, "USD"),
		vo.TransactionTypeSubscriptionPayment,
		"payflow",
		"basic monthly subscription",
	)
	require.NoError(t, err)
	return tx
}

func TestNewTransactionValidation(t *testing.T) {
	_, err := NewTransaction("", 1, nil, vo.NewMoney(999, "USD"), vo.TransactionTypeSubscriptionPayment, "payflow", "")
	assert.Error(t, err)

	_, err = NewTransaction("PMX-1", 0, nil, vo.NewMoney(999, "USD"), vo.TransactionTypeSubscriptionPayment, "payflow", "")
	assert.Error(t, err)

	_, err = NewTransaction("PMX-1", 1, nil, vo.NewMoney(0, "USD"), vo.TransactionTypeSubscriptionPayment, "payflow", "")
	assert.Error(t, err)

	_, err = NewTransaction("PMX-1", 1, nil, vo.NewMoney(999, "USD"), vo.TransactionType("refund2"), "payflow", "")
	assert.Error(t, err)
}

func TestMarkPaid(t *testing.T) {
	tx := newPendingTransaction(t)

	require.NoError(t, tx.MarkPaid("card"))
	assert.Equal(t, vo.TransactionStatusPaid, tx.Status())
	require.NotNil(t, tx.PaidAt())
	require.NotNil(t, tx.PaymentMethod())
	assert.Equal(t, "card", *tx.PaymentMethod())
}

func TestMarkPaidReplayIsNoop(t *testing.T) {
	tx := newPendingTransaction(t)
	require.NoError(t, tx.MarkPaid("card"))
	paidAt := *tx.PaidAt()
	version := tx.Version()

	require.NoError(t, tx.MarkPaid("card"))
	assert.Equal(t, paidAt, *tx.PaidAt())
	assert.Equal(t, version, tx.Version())
}

func TestConflictingTerminalTransitions(t *testing.T) {
	tx := newPendingTransaction(t)
	require.NoError(t, tx.MarkPaid("card"))

	err := tx.MarkCancelled("user cancelled")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingTransition)

	err = tx.MarkFailed("declined")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingTransition)
}

func TestMarkExpiredOnTerminalIsNoop(t *testing.T) {
	tx := newPendingTransaction(t)
	require.NoError(t, tx.MarkPaid("card"))

	// The cleanup sweep may race a webhook; losing the race is not an error.
	require.NoError(t, tx.MarkExpired())
	assert.Equal(t, vo.TransactionStatusPaid, tx.Status())
}

func TestMarkExpiredOnStalePending(t *testing.T) {
	tx := newPendingTransaction(t)
	require.NoError(t, tx.MarkExpired())
	assert.Equal(t, vo.TransactionStatusExpired, tx.Status())
}

func TestIsStalePending(t *testing.T) {
	tx := newPendingTransaction(t)

	assert.True(t, tx.IsStalePending(time.Now().UTC().Add(time.Hour)))
	assert.False(t, tx.IsStalePending(time.Now().UTC().Add(-time.Hour)))

	require.NoError(t, tx.MarkPaid("card"))
	assert.False(t, tx.IsStalePending(time.Now().UTC().Add(time.Hour)))
}

func TestMetadata(t *testing.T) {
	tx := newPendingTransaction(t)

	tx.SetMetadata("tier", "basic")
	assert.Equal(t, "basic", tx.MetadataString("tier"))
	assert.Equal(t, "", tx.MetadataString("missing"))
}

func TestOrderCodeGenerator(t *testing.T) {
	gen := NewOrderCodeGenerator()

	first := gen.Generate("PMX")
	second := gen.Generate("PMX")

	assert.True(t, strings.HasPrefix(first, "PMX"))
	assert.NotEqual(t, first, second)
}
