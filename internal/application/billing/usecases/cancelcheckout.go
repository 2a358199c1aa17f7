package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// CancelCheckoutCommand aborts a checkout the user started but no longer
// wants. Only the transaction's owner may cancel it.
type CancelCheckoutCommand struct {
	OrderCode string
	UserID    uint
}

// CancelCheckoutUseCase cancels a pending checkout on both sides: the
// provider session first, then the ledger row. A webhook racing the cancel
// wins the compare-and-set and the cancel reports the conflict.
type CancelCheckoutUseCase struct {
	txRepo billing.TransactionRepository
	gw     gateway.PaymentGateway
	logger logger.Interface
}

func NewCancelCheckoutUseCase(
	txRepo billing.TransactionRepository,
	gw gateway.PaymentGateway,
	logger logger.Interface,
) *CancelCheckoutUseCase {
	return &CancelCheckoutUseCase{txRepo: txRepo, gw: gw, logger: logger}
}

func (uc *CancelCheckoutUseCase) Execute(ctx context.Context, cmd CancelCheckoutCommand) error {
	tx, err := uc.txRepo.GetByOrderCode(ctx, cmd.OrderCode)
	if err != nil {
		return err
	}
	if tx.UserID() != cmd.UserID {
		return billing.ErrTransactionNotFound
	}
	if tx.Status() == billingvo.TransactionStatusCancelled {
		return nil
	}
	if !tx.Status().IsPending() {
		return billing.ErrTerminalConflict(tx.OrderCode(), tx.Status().String(), billingvo.TransactionStatusCancelled.String())
	}

	if err := uc.gw.CancelCheckout(ctx, cmd.OrderCode); err != nil {
		// The provider session dies on its own once it expires; the local
		// cancel still proceeds.
		uc.logger.Warnw("failed to cancel provider checkout session",
			"order_code", cmd.OrderCode,
			"error", err,
		)
	}

	loadedStatus := tx.Status()
	if err := tx.MarkCancelled("cancelled by user"); err != nil {
		return err
	}
	if err := uc.txRepo.UpdateStatusChecked(ctx, tx, loadedStatus); err != nil {
		if errors.Is(err, billing.ErrConcurrentModification) {
			return fmt.Errorf("checkout %s settled concurrently: %w", cmd.OrderCode, err)
		}
		return err
	}

	uc.logger.Infow("checkout cancelled by user", "order_code", cmd.OrderCode, "user_id", cmd.UserID)
	return nil
}
