package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// CancelSubscriptionCommand cancels a user's subscription. With
// AtPeriodEnd set the subscription stays usable until the paid period runs
// out; otherwise it terminates immediately.
type CancelSubscriptionCommand struct {
	UserID      uint
	Reason      string
	AtPeriodEnd bool
}

// CancelSubscriptionUseCase handles both cancellation modes and cleans up
// any pending renewal checkout so the payer is not charged for a
// subscription they just gave up.
type CancelSubscriptionUseCase struct {
	subRepo     subscription.Repository
	txRepo      billing.TransactionRepository
	historyRepo subscription.HistoryRepository
	gw          gateway.PaymentGateway
	dispatcher  notification.Dispatcher
	logger      logger.Interface
	now         func() time.Time
}

func NewCancelSubscriptionUseCase(
	subRepo subscription.Repository,
	txRepo billing.TransactionRepository,
	historyRepo subscription.HistoryRepository,
	gw gateway.PaymentGateway,
	dispatcher notification.Dispatcher,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		subRepo:     subRepo,
		txRepo:      txRepo,
		historyRepo: historyRepo,
		gw:          gw,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         biztime.NowUTC,
	}
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*subscription.Subscription, error) {
	sub, err := uc.subRepo.GetActiveByUserID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	reason := cmd.Reason
	if reason == "" {
		reason = "cancelled by user"
	}

	if cmd.AtPeriodEnd {
		if err := sub.ScheduleCancellation(reason); err != nil {
			return nil, err
		}
		if err := uc.subRepo.Update(ctx, sub); err != nil {
			return nil, err
		}

		scheduledReason := fmt.Sprintf("scheduled at period end: %s", reason)
		uc.appendHistory(ctx, sub, subscription.HistoryActionCancelled, &scheduledReason)
		uc.notify(ctx, sub, scheduledReason)

		uc.logger.Infow("cancellation scheduled at period end",
			"subscription_id", sub.ID(),
			"end_date", sub.EndDate(),
		)
		return sub, nil
	}

	if err := sub.Cancel(reason); err != nil {
		return nil, err
	}
	if err := uc.subRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	uc.cancelPendingCheckout(ctx, sub.ID())

	uc.appendHistory(ctx, sub, subscription.HistoryActionCancelled, &reason)
	uc.notify(ctx, sub, reason)

	uc.logger.Infow("subscription cancelled",
		"subscription_id", sub.ID(),
		"user_id", sub.UserID(),
		"reason", reason,
	)

	return sub, nil
}

func (uc *CancelSubscriptionUseCase) appendHistory(ctx context.Context, sub *subscription.Subscription, action subscription.HistoryAction, reason *string) {
	tier := sub.Tier()
	h, err := subscription.NewHistory(sub.ID(), sub.UserID(), action, &tier, nil, 0, reason, uc.now())
	if err != nil {
		uc.logger.Errorw("failed to build history record", "subscription_id", sub.ID(), "error", err)
		return
	}
	if err := uc.historyRepo.Append(ctx, h); err != nil {
		uc.logger.Errorw("failed to append history record", "subscription_id", sub.ID(), "error", err)
	}
}

func (uc *CancelSubscriptionUseCase) notify(ctx context.Context, sub *subscription.Subscription, reason string) {
	if err := uc.dispatcher.Dispatch(ctx, notification.Event{
		Type:           notification.EventSubscriptionCancelled,
		UserID:         sub.UserID(),
		SubscriptionID: sub.ID(),
		Tier:           sub.Tier().String(),
		Reason:         reason,
	}); err != nil {
		uc.logger.Warnw("notification dispatch failed",
			"subscription_id", sub.ID(),
			"error", err,
		)
	}
}

// cancelPendingCheckout voids an in-flight renewal checkout, provider side
// first. Failures are logged; the ledger cleanup task sweeps up leftovers.
func (uc *CancelSubscriptionUseCase) cancelPendingCheckout(ctx context.Context, subscriptionID uint) {
	pending, err := uc.txRepo.GetPendingBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		if !errors.Is(err, billing.ErrTransactionNotFound) {
			uc.logger.Warnw("failed to look up pending checkout",
				"subscription_id", subscriptionID,
				"error", err,
			)
		}
		return
	}

	if err := uc.gw.CancelCheckout(ctx, pending.OrderCode()); err != nil {
		uc.logger.Warnw("failed to cancel provider checkout session",
			"order_code", pending.OrderCode(),
			"error", err,
		)
	}

	loadedStatus := pending.Status()
	if err := pending.MarkCancelled("subscription cancelled"); err != nil {
		uc.logger.Warnw("failed to mark pending checkout cancelled",
			"order_code", pending.OrderCode(),
			"error", err,
		)
		return
	}
	if err := uc.txRepo.UpdateStatusChecked(ctx, pending, loadedStatus); err != nil {
		uc.logger.Warnw(fmt.Sprintf("failed to persist cancelled checkout %s", pending.OrderCode()),
			"error", err,
		)
	}
}
