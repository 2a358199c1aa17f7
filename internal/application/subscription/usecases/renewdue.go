package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

const (
	renewalBatchSize = 200
	orderCodePrefix  = "PMX"
)

// RenewDueResult summarizes one renewal sweep.
type RenewDueResult struct {
	Processed int
	Renewed   int
	Expired   int
	PastDue   int
	Failed    int
}

// RenewDueUseCase drives the renewal sweep: for every subscription whose
// next billing date has passed, either open a renewal checkout (auto-renew
// on), or let it lapse (auto-renew off). One subscription failing never
// stops the sweep; errors are counted and logged per item.
type RenewDueUseCase struct {
	subRepo     subscription.Repository
	txRepo      billing.TransactionRepository
	historyRepo subscription.HistoryRepository
	catalog     *subscription.Catalog
	gw          gateway.PaymentGateway
	orderCodes  billing.OrderCodeGenerator
	dispatcher  notification.Dispatcher
	returnURL   string
	webhookURL  string
	pendingTTL  time.Duration
	logger      logger.Interface
	now         func() time.Time
}

func NewRenewDueUseCase(
	subRepo subscription.Repository,
	txRepo billing.TransactionRepository,
	historyRepo subscription.HistoryRepository,
	catalog *subscription.Catalog,
	gw gateway.PaymentGateway,
	orderCodes billing.OrderCodeGenerator,
	dispatcher notification.Dispatcher,
	returnURL string,
	webhookURL string,
	pendingTTL time.Duration,
	logger logger.Interface,
) *RenewDueUseCase {
	return &RenewDueUseCase{
		subRepo:     subRepo,
		txRepo:      txRepo,
		historyRepo: historyRepo,
		catalog:     catalog,
		gw:          gw,
		orderCodes:  orderCodes,
		dispatcher:  dispatcher,
		returnURL:   returnURL,
		webhookURL:  webhookURL,
		pendingTTL:  pendingTTL,
		logger:      logger,
		now:         biztime.NowUTC,
	}
}

// WithNow overrides the clock. Only for tests.
func (uc *RenewDueUseCase) WithNow(now func() time.Time) *RenewDueUseCase {
	uc.now = now
	return uc
}

func (uc *RenewDueUseCase) Execute(ctx context.Context) (*RenewDueResult, error) {
	asOf := uc.now()

	due, err := uc.subRepo.FindRenewalDue(ctx, asOf, renewalBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}

	result := &RenewDueResult{}
	if len(due) == 0 {
		return result, nil
	}

	uc.logger.Infow("renewal sweep started", "due_count", len(due), "as_of", asOf)

	for _, sub := range due {
		result.Processed++

		if !sub.AutoRenew() {
			if err := uc.expire(ctx, sub); err != nil {
				result.Failed++
				uc.logger.Errorw("failed to expire lapsed subscription",
					"subscription_id", sub.ID(),
					"error", err,
				)
				continue
			}
			result.Expired++
			continue
		}

		outcome, err := uc.renew(ctx, sub, asOf)
		if err != nil {
			result.Failed++
			uc.logger.Errorw("failed to process due subscription",
				"subscription_id", sub.ID(),
				"error", err,
			)
			continue
		}
		switch outcome {
		case subscription.HistoryActionRenewed:
			result.Renewed++
		case subscription.HistoryActionPastDue:
			result.PastDue++
		}
	}

	uc.logger.Infow("renewal sweep finished",
		"processed", result.Processed,
		"renewed", result.Renewed,
		"expired", result.Expired,
		"past_due", result.PastDue,
		"failed", result.Failed,
	)

	return result, nil
}

// renew opens a renewal checkout and, for an active subscription,
// optimistically extends the billing dates. The paid webhook for the same
// cycle then finds nothing due and no-ops, so task plus webhook extend by
// exactly one cycle. If the gateway call fails the subscription goes past
// due instead; from then on the dates only move when a payment lands.
func (uc *RenewDueUseCase) renew(ctx context.Context, sub *subscription.Subscription, asOf time.Time) (subscription.HistoryAction, error) {
	// Skip when a renewal checkout from an earlier tick is still pending.
	if pending, err := uc.txRepo.GetPendingBySubscriptionID(ctx, sub.ID()); err == nil && pending != nil {
		uc.logger.Debugw("renewal checkout still pending, skipping",
			"subscription_id", sub.ID(),
			"order_code", pending.OrderCode(),
		)
		return subscription.HistoryActionRenewed, nil
	}

	plan, err := uc.catalog.Resolve(sub.Tier())
	if err != nil {
		return "", err
	}
	amount := billingvo.NewMoney(plan.PriceFor(sub.BillingCycle()), sub.Currency())
	orderCode := uc.orderCodes.Generate(orderCodePrefix)

	subID := sub.ID()
	tx, err := billing.NewTransaction(
		orderCode,
		sub.UserID(),
		&subID,
		amount,
		billingvo.TransactionTypeRenewal,
		uc.gw.Name(),
		fmt.Sprintf("%s plan renewal, %s billing", sub.Tier(), sub.BillingCycle()),
	)
	if err != nil {
		return "", err
	}
	tx.SetMetadata("tier", sub.Tier().String())
	tx.SetMetadata("billing_cycle", sub.BillingCycle().String())

	if err := uc.txRepo.Create(ctx, tx); err != nil {
		return "", fmt.Errorf("failed to create renewal transaction: %w", err)
	}

	_, gwErr := uc.gw.CreateCheckout(ctx, gateway.CheckoutRequest{
		OrderCode:   orderCode,
		AmountCents: amount.AmountInCents(),
		Currency:    amount.Currency(),
		Description: tx.Description(),
		ReturnURL:   uc.returnURL,
		WebhookURL:  uc.webhookURL,
		ExpiresIn:   uc.pendingTTL,
	})
	if gwErr != nil {
		if markErr := tx.MarkFailed("gateway checkout creation failed"); markErr == nil {
			if updErr := uc.txRepo.UpdateStatusChecked(ctx, tx, billingvo.TransactionStatusPending); updErr != nil {
				uc.logger.Errorw("failed to mark renewal transaction failed",
					"order_code", orderCode,
					"error", updErr,
				)
			}
		}
		return uc.markPastDue(ctx, sub, gwErr)
	}

	// Only an active subscription earns the optimistic extension. A
	// past-due one regains service when the payment lands, not when a
	// checkout link is minted; ConfirmPayment does the recovery.
	if sub.Status() != subvo.StatusActive {
		uc.logger.Infow("renewal checkout reissued for past-due subscription",
			"subscription_id", sub.ID(),
			"order_code", orderCode,
		)
		return subscription.HistoryActionPastDue, nil
	}

	if err := sub.Renew(asOf); err != nil {
		return "", err
	}
	if err := uc.subRepo.Update(ctx, sub); err != nil {
		return "", err
	}

	uc.appendHistory(ctx, sub, subscription.HistoryActionRenewed, amount.AmountInCents(), nil)
	uc.dispatch(ctx, sub, notification.EventSubscriptionRenewed, "")

	uc.logger.Infow("renewal checkout created",
		"subscription_id", sub.ID(),
		"order_code", orderCode,
		"next_billing_date", sub.NextBillingDate(),
	)

	return subscription.HistoryActionRenewed, nil
}

func (uc *RenewDueUseCase) markPastDue(ctx context.Context, sub *subscription.Subscription, cause error) (subscription.HistoryAction, error) {
	reason := cause.Error()

	// A repeat failure on an already past-due subscription changes nothing;
	// writing the unchanged aggregate would trip the version guard.
	loadedVersion := sub.Version()
	if err := sub.MarkPastDue(); err != nil {
		return "", err
	}
	if sub.Version() != loadedVersion {
		if err := uc.subRepo.Update(ctx, sub); err != nil {
			return "", err
		}
		uc.appendHistory(ctx, sub, subscription.HistoryActionPastDue, 0, &reason)
		uc.dispatch(ctx, sub, notification.EventSubscriptionPastDue, reason)
	}

	uc.logger.Warnw("subscription marked past due",
		"subscription_id", sub.ID(),
		"cause", reason,
	)

	return subscription.HistoryActionPastDue, nil
}

func (uc *RenewDueUseCase) expire(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.MarkAsExpired(); err != nil {
		return err
	}
	if err := uc.subRepo.Update(ctx, sub); err != nil {
		return err
	}

	uc.appendHistory(ctx, sub, subscription.HistoryActionExpired, 0, nil)
	uc.dispatch(ctx, sub, notification.EventSubscriptionExpired, "auto-renew disabled")

	uc.logger.Infow("subscription expired at period end", "subscription_id", sub.ID())
	return nil
}

func (uc *RenewDueUseCase) appendHistory(ctx context.Context, sub *subscription.Subscription, action subscription.HistoryAction, amountCents int64, reason *string) {
	tier := sub.Tier()
	h, err := subscription.NewHistory(sub.ID(), sub.UserID(), action, &tier, &tier, amountCents, reason, uc.now())
	if err != nil {
		uc.logger.Errorw("failed to build history record", "subscription_id", sub.ID(), "error", err)
		return
	}
	if err := uc.historyRepo.Append(ctx, h); err != nil {
		uc.logger.Errorw("failed to append history record", "subscription_id", sub.ID(), "error", err)
	}
}

func (uc *RenewDueUseCase) dispatch(ctx context.Context, sub *subscription.Subscription, eventType notification.EventType, reason string) {
	event := notification.Event{
		Type:           eventType,
		UserID:         sub.UserID(),
		SubscriptionID: sub.ID(),
		Tier:           sub.Tier().String(),
		Reason:         reason,
	}
	if err := uc.dispatcher.Dispatch(ctx, event); err != nil {
		uc.logger.Warnw("notification dispatch failed",
			"event_type", string(eventType),
			"subscription_id", sub.ID(),
			"error", err,
		)
	}
}
