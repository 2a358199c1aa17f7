package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	"github.com/pixelmuse/pixelmuse/internal/shared/goroutine"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// ProcessWebhookCommand carries one raw provider callback.
type ProcessWebhookCommand struct {
	RawPayload []byte
	Signature  string
}

// ProcessWebhookResult reports what the webhook did to the ledger.
type ProcessWebhookResult struct {
	OrderCode string
	Status    billingvo.TransactionStatus
	// Duplicate is true when the event had already been applied and this
	// delivery changed nothing.
	Duplicate bool
}

// ProcessWebhookUseCase applies a verified provider callback to the ledger
// and the subscription it pays for. The ledger write is a compare-and-set on
// the transaction's loaded status, so two concurrent deliveries of the same
// event cannot both apply: the loser either sees a terminal transaction and
// reports a duplicate, or retries against the new state.
type ProcessWebhookUseCase struct {
	gw          gateway.PaymentGateway
	txRepo      billing.TransactionRepository
	subRepo     subscription.Repository
	historyRepo subscription.HistoryRepository
	txManager   *db.TransactionManager
	dispatcher  notification.Dispatcher
	logger      logger.Interface
	now         func() time.Time
}

func NewProcessWebhookUseCase(
	gw gateway.PaymentGateway,
	txRepo billing.TransactionRepository,
	subRepo subscription.Repository,
	historyRepo subscription.HistoryRepository,
	txManager *db.TransactionManager,
	dispatcher notification.Dispatcher,
	logger logger.Interface,
) *ProcessWebhookUseCase {
	return &ProcessWebhookUseCase{
		gw:          gw,
		txRepo:      txRepo,
		subRepo:     subRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         biztime.NowUTC,
	}
}

// WithNow overrides the clock. Only for tests.
func (uc *ProcessWebhookUseCase) WithNow(now func() time.Time) *ProcessWebhookUseCase {
	uc.now = now
	return uc
}

func (uc *ProcessWebhookUseCase) Execute(ctx context.Context, cmd ProcessWebhookCommand) (*ProcessWebhookResult, error) {
	event, err := uc.gw.VerifyWebhook(cmd.RawPayload, cmd.Signature)
	if err != nil {
		return nil, err
	}

	tx, err := uc.txRepo.GetByOrderCode(ctx, event.OrderCode)
	if err != nil {
		if errors.Is(err, billing.ErrTransactionNotFound) {
			uc.logger.Warnw("webhook for unknown order code",
				"order_code", event.OrderCode,
				"provider_status", string(event.Status),
			)
		}
		return nil, err
	}

	switch event.Status {
	case gateway.PaymentStatusPaid:
		return uc.applyPaid(ctx, tx, event)
	case gateway.PaymentStatusCancelled:
		return uc.applyCancelled(ctx, tx, event)
	case gateway.PaymentStatusFailed:
		return uc.applyFailed(ctx, tx, event)
	case gateway.PaymentStatusPending:
		// Provider-side progress updates carry no state we track.
		return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: tx.Status(), Duplicate: true}, nil
	default:
		return nil, fmt.Errorf("unhandled payment status %q for order %s", event.Status, event.OrderCode)
	}
}

func (uc *ProcessWebhookUseCase) applyPaid(ctx context.Context, tx *billing.Transaction, event *gateway.WebhookData) (*ProcessWebhookResult, error) {
	if tx.Status() == billingvo.TransactionStatusPaid {
		uc.logger.Infow("duplicate paid webhook ignored", "order_code", tx.OrderCode())
		return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: tx.Status(), Duplicate: true}, nil
	}

	loadedStatus := tx.Status()
	if err := tx.MarkPaid(event.PaymentMethod); err != nil {
		return nil, err
	}
	if event.BuyerEmail != "" {
		tx.SetBuyerEmail(event.BuyerEmail)
	}
	for k, v := range event.Raw {
		tx.SetMetadata("provider_"+k, v)
	}

	var sub *subscription.Subscription
	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.txRepo.UpdateStatusChecked(txCtx, tx, loadedStatus); err != nil {
			return err
		}

		var err error
		sub, err = uc.settleSubscription(txCtx, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, billing.ErrConcurrentModification) {
			// A concurrent delivery won the compare-and-set.
			uc.logger.Infow("concurrent webhook delivery already applied", "order_code", tx.OrderCode())
			return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: billingvo.TransactionStatusPaid, Duplicate: true}, nil
		}
		return nil, err
	}

	uc.notify(tx, sub, notification.EventPaymentSucceeded, "")

	uc.logger.Infow("payment confirmed",
		"order_code", tx.OrderCode(),
		"user_id", tx.UserID(),
		"amount_cents", tx.Amount().AmountInCents(),
	)

	return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: billingvo.TransactionStatusPaid}, nil
}

// settleSubscription runs inside the ledger transaction: it either renews
// the subscription the payment belongs to or, for a first purchase, creates
// the subscription the checkout promised.
func (uc *ProcessWebhookUseCase) settleSubscription(ctx context.Context, tx *billing.Transaction) (*subscription.Subscription, error) {
	asOf := uc.now()

	if subID := tx.SubscriptionID(); subID != nil {
		sub, err := uc.subRepo.GetByID(ctx, *subID)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscription %d: %w", *subID, err)
		}

		wasPastDue := sub.Status() == subvo.StatusPastDue
		loadedVersion := sub.Version()
		if err := sub.ConfirmPayment(asOf); err != nil {
			return nil, err
		}
		if sub.Version() == loadedVersion {
			// The sweep already advanced this cycle; the ledger row is the
			// only thing left to settle. Writing the unchanged aggregate
			// would trip the version guard and roll the payment back.
			return sub, nil
		}
		if err := uc.subRepo.Update(ctx, sub); err != nil {
			return nil, err
		}

		action := subscription.HistoryActionRenewed
		if wasPastDue {
			action = subscription.HistoryActionReactivated
		}
		uc.appendHistory(ctx, sub, action, tx.Amount().AmountInCents(), nil)
		return sub, nil
	}

	tierStr := tx.MetadataString("tier")
	cycleStr := tx.MetadataString("billing_cycle")
	tier, err := subvo.ParseTier(tierStr)
	if err != nil {
		return nil, fmt.Errorf("transaction %s carries no valid tier: %w", tx.OrderCode(), err)
	}
	cycle, err := subvo.ParseBillingCycle(cycleStr)
	if err != nil {
		return nil, fmt.Errorf("transaction %s carries no valid billing cycle: %w", tx.OrderCode(), err)
	}

	// Guard against a replayed first-purchase webhook that lost the
	// compare-and-set race but sees a stale transaction row.
	if existing, err := uc.subRepo.GetActiveByUserID(ctx, tx.UserID()); err == nil && existing.Tier() == tier {
		return existing, nil
	} else if err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, err
	}

	sub, err := subscription.NewSubscription(
		tx.UserID(),
		tier,
		cycle,
		tx.Amount().AmountInCents(),
		tx.Amount().Currency(),
		asOf,
		true,
	)
	if err != nil {
		return nil, err
	}
	if err := uc.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	tx.AttachSubscription(sub.ID())
	if err := uc.txRepo.UpdateStatusChecked(ctx, tx, billingvo.TransactionStatusPaid); err != nil {
		return nil, err
	}

	uc.appendHistory(ctx, sub, subscription.HistoryActionCreated, tx.Amount().AmountInCents(), nil)
	return sub, nil
}

func (uc *ProcessWebhookUseCase) applyCancelled(ctx context.Context, tx *billing.Transaction, event *gateway.WebhookData) (*ProcessWebhookResult, error) {
	if tx.Status() == billingvo.TransactionStatusCancelled {
		return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: tx.Status(), Duplicate: true}, nil
	}

	loadedStatus := tx.Status()
	if err := tx.MarkCancelled("cancelled by payer"); err != nil {
		return nil, err
	}
	if err := uc.txRepo.UpdateStatusChecked(ctx, tx, loadedStatus); err != nil {
		if errors.Is(err, billing.ErrConcurrentModification) {
			return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: billingvo.TransactionStatusCancelled, Duplicate: true}, nil
		}
		return nil, err
	}

	uc.logger.Infow("checkout cancelled by payer", "order_code", tx.OrderCode())
	return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: billingvo.TransactionStatusCancelled}, nil
}

func (uc *ProcessWebhookUseCase) applyFailed(ctx context.Context, tx *billing.Transaction, event *gateway.WebhookData) (*ProcessWebhookResult, error) {
	if tx.Status() == billingvo.TransactionStatusFailed {
		return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: tx.Status(), Duplicate: true}, nil
	}

	reason := "payment failed"
	if r, ok := event.Raw["failure_reason"].(string); ok && r != "" {
		reason = r
	}

	loadedStatus := tx.Status()
	if err := tx.MarkFailed(reason); err != nil {
		return nil, err
	}

	var sub *subscription.Subscription
	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.txRepo.UpdateStatusChecked(txCtx, tx, loadedStatus); err != nil {
			return err
		}

		// A failed renewal pushes the subscription to past due; failed
		// first purchases leave nothing to downgrade.
		if subID := tx.SubscriptionID(); subID != nil && tx.Type() == billingvo.TransactionTypeRenewal {
			var err error
			sub, err = uc.subRepo.GetByID(txCtx, *subID)
			if err != nil {
				return err
			}
			if err := sub.MarkPastDue(); err != nil {
				return err
			}
			if err := uc.subRepo.Update(txCtx, sub); err != nil {
				return err
			}
			uc.appendHistory(txCtx, sub, subscription.HistoryActionPastDue, 0, &reason)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, billing.ErrConcurrentModification) {
			return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: billingvo.TransactionStatusFailed, Duplicate: true}, nil
		}
		return nil, err
	}

	uc.notify(tx, sub, notification.EventPaymentFailed, reason)

	uc.logger.Infow("payment failed",
		"order_code", tx.OrderCode(),
		"user_id", tx.UserID(),
		"reason", reason,
	)

	return &ProcessWebhookResult{OrderCode: tx.OrderCode(), Status: billingvo.TransactionStatusFailed}, nil
}

func (uc *ProcessWebhookUseCase) appendHistory(ctx context.Context, sub *subscription.Subscription, action subscription.HistoryAction, amountCents int64, reason *string) {
	tier := sub.Tier()
	h, err := subscription.NewHistory(sub.ID(), sub.UserID(), action, nil, &tier, amountCents, reason, uc.now())
	if err != nil {
		uc.logger.Errorw("failed to build history record", "subscription_id", sub.ID(), "error", err)
		return
	}
	if err := uc.historyRepo.Append(ctx, h); err != nil {
		uc.logger.Errorw("failed to append history record", "subscription_id", sub.ID(), "error", err)
	}
}

// notify dispatches asynchronously; a dispatcher failure never fails the
// webhook.
func (uc *ProcessWebhookUseCase) notify(tx *billing.Transaction, sub *subscription.Subscription, eventType notification.EventType, reason string) {
	event := notification.Event{
		Type:        eventType,
		UserID:      tx.UserID(),
		OrderCode:   tx.OrderCode(),
		AmountCents: tx.Amount().AmountInCents(),
		Currency:    tx.Amount().Currency(),
		Reason:      reason,
	}
	if email := tx.BuyerEmail(); email != nil {
		event.Email = *email
	}
	if sub != nil {
		event.SubscriptionID = sub.ID()
		event.Tier = sub.Tier().String()
	}

	goroutine.SafeGo(uc.logger, "webhook notification dispatch", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := uc.dispatcher.Dispatch(ctx, event); err != nil {
			uc.logger.Warnw("notification dispatch failed",
				"event_type", string(eventType),
				"order_code", tx.OrderCode(),
				"error", err,
			)
		}
	})
}
