package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	billingvo "github.com/pixelmuse/pixelmuse/internal/domain/billing/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

const orderCodePrefix = "PMX"

// CreateCheckoutCommand opens a payment session for a paid tier.
type CreateCheckoutCommand struct {
	UserID       uint
	Tier         string
	BillingCycle string
	BuyerEmail   string
}

// CreateCheckoutResult carries the checkout handle back to the caller.
type CreateCheckoutResult struct {
	OrderCode   string
	CheckoutURL string
	AmountCents int64
	Currency    string
	ExpiresAt   time.Time
}

// CreateCheckoutUseCase creates a pending ledger entry and opens a provider
// checkout session for it. The subscription itself is only created when the
// paid webhook arrives; until then the tier and cycle ride along in the
// transaction metadata.
type CreateCheckoutUseCase struct {
	txRepo     billing.TransactionRepository
	subRepo    subscription.Repository
	catalog    *subscription.Catalog
	gw         gateway.PaymentGateway
	orderCodes billing.OrderCodeGenerator
	returnURL  string
	webhookURL string
	pendingTTL time.Duration
	logger     logger.Interface
}

func NewCreateCheckoutUseCase(
	txRepo billing.TransactionRepository,
	subRepo subscription.Repository,
	catalog *subscription.Catalog,
	gw gateway.PaymentGateway,
	orderCodes billing.OrderCodeGenerator,
	returnURL string,
	webhookURL string,
	pendingTTL time.Duration,
	logger logger.Interface,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		txRepo:     txRepo,
		subRepo:    subRepo,
		catalog:    catalog,
		gw:         gw,
		orderCodes: orderCodes,
		returnURL:  returnURL,
		webhookURL: webhookURL,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (*CreateCheckoutResult, error) {
	tier, err := subvo.ParseTier(cmd.Tier)
	if err != nil {
		return nil, err
	}
	if !tier.IsPaid() {
		return nil, fmt.Errorf("tier %s cannot be purchased", tier)
	}

	cycle, err := subvo.ParseBillingCycle(cmd.BillingCycle)
	if err != nil {
		return nil, err
	}

	plan, err := uc.catalog.Resolve(tier)
	if err != nil {
		return nil, err
	}

	existing, err := uc.subRepo.GetActiveByUserID(ctx, cmd.UserID)
	if err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if existing != nil && existing.Tier() == tier {
		return nil, subscription.ErrAlreadySubscribed
	}

	amount := billingvo.NewMoney(plan.PriceFor(cycle), "USD")
	orderCode := uc.orderCodes.Generate(orderCodePrefix)

	txType := billingvo.TransactionTypeSubscriptionPayment
	var subscriptionID *uint
	if existing != nil {
		id := existing.ID()
		subscriptionID = &id
		if plan.PriceFor(cycle) >= existing.PriceCents() {
			txType = billingvo.TransactionTypeUpgrade
		} else {
			txType = billingvo.TransactionTypeDowngrade
		}
	}

	tx, err := billing.NewTransaction(
		orderCode,
		cmd.UserID,
		subscriptionID,
		amount,
		txType,
		uc.gw.Name(),
		fmt.Sprintf("%s plan, %s billing", tier, cycle),
	)
	if err != nil {
		return nil, err
	}
	tx.SetMetadata("tier", tier.String())
	tx.SetMetadata("billing_cycle", cycle.String())
	if cmd.BuyerEmail != "" {
		tx.SetBuyerEmail(cmd.BuyerEmail)
	}

	if err := uc.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, billing.ErrDuplicateOrderCode) {
			return nil, fmt.Errorf("order code collision for %s: %w", orderCode, err)
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	session, err := uc.gw.CreateCheckout(ctx, gateway.CheckoutRequest{
		OrderCode:   orderCode,
		AmountCents: amount.AmountInCents(),
		Currency:    amount.Currency(),
		Description: tx.Description(),
		BuyerEmail:  cmd.BuyerEmail,
		ReturnURL:   uc.returnURL,
		WebhookURL:  uc.webhookURL,
		ExpiresIn:   uc.pendingTTL,
	})
	if err != nil {
		// The pending row stays in the ledger; the cleanup task expires it.
		if markErr := tx.MarkFailed("gateway checkout creation failed"); markErr == nil {
			if updErr := uc.txRepo.UpdateStatusChecked(ctx, tx, billingvo.TransactionStatusPending); updErr != nil {
				uc.logger.Errorw("failed to mark transaction failed after gateway error",
					"order_code", orderCode,
					"error", updErr,
				)
			}
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	uc.logger.Infow("checkout session created",
		"order_code", orderCode,
		"user_id", cmd.UserID,
		"tier", tier.String(),
		"billing_cycle", cycle.String(),
		"amount_cents", amount.AmountInCents(),
	)

	return &CreateCheckoutResult{
		OrderCode:   orderCode,
		CheckoutURL: session.CheckoutURL,
		AmountCents: amount.AmountInCents(),
		Currency:    amount.Currency(),
		ExpiresAt:   session.ExpiresAt,
	}, nil
}
