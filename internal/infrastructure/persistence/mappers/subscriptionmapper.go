package mappers

import (
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
)

func SubscriptionToModel(s *subscription.Subscription) *models.SubscriptionModel {
	model := &models.SubscriptionModel{
		ID:                     s.ID(),
		UserID:                 s.UserID(),
		Tier:                   s.Tier().String(),
		Status:                 s.Status().String(),
		BillingCycle:           s.BillingCycle().String(),
		PriceCents:             s.PriceCents(),
		Currency:               s.Currency(),
		StartDate:              s.StartDate(),
		EndDate:                s.EndDate(),
		NextBillingDate:        s.NextBillingDate(),
		AutoRenew:              s.AutoRenew(),
		ExternalSubscriptionID: s.ExternalSubscriptionID(),
		CancelledAt:            s.CancelledAt(),
		CancellationReason:     s.CancellationReason(),
		Version:                s.Version(),
		CreatedAt:              s.CreatedAt(),
		UpdatedAt:              s.UpdatedAt(),
	}

	if len(s.Metadata()) > 0 {
		model.Metadata = s.Metadata()
	}

	return model
}

func SubscriptionToDomain(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	tier, err := vo.ParseTier(model.Tier)
	if err != nil {
		return nil, fmt.Errorf("invalid tier: %w", err)
	}

	cycle, err := vo.ParseBillingCycle(model.BillingCycle)
	if err != nil {
		return nil, fmt.Errorf("invalid billing cycle: %w", err)
	}

	return subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:                     model.ID,
		UserID:                 model.UserID,
		Tier:                   tier,
		Status:                 vo.SubscriptionStatus(model.Status),
		BillingCycle:           cycle,
		PriceCents:             model.PriceCents,
		Currency:               model.Currency,
		StartDate:              model.StartDate,
		EndDate:                model.EndDate,
		NextBillingDate:        model.NextBillingDate,
		AutoRenew:              model.AutoRenew,
		ExternalSubscriptionID: model.ExternalSubscriptionID,
		CancelledAt:            model.CancelledAt,
		CancellationReason:     model.CancellationReason,
		Metadata:               model.Metadata,
		Version:                model.Version,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
	})
}

func HistoryToModel(h *subscription.History) *models.SubscriptionHistoryModel {
	model := &models.SubscriptionHistoryModel{
		ID:             h.ID(),
		SubscriptionID: h.SubscriptionID(),
		UserID:         h.UserID(),
		Action:         string(h.Action()),
		AmountCents:    h.AmountCents(),
		Reason:         h.Reason(),
		OccurredAt:     h.OccurredAt(),
		CreatedAt:      h.CreatedAt(),
	}

	if t := h.OldTier(); t != nil {
		s := t.String()
		model.OldTier = &s
	}
	if t := h.NewTier(); t != nil {
		s := t.String()
		model.NewTier = &s
	}

	return model
}

func HistoryToDomain(model *models.SubscriptionHistoryModel) (*subscription.History, error) {
	params := subscription.HistoryReconstructParams{
		ID:             model.ID,
		SubscriptionID: model.SubscriptionID,
		UserID:         model.UserID,
		Action:         subscription.HistoryAction(model.Action),
		AmountCents:    model.AmountCents,
		Reason:         model.Reason,
		OccurredAt:     model.OccurredAt,
		CreatedAt:      model.CreatedAt,
	}

	if model.OldTier != nil {
		t, err := vo.ParseTier(*model.OldTier)
		if err != nil {
			return nil, fmt.Errorf("invalid old tier: %w", err)
		}
		params.OldTier = &t
	}
	if model.NewTier != nil {
		t, err := vo.ParseTier(*model.NewTier)
		if err != nil {
			return nil, fmt.Errorf("invalid new tier: %w", err)
		}
		params.NewTier = &t
	}

	return subscription.ReconstructHistory(params)
}
