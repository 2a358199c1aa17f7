package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	subscriptionUsecases "github.com/pixelmuse/pixelmuse/internal/application/subscription/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type SubscriptionHandler struct {
	getSubscriptionUC    *subscriptionUsecases.GetSubscriptionUseCase
	cancelSubscriptionUC *subscriptionUsecases.CancelSubscriptionUseCase
	listHistoryUC        *subscriptionUsecases.ListHistoryUseCase
	logger               logger.Interface
}

func NewSubscriptionHandler(
	getSubscriptionUC *subscriptionUsecases.GetSubscriptionUseCase,
	cancelSubscriptionUC *subscriptionUsecases.CancelSubscriptionUseCase,
	listHistoryUC *subscriptionUsecases.ListHistoryUseCase,
	logger logger.Interface,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		getSubscriptionUC:    getSubscriptionUC,
		cancelSubscriptionUC: cancelSubscriptionUC,
		listHistoryUC:        listHistoryUC,
		logger:               logger,
	}
}

type SubscriptionResponse struct {
	ID              uint   `json:"id,omitempty"`
	Tier            string `json:"tier"`
	Status          string `json:"status"`
	BillingCycle    string `json:"billing_cycle,omitempty"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency,omitempty"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
	NextBillingDate string `json:"next_billing_date,omitempty"`
	AutoRenew       bool   `json:"auto_renew"`
	IsActive        bool   `json:"is_active"`
}

// GetCurrent returns the caller's subscription. Users without one get an
// implicit free-tier view instead of a 404.
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	view, err := h.getSubscriptionUC.Execute(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toSubscriptionResponse(view))
}

type CancelSubscriptionRequest struct {
	Reason      string `json:"reason" binding:"max=500"`
	AtPeriodEnd bool   `json:"at_period_end"`
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	sub, err := h.cancelSubscriptionUC.Execute(c.Request.Context(), subscriptionUsecases.CancelSubscriptionCommand{
		UserID:      userID,
		Reason:      req.Reason,
		AtPeriodEnd: req.AtPeriodEnd,
	})
	if err != nil {
		h.logger.Errorw("failed to cancel subscription", "error", err, "user_id", userID)
		respondError(c, err)
		return
	}

	message := "subscription cancelled"
	if req.AtPeriodEnd {
		message = "subscription will not renew"
	}
	utils.SuccessResponse(c, http.StatusOK, message, SubscriptionResponse{
		ID:           sub.ID(),
		Tier:         sub.Tier().String(),
		Status:       sub.Status().String(),
		BillingCycle: sub.BillingCycle().String(),
		PriceCents:   sub.PriceCents(),
		Currency:     sub.Currency(),
		EndDate:      sub.EndDate().Format(time.RFC3339),
		AutoRenew:    sub.AutoRenew(),
	})
}

type HistoryEntryResponse struct {
	Action      string  `json:"action"`
	OldTier     *string `json:"old_tier,omitempty"`
	NewTier     *string `json:"new_tier,omitempty"`
	AmountCents int64   `json:"amount_cents"`
	Reason      *string `json:"reason,omitempty"`
	OccurredAt  string  `json:"occurred_at"`
}

func (h *SubscriptionHandler) ListHistory(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	pagination := utils.ParsePagination(c)

	entries, total, err := h.listHistoryUC.Execute(c.Request.Context(), userID, pagination.Page, pagination.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toHistoryEntryResponse(entry))
	}

	utils.SuccessResponse(c, http.StatusOK, "",
		utils.NewListResponse(items, total, pagination.Page, pagination.PageSize))
}

func toSubscriptionResponse(view *subscriptionUsecases.SubscriptionView) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:         view.ID,
		Tier:       view.Tier.String(),
		Status:     view.Status.String(),
		PriceCents: view.PriceCents,
		Currency:   view.Currency,
		AutoRenew:  view.AutoRenew,
		IsActive:   view.IsActive,
	}
	if view.ID != 0 {
		resp.BillingCycle = view.BillingCycle.String()
		resp.StartDate = view.StartDate.Format(time.RFC3339)
		resp.EndDate = view.EndDate.Format(time.RFC3339)
		resp.NextBillingDate = view.NextBillingDate.Format(time.RFC3339)
	}
	return resp
}

func toHistoryEntryResponse(entry *subscription.History) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		Action:      string(entry.Action()),
		AmountCents: entry.AmountCents(),
		Reason:      entry.Reason(),
		OccurredAt:  entry.OccurredAt().Format(time.RFC3339),
	}
	if tier := entry.OldTier(); tier != nil {
		s := tier.String()
		resp.OldTier = &s
	}
	if tier := entry.NewTier(); tier != nil {
		s := tier.String()
		resp.NewTier = &s
	}
	return resp
}
