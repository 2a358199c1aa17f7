package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type BillingHandler struct {
	createCheckoutUC   *billingUsecases.CreateCheckoutUseCase
	cancelCheckoutUC   *billingUsecases.CancelCheckoutUseCase
	getTransactionUC   *billingUsecases.GetTransactionUseCase
	listTransactionsUC *billingUsecases.ListTransactionsUseCase
	revenueReportUC    *billingUsecases.RevenueReportUseCase
	logger             logger.Interface
}

func NewBillingHandler(
	createCheckoutUC *billingUsecases.CreateCheckoutUseCase,
	cancelCheckoutUC *billingUsecases.CancelCheckoutUseCase,
	getTransactionUC *billingUsecases.GetTransactionUseCase,
	listTransactionsUC *billingUsecases.ListTransactionsUseCase,
	revenueReportUC *billingUsecases.RevenueReportUseCase,
	logger logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		createCheckoutUC:   createCheckoutUC,
		cancelCheckoutUC:   cancelCheckoutUC,
		getTransactionUC:   getTransactionUC,
		listTransactionsUC: listTransactionsUC,
		revenueReportUC:    revenueReportUC,
		logger:             logger,
	}
}

type CreateCheckoutRequest struct {
	Tier         string `json:"tier" binding:"required,oneof=basic premium"`
	BillingCycle string `json:"billing_cycle" binding:"required,oneof=monthly yearly"`
	BuyerEmail   string `json:"buyer_email" binding:"omitempty,email"`
}

type CheckoutResponse struct {
	OrderCode   string `json:"order_code"`
	CheckoutURL string `json:"checkout_url"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	ExpiresAt   string `json:"expires_at"`
}

func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.createCheckoutUC.Execute(c.Request.Context(), billingUsecases.CreateCheckoutCommand{
		UserID:       userID,
		Tier:         req.Tier,
		BillingCycle: req.BillingCycle,
		BuyerEmail:   req.BuyerEmail,
	})
	if err != nil {
		h.logger.Errorw("failed to create checkout", "error", err, "user_id", userID)
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "checkout created", CheckoutResponse{
		OrderCode:   result.OrderCode,
		CheckoutURL: result.CheckoutURL,
		AmountCents: result.AmountCents,
		Currency:    result.Currency,
		ExpiresAt:   result.ExpiresAt.Format(time.RFC3339),
	})
}

func (h *BillingHandler) CancelCheckout(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	err := h.cancelCheckoutUC.Execute(c.Request.Context(), billingUsecases.CancelCheckoutCommand{
		OrderCode: c.Param("orderCode"),
		UserID:    userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "checkout cancelled", nil)
}

type TransactionResponse struct {
	OrderCode     string  `json:"order_code"`
	AmountCents   int64   `json:"amount_cents"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Provider      string  `json:"provider"`
	Description   string  `json:"description"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	PaidAt        *string `json:"paid_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func (h *BillingHandler) GetTransaction(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	tx, err := h.getTransactionUC.Execute(c.Request.Context(), c.Param("orderCode"))
	if err != nil {
		respondError(c, err)
		return
	}
	if tx.UserID() != userID {
		utils.ErrorResponse(c, http.StatusNotFound, "transaction not found")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toTransactionResponse(tx))
}

func (h *BillingHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	pagination := utils.ParsePagination(c)

	txs, total, err := h.listTransactionsUC.Execute(c.Request.Context(), billingUsecases.ListTransactionsQuery{
		UserID:   &userID,
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}

	utils.SuccessResponse(c, http.StatusOK, "",
		utils.NewListResponse(items, total, pagination.Page, pagination.PageSize))
}

func (h *BillingHandler) RevenueReport(c *gin.Context) {
	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))

	report, err := h.revenueReportUC.Execute(c.Request.Context(), months)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", report)
}

func toTransactionResponse(tx *billing.Transaction) TransactionResponse {
	resp := TransactionResponse{
		OrderCode:     tx.OrderCode(),
		AmountCents:   tx.Amount().AmountInCents(),
		Currency:      tx.Amount().Currency(),
		Status:        tx.Status().String(),
		Type:          tx.Type().String(),
		Provider:      tx.Provider(),
		Description:   tx.Description(),
		PaymentMethod: tx.PaymentMethod(),
		FailureReason: tx.FailureReason(),
		CreatedAt:     tx.CreatedAt().Format(time.RFC3339),
	}
	if paidAt := tx.PaidAt(); paidAt != nil {
		s := paidAt.Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}
