package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	usageUsecases "github.com/pixelmuse/pixelmuse/internal/application/usage/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type UsageHandler struct {
	checkQuotaUC    *usageUsecases.CheckQuotaUseCase
	recordUsageUC   *usageUsecases.RecordUsageUseCase
	getUsageStatsUC *usageUsecases.GetUsageStatsUseCase
	logger          logger.Interface
}

func NewUsageHandler(
	checkQuotaUC *usageUsecases.CheckQuotaUseCase,
	recordUsageUC *usageUsecases.RecordUsageUseCase,
	getUsageStatsUC *usageUsecases.GetUsageStatsUseCase,
	logger logger.Interface,
) *UsageHandler {
	return &UsageHandler{
		checkQuotaUC:    checkQuotaUC,
		recordUsageUC:   recordUsageUC,
		getUsageStatsUC: getUsageStatsUC,
		logger:          logger,
	}
}

type QuotaResponse struct {
	Allowed          bool   `json:"allowed"`
	Tier             string `json:"tier"`
	DailyUsed        int64  `json:"daily_used"`
	DailyLimit       int    `json:"daily_limit"`
	DailyRemaining   int64  `json:"daily_remaining"`
	MonthlyUsed      int64  `json:"monthly_used"`
	MonthlyLimit     int    `json:"monthly_limit"`
	MonthlyRemaining int64  `json:"monthly_remaining"`
	DeniedAxis       string `json:"denied_axis,omitempty"`
}

// CheckQuota reports whether the caller may consume one more unit. It never
// increments anything; the generation pipeline records consumption
// separately once the work is done.
func (h *UsageHandler) CheckQuota(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	usageType, err := usage.ParseUsageType(c.DefaultQuery("type", usage.UsageTypeImageGeneration.String()))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.checkQuotaUC.Execute(c.Request.Context(), userID, usageType)
	if err != nil {
		h.logger.Errorw("quota check failed", "error", err, "user_id", userID)
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toQuotaResponse(decision))
}

type RecordUsageRequest struct {
	UsageType string `json:"usage_type" binding:"required,usagetype"`
	Count     int64  `json:"count" binding:"omitempty,min=1,max=100"`
	Enforce   bool   `json:"enforce"`
}

func (h *UsageHandler) RecordUsage(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	err := h.recordUsageUC.Execute(c.Request.Context(), usageUsecases.RecordUsageCommand{
		UserID:    userID,
		UsageType: usage.UsageType(req.UsageType),
		Delta:     req.Count,
		Enforce:   req.Enforce,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "usage recorded", nil)
}

type UsageStatsResponse struct {
	Today       int64                `json:"today"`
	MonthToDate int64                `json:"month_to_date"`
	DailySeries []DailyUsageResponse `json:"daily_series"`
}

type DailyUsageResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

func (h *UsageHandler) GetStats(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	usageType, err := usage.ParseUsageType(c.DefaultQuery("type", usage.UsageTypeImageGeneration.String()))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	stats, err := h.getUsageStatsUC.Execute(c.Request.Context(), userID, usageType, days)
	if err != nil {
		respondError(c, err)
		return
	}

	series := make([]DailyUsageResponse, 0, len(stats.DailySeries))
	for _, day := range stats.DailySeries {
		series = append(series, DailyUsageResponse{
			Date:  day.Date.Format(time.DateOnly),
			Count: day.Count,
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "", UsageStatsResponse{
		Today:       stats.Today,
		MonthToDate: stats.MonthToDate,
		DailySeries: series,
	})
}

func toQuotaResponse(decision *usageUsecases.QuotaDecision) QuotaResponse {
	return QuotaResponse{
		Allowed:          decision.Allowed,
		Tier:             decision.Tier.String(),
		DailyUsed:        decision.DailyUsed,
		DailyLimit:       decision.DailyLimit,
		DailyRemaining:   decision.DailyRemaining,
		MonthlyUsed:      decision.MonthlyUsed,
		MonthlyLimit:     decision.MonthlyLimit,
		MonthlyRemaining: decision.MonthlyRemaining,
		DeniedAxis:       decision.DeniedAxis,
	}
}
