package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

type PlanHandler struct {
	catalog *subscription.Catalog
}

func NewPlanHandler(catalog *subscription.Catalog) *PlanHandler {
	return &PlanHandler{catalog: catalog}
}

type PlanResponse struct {
	Tier                   string `json:"tier"`
	DailyGenerationLimit   int    `json:"daily_generation_limit"`
	MonthlyGenerationLimit int    `json:"monthly_generation_limit"`
	MonthlyPriceCents      int64  `json:"monthly_price_cents"`
	YearlyPriceCents       int64  `json:"yearly_price_cents"`
	Watermark              bool   `json:"watermark"`
	PriorityQueue          bool   `json:"priority_queue"`
}

// List returns the plan catalog. Public, no auth required.
func (h *PlanHandler) List(c *gin.Context) {
	tiers := h.catalog.Tiers()
	plans := make([]PlanResponse, 0, len(tiers))
	for _, tier := range tiers {
		plan, err := h.catalog.Resolve(tier)
		if err != nil {
			continue
		}
		plans = append(plans, PlanResponse{
			Tier:                   plan.Tier().String(),
			DailyGenerationLimit:   plan.DailyGenerationLimit(),
			MonthlyGenerationLimit: plan.MonthlyGenerationLimit(),
			MonthlyPriceCents:      plan.MonthlyPriceCents(),
			YearlyPriceCents:       plan.YearlyPriceCents(),
			Watermark:              plan.Watermark(),
			PriorityQueue:          plan.PriorityQueue(),
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "", plans)
}
