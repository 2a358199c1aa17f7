package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/handlers"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
)

// SubscriptionRouteConfig holds dependencies for subscription routes.
type SubscriptionRouteConfig struct {
	SubscriptionHandler *handlers.SubscriptionHandler
	PlanHandler         *handlers.PlanHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// SetupSubscriptionRoutes configures subscription and plan catalog routes.
func SetupSubscriptionRoutes(engine *gin.Engine, cfg *SubscriptionRouteConfig) {
	engine.GET("/plans", cfg.PlanHandler.List)

	subs := engine.Group("/subscriptions")
	subs.Use(cfg.AuthMiddleware.RequireAuth())
	{
		subs.GET("/me", cfg.SubscriptionHandler.GetCurrent)
		subs.DELETE("/me", cfg.SubscriptionHandler.Cancel)
		subs.GET("/me/history", cfg.SubscriptionHandler.ListHistory)
	}
}
