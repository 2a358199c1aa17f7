package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/handlers"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
)

// BillingRouteConfig holds dependencies for billing routes.
type BillingRouteConfig struct {
	BillingHandler *handlers.BillingHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupBillingRoutes configures checkout and transaction routes.
func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	billing := engine.Group("/billing")
	billing.Use(cfg.AuthMiddleware.RequireAuth())
	{
		billing.POST("/checkout", cfg.BillingHandler.CreateCheckout)
		billing.DELETE("/checkout/:orderCode", cfg.BillingHandler.CancelCheckout)
		billing.GET("/transactions", cfg.BillingHandler.ListTransactions)
		billing.GET("/transactions/:orderCode", cfg.BillingHandler.GetTransaction)

		billing.GET("/revenue", cfg.AuthMiddleware.RequireAdmin(), cfg.BillingHandler.RevenueReport)
	}
}
