package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/handlers"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
)

// UsageRouteConfig holds dependencies for usage metering routes.
type UsageRouteConfig struct {
	UsageHandler   *handlers.UsageHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupUsageRoutes configures quota and usage tracking routes.
func SetupUsageRoutes(engine *gin.Engine, cfg *UsageRouteConfig) {
	usage := engine.Group("/usage")
	usage.Use(cfg.AuthMiddleware.RequireAuth())
	{
		usage.GET("/quota", cfg.UsageHandler.CheckQuota)
		usage.POST("/records", cfg.UsageHandler.RecordUsage)
		usage.GET("/stats", cfg.UsageHandler.GetStats)
	}
}
