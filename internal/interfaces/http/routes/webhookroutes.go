package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/infrastructure/ratelimit"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/handlers"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// WebhookRouteConfig holds dependencies for provider callback routes.
// Webhooks authenticate by signature, not by user token, so they sit
// outside the auth middleware and behind a rate limiter instead.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
	RateLimiter    ratelimit.RateLimiter
	Logger         logger.Interface
}

// SetupWebhookRoutes configures payment provider callback routes.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	webhooks.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger))
	{
		webhooks.POST("/payflow", cfg.WebhookHandler.HandlePayFlow)
	}
}
