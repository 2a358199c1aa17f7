package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pixelmuse/pixelmuse/internal/infrastructure/ratelimit"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
	"github.com/pixelmuse/pixelmuse/internal/shared/utils"
)

// RateLimit bounds requests per client IP. A limiter backend failure lets
// the request through; dropping provider webhooks because Redis is down
// would be worse than briefly over-admitting.
func RateLimit(limiter ratelimit.RateLimiter, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warnw("rate limiter unavailable, admitting request",
				"client_ip", c.ClientIP(),
				"error", err,
			)
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}
