package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gamepanel/internal/infrastructure/ratelimit"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
	"github.com/orris-inc/gamepanel/internal/shared/utils"
)

// RateLimitByIP rejects clients that exceed limiter. Limiter errors let the
// request through.
func RateLimitByIP(limiter ratelimit.RateLimiter, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warnw("rate limiter unavailable", "ip", ip, "error", err)
			c.Next()
			return
		}

		if !allowed {
			log.Warnw("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many connection attempts")
			c.Abort()
			return
		}

		c.Next()
	}
}
