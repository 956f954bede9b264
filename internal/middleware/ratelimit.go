package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rulevault/internal/clockx"
	"rulevault/internal/ratelimit"
)

// RateLimitMiddleware admits requests through the token-bucket limiter,
// keyed by client IP + route so one abusive address cannot starve a route
// for everyone else.
func RateLimitMiddleware(limiter *ratelimit.Limiter, cfg ratelimit.Config, clock clockx.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()

		d := limiter.Consume(key, cfg, clock.Now())

		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset-Ms", strconv.FormatInt(d.ResetMs, 10))

		if !d.Allowed {
			retryAfterSec := (d.RetryAfterMs + 999) / 1000
			c.Header("Retry-After", strconv.FormatInt(retryAfterSec, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          "too many requests",
				"retry_after_ms": d.RetryAfterMs,
			})
			return
		}

		c.Next()
	}
}
