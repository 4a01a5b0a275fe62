package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ludobackend/internal/apierror"
	redisstate "ludobackend/internal/infra/state/redis"
)

// RateLimit returns a middleware that throttles requests per client IP using
// the shared cache's pipelined INCR+EXPIRE counter. If the shared cache is
// unavailable the request is let through rather than failing closed, matching
// the system's memory-only degradation policy for the cache in general.
func RateLimit(cache *redisstate.StateRepository, maxRequests int, window time.Duration) gin.HandlerFunc {
	if cache == nil {
		panic("shared cache cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		key := "ratelimit:http:" + c.ClientIP()
		exceeded, err := cache.CheckRateLimit(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			logrus.WithError(err).Warn("rate limit middleware: shared cache unavailable, allowing request through")
			c.Next()
			return
		}
		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": apierror.New(apierror.KindConflict, "too many requests").Message})
			c.Abort()
			return
		}
		c.Next()
	}
}
