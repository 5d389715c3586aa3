package httpapi

import (
	"context"
	"net/http"

	"telecom-rating/internal/auth"
	"telecom-rating/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ConcurrencyCap is satisfied by *utils.ConcurrencyCap.
type ConcurrencyCap interface {
	Acquire(ctx context.Context, subject string) (bool, error)
	Release(ctx context.Context, subject string) error
}

// LimitConcurrentLookups bounds in-flight lookups per caller. When the cap
// store is unavailable the request is let through and the failure logged.
func LimitConcurrentLookups(limiter ConcurrencyCap) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		info, err := auth.FromContext(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "identity required"})
			return
		}

		ok, err := limiter.Acquire(c.Request.Context(), info.UserID)
		if err != nil {
			logger.FromGin(c).Warn("lookup cap unavailable", "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too_many_lookups", "message": "concurrent lookup limit reached"})
			return
		}
		defer func() {
			if err := limiter.Release(context.WithoutCancel(c.Request.Context()), info.UserID); err != nil {
				logger.FromGin(c).Warn("lookup cap release failed", "err", err)
			}
		}()
		c.Next()
	}
}
