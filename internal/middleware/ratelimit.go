package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/web3drender/pkg/errors"
	"github.com/charlesng35/web3drender/pkg/logger"
	"github.com/charlesng35/web3drender/pkg/response"
)

// RateLimitConfig configures one limiter.
type RateLimitConfig struct {
	Store  RateStore
	Name   string
	Limit  int
	Window time.Duration
	// ResetOnSuccess clears the caller's counter after a 2xx response, so
	// only failed attempts accumulate.
	ResetOnSuccess bool
}

// RateLimit limits requests per client IP within a fixed window. Store
// failures are logged and the request is let through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryRateStore()
	}
	if cfg.Name == "" {
		cfg.Name = "api"
	}

	return func(c *gin.Context) {
		if cfg.Limit <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + cfg.Name + ":" + c.ClientIP()
		ctx := c.Request.Context()

		count, ttl, err := cfg.Store.Increment(ctx, key, cfg.Window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate store unavailable",
				zap.String("limiter", cfg.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		resetIn := int(math.Ceil(ttl.Seconds()))
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, cfg.Limit-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetIn))

		if count > cfg.Limit {
			c.Header("Retry-After", strconv.Itoa(resetIn))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()

		if cfg.ResetOnSuccess {
			if status := c.Writer.Status(); status >= 200 && status < 300 {
				if err := cfg.Store.Reset(context.WithoutCancel(ctx), key); err != nil {
					logger.WithModule("ratelimit").Warn("reset counter failed",
						zap.String("limiter", cfg.Name),
						zap.Error(err),
					)
				}
			}
		}
	}
}
