package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/httpx"
	"github.com/KOMKZ/go-yogan-auth/limiter"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// RateLimit guards one named route with the rule configured for it.
// Counters are keyed by client IP and, unless the rule is shared, by route.
// A limiter failure rejects the request.
func RateLimit(fw *limiter.FixedWindow, cfg limiter.Config, route string) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	rule := cfg.RuleFor(route)
	log := logger.GetLogger("limiter")

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := limiter.Key(rule, c.ClientIP(), route)

		resp, err := fw.Allow(ctx, key, rule.Limit, rule.Interval)
		if err != nil {
			log.ErrorCtx(ctx, "rate limiter unavailable", zap.String("route", route), zap.Error(err))
			httpx.HandleError(c, err)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(resp.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(resp.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resp.ResetAt.Unix(), 10))

		if !resp.Allowed {
			c.Header("Retry-After", strconv.FormatInt(resp.RetryAfterSeconds(), 10))
			httpx.Abort(c, http.StatusTooManyRequests, fmt.Sprintf("Too many requests. Limit %d in %d seconds",
				rule.Limit, int64(rule.Interval.Seconds())))
			return
		}
		c.Next()
	}
}
