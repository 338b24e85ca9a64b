package interceptors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/metrics"
	"github.com/mintbay/go-mintbay-server/ratelimit"
)

const FloodLimitRequestsPerSecond = 5

// RateLimitMiddleware enforces the per endpoint-class window quota and abuse
// blocking for the caller's IP. A store failure aborts the request: the limiter
// itself already degrades to in-memory counting, so an error here is terminal.
func RateLimitMiddleware(limiter *ratelimit.Limiter, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ClientIP(c)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		decision, err := limiter.CheckAndIncrement(ctx, identity, class)
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, errors.New("failed to perform rate limit check"))
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.FormatInt(ratelimit.Limit(class), 10))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			if decision.Reason == ratelimit.ReasonBlocked {
				metrics.RateLimitBlocksTotal.WithLabelValues(string(class)).Inc()
				c.Writer.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			} else {
				metrics.RateLimitRejectionsTotal.WithLabelValues(string(class)).Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": decision.Reason})
			return
		}
		c.Next()
	}
}

// FloodGuardMiddleware is a coarse per-second limit on the whole client
// fingerprint (ip, user agent, language, referer, cookies), keeping connection
// floods away from the policy limiter and the handlers behind it.
func FloodGuardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if global.FloodLimiter == nil {
			c.Next()
			return
		}

		ip := ClientIP(c)
		userAgent := c.GetHeader("User-Agent")
		acceptLanguage := c.GetHeader("Accept-Language")
		referer := c.GetHeader("Referer")
		all := fmt.Sprintf("%s%s%s%s", ip, userAgent, acceptLanguage, referer)
		for _, cookie := range c.Request.Cookies() {
			all = fmt.Sprintf("%s%s%s", all, cookie.Name, cookie.Value)
		}
		hash := xxhash.Sum64String(all)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		result, err := global.FloodLimiter.Allow(ctx, strconv.FormatUint(hash, 10), redis_rate.PerSecond(FloodLimitRequestsPerSecond))
		if err != nil {
			// the policy limiter still stands behind this guard
			c.Next()
			return
		}
		if result.Allowed <= 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
