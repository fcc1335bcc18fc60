package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RateLimiter decides whether a caller may send another request
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, reset int64, err error)
}

// RateLimit rejects callers over their limit with 429. Callers are keyed by
// token subject when authenticated and by client IP otherwise. Limiter
// failures let the request through.
func RateLimit(limiter RateLimiter, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("subject")
		if key == "" {
			key = c.ClientIP()
		}

		allowed, remaining, reset, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error("Rate limit check failed", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if !allowed {
			retryAfter := reset - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Rate limit exceeded. Try again later."})
			return
		}

		c.Next()
	}
}

// fixedWindowScript counts requests per key in one minute windows
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('EXPIRE', KEYS[1], 60)
	end
	return current
`)

// RedisRateLimiter shares a per minute request budget across backend
// instances through Redis
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

// NewRedisRateLimiter creates a limiter allowing limit requests per minute
func NewRedisRateLimiter(client *redis.Client, limit int) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, now: time.Now}
}

// Allow counts one request for key in the current window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, int64, error) {
	window := l.now().Unix() / 60
	reset := (window + 1) * 60

	count, err := fixedWindowScript.Run(ctx, l.client, []string{windowKey(key, window)}).Int()
	if err != nil {
		return false, 0, 0, err
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, reset, nil
}

func windowKey(key string, window int64) string {
	return fmt.Sprintf("dbtest:ratelimit:%s:%d", key, window)
}
