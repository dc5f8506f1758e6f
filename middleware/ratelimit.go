package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var now = time.Now

// Counter counts hits per key inside a fixed window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a Counter backed by INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimit allows each caller perMinute requests per minute. Callers are
// keyed by user id when authenticated, by client IP otherwise. If the counter
// is unreachable the request is let through.
func RateLimit(counter Counter, perMinute int64) gin.HandlerFunc {
	const window = time.Minute
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if id := UserID(c); id != 0 {
			caller = fmt.Sprintf("user:%d", id)
		}
		bucket := now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", caller, bucket)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		n, err := counter.Incr(ctx, key, window)
		cancel()
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		if n > perMinute {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
