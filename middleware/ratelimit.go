package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hemera-academy/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether a caller may proceed. It is injected rather
// than held in package state so limits survive restarts and scale across
// replicas.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter per key stored in Redis.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int64
	Window time.Duration
}

// NewRedisLimiter connects to Redis from a URL. Returns nil when the URL is
// empty, which disables rate limiting entirely.
func NewRedisLimiter(redisURL string, limit int64, window time.Duration) (*RedisLimiter, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLimiter{Client: client, Limit: limit, Window: window}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= l.Limit, nil
}

// RateLimit gates a route through the given limiter, keyed by the
// authenticated user when present and the client IP otherwise. A nil limiter
// or a limiter error lets the request through: losing Redis must not take
// checkout down with it.
func RateLimit(limiter RateLimiter, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := c.ClientIP()
		if userID, exists := c.Get("user_id"); exists {
			key = fmt.Sprintf("%v", userID)
		}

		allowed, err := limiter.Allow(c.Request.Context(), fmt.Sprintf("ratelimit:%s:%s", name, key))
		if err != nil {
			utils.LogError(err, "Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			c.Abort()
			return
		}

		c.Next()
	}
}
