package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimiter is a fixed window counter shared by every instance.
// When Redis is unreachable requests are let through and the failure logged.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
	log    *zap.Logger
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration, logger *zap.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, prefix: prefix, limit: int64(limit), window: window, log: logger}
}

func (r *RedisRateLimiter) Handler() fiber.Handler {
	return r.HandlerByKey(getIP)
}

func (r *RedisRateLimiter) HandlerByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := fmt.Sprintf("%s:%s", r.prefix, keyFunc(c))

		pipe := r.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		if _, err := pipe.Exec(ctx); err != nil {
			r.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if incr.Val() > r.limit {
			r.log.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", c.Path()))
			return errRateLimited
		}
		return c.Next()
	}
}
