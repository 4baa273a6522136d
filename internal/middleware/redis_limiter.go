package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimiter shares a fixed-window count across replicas. When redis
// is unreachable it admits the request and logs the failure.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	log    *zap.Logger
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RedisRateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: prefix, log: log}
}

func (rl *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := rl.prefix + ":" + key
	count, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.log.Warn("rate limiter unavailable, admitting request", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			rl.log.Warn("rate limiter expire failed", zap.String("key", redisKey), zap.Error(err))
		}
	}
	return count <= int64(rl.limit)
}
