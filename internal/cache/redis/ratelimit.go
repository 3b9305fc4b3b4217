package redis

import (
	"fmt"
	"strconv"
	"time"

	"context"

	"github.com/redis/go-redis/v9"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// RateLimiter implements interfaces.RateLimiter with the same sliding-window
// sorted-set technique the teacher used for its Redis rate limit repository:
// each request is a scored member in a ZSET, scores older than the window
// are trimmed before counting.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("rate_limit:%s", key)
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	zkey := rateLimitKey(key)
	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, zkey)
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(now), Member: strconv.FormatInt(now, 10)})
	pipe.Expire(ctx, zkey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, domain.Wrap(domain.CodeDependencyUnavailable, "check rate limit", err)
	}

	currentCount := int(countCmd.Val())
	if currentCount >= limit {
		r.client.ZRem(ctx, zkey, strconv.FormatInt(now, 10))
		return false, 0, nil
	}
	return true, limit - currentCount - 1, nil
}
