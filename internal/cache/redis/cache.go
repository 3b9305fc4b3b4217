// Package redis implements the redirect cache (§4.D) on top of
// redis/go-redis/v9, generalizing the teacher's key-prefix cache
// conventions from a plain string value to a JSON-encoded CachedTarget.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// Cache implements interfaces.RedirectCache.
type Cache struct {
	client *redis.Client
}

// New wraps an existing go-redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func cacheKey(code string) string {
	return fmt.Sprintf("url:%s", code)
}

func (c *Cache) Get(ctx context.Context, code string) (*domain.CachedTarget, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(code)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, domain.Wrap(domain.CodeDependencyUnavailable, "get cached target", err)
	}
	var target domain.CachedTarget
	if err := json.Unmarshal(val, &target); err != nil {
		return nil, false, domain.Wrap(domain.CodeInternal, "decode cached target", err)
	}
	return &target, true, nil
}

func (c *Cache) SetWithTTL(ctx context.Context, target *domain.CachedTarget, ttl time.Duration) error {
	val, err := json.Marshal(target)
	if err != nil {
		return domain.Wrap(domain.CodeInternal, "encode cached target", err)
	}
	if err := c.client.Set(ctx, cacheKey(target.Code), val, ttl).Err(); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "set cached target", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, cacheKey(code)).Err(); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "invalidate cached target", err)
	}
	return nil
}
