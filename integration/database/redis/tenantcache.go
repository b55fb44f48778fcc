package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canvastack/stencil/core/tenant"
)

// TenantCache adapts a Redis client to the tenant.Cache interface.
type TenantCache struct {
	client redis.UniversalClient
}

var _ tenant.Cache = (*TenantCache)(nil)

// NewTenantCache creates a tenant resolution cache over the given client.
func NewTenantCache(client redis.UniversalClient) *TenantCache {
	return &TenantCache{client: client}
}

func (c *TenantCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, tenant.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (c *TenantCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *TenantCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
