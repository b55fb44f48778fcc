// Package redis provides Redis client initialization with connection
// verification, plus the Redis-backed cache used by the read-through
// tenant resolver.
//
// Connect validates the connection URL, retries with exponential backoff,
// and pings before returning the client. TenantCache adapts a go-redis
// client to the tenant.Cache interface, mapping redis.Nil to
// tenant.ErrCacheMiss so the resolver never sees driver error vocabulary.
//
// Usage:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	resolver := tenant.NewCachedResolver(inner, redis.NewTenantCache(client))
package redis
