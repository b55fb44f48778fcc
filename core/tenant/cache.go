package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/canvastack/stencil/core/urlpattern"
)

// Cache is the minimal byte-store interface the cached resolver needs.
// Implementations must return ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedResolver is a read-through cache over a Resolver for the
// per-request hot path. Only successful resolutions are cached; failures
// always hit the repositories so a just-verified domain becomes reachable
// without waiting out a negative-cache TTL. Cache outages degrade to
// direct resolution.
type CachedResolver struct {
	inner  *Resolver
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// CachedResolverOption configures a CachedResolver.
type CachedResolverOption func(*CachedResolver)

// WithCacheTTL overrides the default 5 minute entry lifetime.
func WithCacheTTL(ttl time.Duration) CachedResolverOption {
	return func(c *CachedResolver) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for cache degradation warnings.
func WithCacheLogger(logger *slog.Logger) CachedResolverOption {
	return func(c *CachedResolver) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCachedResolver wraps a resolver with a read-through cache.
func NewCachedResolver(inner *Resolver, cache Cache, opts ...CachedResolverOption) *CachedResolver {
	c := &CachedResolver{
		inner:  inner,
		cache:  cache,
		ttl:    5 * time.Minute,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the cached tenant when present, falling back to the
// wrapped resolver and caching its success.
func (c *CachedResolver) Resolve(ctx context.Context, pattern urlpattern.Pattern, identifier string) (*Tenant, error) {
	key := cacheKey(pattern, identifier)

	if data, err := c.cache.Get(ctx, key); err == nil {
		var tn Tenant
		if err := json.Unmarshal(data, &tn); err == nil {
			return &tn, nil
		}
		// Corrupt entry: drop it and resolve fresh.
		_ = c.cache.Delete(ctx, key)
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.WarnContext(ctx, "tenant cache unavailable, resolving directly",
			slog.String("key", key), slog.Any("error", err))
	}

	tn, err := c.inner.Resolve(ctx, pattern, identifier)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tn); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "failed to cache resolved tenant",
				slog.String("key", key), slog.Any("error", err))
		}
	}

	return tn, nil
}

// ResolveTenantData resolves through the cache and projects the result.
func (c *CachedResolver) ResolveTenantData(ctx context.Context, pattern urlpattern.Pattern, identifier string) (Data, error) {
	tn, err := c.Resolve(ctx, pattern, identifier)
	if err != nil {
		return Data{}, err
	}
	return dataFrom(tn), nil
}

// ValidateTenantAccess delegates to the wrapped resolver.
func (c *CachedResolver) ValidateTenantAccess(tn *Tenant) error {
	return c.inner.ValidateTenantAccess(tn)
}

// Invalidate evicts a cached resolution, e.g. after an admin disables a
// configuration or suspends a domain.
func (c *CachedResolver) Invalidate(ctx context.Context, pattern urlpattern.Pattern, identifier string) error {
	return c.cache.Delete(ctx, cacheKey(pattern, identifier))
}

func cacheKey(pattern urlpattern.Pattern, identifier string) string {
	return "tenant:resolve:" + string(pattern) + ":" + identifier
}
