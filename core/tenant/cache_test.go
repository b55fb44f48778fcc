package tenant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvastack/stencil/core/tenant"
	"github.com/canvastack/stencil/core/urlpattern"
)

type memoryCache struct {
	entries map[string][]byte
	fail    bool
	gets    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.gets++
	if c.fail {
		return nil, errors.New("cache down")
	}
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	return nil, tenant.ErrCacheMiss
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.sets++
	if c.fail {
		return errors.New("cache down")
	}
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func TestCachedResolverReadThrough(t *testing.T) {
	f := newFixture()
	cache := newMemoryCache()
	cr := tenant.NewCachedResolver(f.resolver, cache)
	ctx := context.Background()

	first, err := cr.Resolve(ctx, urlpattern.PatternSubdomain, "acmecorp")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// Second resolution is served from cache even after the backing
	// repository loses the record.
	delete(f.configs.bySubdomain, "acmecorp")
	second, err := cr.Resolve(ctx, urlpattern.PatternSubdomain, "acmecorp")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCachedResolverNeverCachesFailures(t *testing.T) {
	f := newFixture()
	cache := newMemoryCache()
	cr := tenant.NewCachedResolver(f.resolver, cache)
	ctx := context.Background()

	f.domain.Verified = false
	_, err := cr.Resolve(ctx, urlpattern.PatternCustomDomain, "acmecorp.com")
	require.Error(t, err)
	assert.Empty(t, cache.entries)

	// The moment verification lands, resolution succeeds with no TTL wait.
	f.domain.Verified = true
	tn, err := cr.Resolve(ctx, urlpattern.PatternCustomDomain, "acmecorp.com")
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, tn.ID)
}

func TestCachedResolverDegradesOnCacheOutage(t *testing.T) {
	f := newFixture()
	cache := newMemoryCache()
	cache.fail = true
	cr := tenant.NewCachedResolver(f.resolver, cache)

	tn, err := cr.Resolve(context.Background(), urlpattern.PatternSubdomain, "acmecorp")
	require.NoError(t, err)
	assert.Equal(t, f.tenant.ID, tn.ID)
}

func TestCachedResolverInvalidate(t *testing.T) {
	f := newFixture()
	cache := newMemoryCache()
	cr := tenant.NewCachedResolver(f.resolver, cache)
	ctx := context.Background()

	_, err := cr.Resolve(ctx, urlpattern.PatternSubdomain, "acmecorp")
	require.NoError(t, err)
	require.NotEmpty(t, cache.entries)

	require.NoError(t, cr.Invalidate(ctx, urlpattern.PatternSubdomain, "acmecorp"))
	assert.Empty(t, cache.entries)

	// After invalidation a disabled configuration is observed immediately.
	f.configs.bySubdomain["acmecorp"].Enabled = false
	_, err = cr.Resolve(ctx, urlpattern.PatternSubdomain, "acmecorp")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}
