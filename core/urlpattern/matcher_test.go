package urlpattern_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvastack/stencil/core/urlpattern"
)

const baseDomain = "stencil.canvastack.com"

func newMatcher() *urlpattern.Matcher {
	return urlpattern.NewMatcher(baseDomain)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		path    string
		want    urlpattern.Pattern
		wantErr bool
	}{
		{
			name: "subdomain",
			host: "acmecorp." + baseDomain,
			path: "/",
			want: urlpattern.PatternSubdomain,
		},
		{
			name: "single character subdomain",
			host: "a." + baseDomain,
			path: "/",
			want: urlpattern.PatternSubdomain,
		},
		{
			name: "subdomain takes precedence over path",
			host: "acmecorp." + baseDomain,
			path: "/t/other/dashboard",
			want: urlpattern.PatternSubdomain,
		},
		{
			name: "path",
			host: baseDomain,
			path: "/t/acmecorp",
			want: urlpattern.PatternPath,
		},
		{
			name: "path with trailing segments",
			host: baseDomain,
			path: "/t/acmecorp/dashboard/settings",
			want: urlpattern.PatternPath,
		},
		{
			name:    "bare base domain",
			host:    baseDomain,
			path:    "/",
			wantErr: true,
		},
		{
			name:    "base domain with prefix but no segment",
			host:    baseDomain,
			path:    "/t/",
			wantErr: true,
		},
		{
			name:    "base domain with unrelated path",
			host:    baseDomain,
			path:    "/dashboard",
			wantErr: true,
		},
		{
			name: "custom domain",
			host: "acmecorp.com",
			path: "/",
			want: urlpattern.PatternCustomDomain,
		},
		{
			name: "custom domain with subdomain",
			host: "shop.acme.co.uk",
			path: "/",
			want: urlpattern.PatternCustomDomain,
		},
		{
			name: "custom domain with www",
			host: "www.acmecorp.com",
			path: "/",
			want: urlpattern.PatternCustomDomain,
		},
		{
			name: "base domain as suffix substring of another domain",
			host: "my" + baseDomain,
			path: "/",
			want: urlpattern.PatternCustomDomain,
		},
		{
			name: "nested subdomain of base classifies as custom domain",
			host: "a.b." + baseDomain,
			path: "/",
			want: urlpattern.PatternCustomDomain,
		},
		{
			name:    "empty host",
			host:    "",
			path:    "/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newMatcher().Detect(tt.host, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectExcludedSubdomains(t *testing.T) {
	for _, label := range []string{"www", "api", "admin", "platform", "mail"} {
		t.Run(label, func(t *testing.T) {
			_, err := newMatcher().Detect(label+"."+baseDomain, "/")
			require.Error(t, err)
			assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
		})
	}
}

func TestDetectRuntimeExclusion(t *testing.T) {
	m := newMatcher()

	pattern, err := m.Detect("status."+baseDomain, "/")
	require.NoError(t, err)
	assert.Equal(t, urlpattern.PatternSubdomain, pattern)

	m.AddExcludedSubdomain("status")
	_, err = m.Detect("status."+baseDomain, "/")
	assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
}

func TestExtractIdentifier(t *testing.T) {
	m := newMatcher()

	t.Run("subdomain label", func(t *testing.T) {
		id, err := m.ExtractIdentifier(urlpattern.PatternSubdomain, "acmecorp."+baseDomain, "/")
		require.NoError(t, err)
		assert.Equal(t, "acmecorp", id)
	})

	t.Run("max length label", func(t *testing.T) {
		label := strings.Repeat("a", 63)
		id, err := m.ExtractIdentifier(urlpattern.PatternSubdomain, label+"."+baseDomain, "/")
		require.NoError(t, err)
		assert.Equal(t, label, id)
	})

	t.Run("over length label", func(t *testing.T) {
		label := strings.Repeat("a", 64)
		_, err := m.ExtractIdentifier(urlpattern.PatternSubdomain, label+"."+baseDomain, "/")
		assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
	})

	t.Run("path first segment only", func(t *testing.T) {
		id, err := m.ExtractIdentifier(urlpattern.PatternPath, baseDomain, "/t/acme/dashboard")
		require.NoError(t, err)
		assert.Equal(t, "acme", id)
	})

	t.Run("path missing segment", func(t *testing.T) {
		_, err := m.ExtractIdentifier(urlpattern.PatternPath, baseDomain, "/t/")
		assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
	})

	t.Run("custom domain returns host unchanged", func(t *testing.T) {
		id, err := m.ExtractIdentifier(urlpattern.PatternCustomDomain, "shop.acme.co.uk", "/")
		require.NoError(t, err)
		assert.Equal(t, "shop.acme.co.uk", id)
	})

	t.Run("host with port", func(t *testing.T) {
		id, err := m.ExtractIdentifier(urlpattern.PatternSubdomain, "acmecorp."+baseDomain+":8080", "/")
		require.NoError(t, err)
		assert.Equal(t, "acmecorp", id)
	})

	t.Run("unknown pattern", func(t *testing.T) {
		_, err := m.ExtractIdentifier(urlpattern.Pattern("bogus"), "acmecorp.com", "/")
		assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
	})
}

func TestFluentReconfiguration(t *testing.T) {
	m := urlpattern.NewMatcher("old.example.com").
		SetBaseDomain("new.example.com").
		SetPathPrefix("/shops/").
		SetExcludedSubdomains([]string{"www"})

	assert.Equal(t, "new.example.com", m.BaseDomain())
	assert.Equal(t, "shops", m.PathPrefix())

	pattern, err := m.Detect("tenant.new.example.com", "/")
	require.NoError(t, err)
	assert.Equal(t, urlpattern.PatternSubdomain, pattern)

	pattern, err = m.Detect("new.example.com", "/shops/acme")
	require.NoError(t, err)
	assert.Equal(t, urlpattern.PatternPath, pattern)

	// Previously excluded default no longer applies after replacement.
	pattern, err = m.Detect("api.new.example.com", "/")
	require.NoError(t, err)
	assert.Equal(t, urlpattern.PatternSubdomain, pattern)

	_, err = m.Detect("www.new.example.com", "/")
	assert.ErrorIs(t, err, urlpattern.ErrInvalidURLPattern)
}

func TestNewMatcherFromConfig(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		m := urlpattern.NewMatcherFromConfig(urlpattern.Config{
			BaseDomain:         "platform.example.com",
			ExcludedSubdomains: []string{"cdn", "status"},
			PathPrefix:         "shops",
		})

		assert.Equal(t, "platform.example.com", m.BaseDomain())
		assert.Equal(t, "shops", m.PathPrefix())
		assert.True(t, m.IsExcluded("cdn"))
		assert.False(t, m.IsExcluded("www"))
	})

	t.Run("defaults preserved", func(t *testing.T) {
		m := urlpattern.NewMatcherFromConfig(urlpattern.Config{BaseDomain: baseDomain})

		assert.Equal(t, "t", m.PathPrefix())
		assert.True(t, m.IsExcluded("www"))
		assert.True(t, m.IsExcluded("api"))
	})
}
