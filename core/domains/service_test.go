package domains_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvastack/stencil/core/certs"
	"github.com/canvastack/stencil/core/dns"
	"github.com/canvastack/stencil/core/domains"
	"github.com/canvastack/stencil/core/tenant"
)

type memRepo struct {
	mu      sync.Mutex
	byName  map[string]*tenant.CustomDomain
	writeErr error
}

func newMemRepo() *memRepo {
	return &memRepo{byName: make(map[string]*tenant.CustomDomain)}
}

func (r *memRepo) FindByDomain(_ context.Context, domain string) (*tenant.CustomDomain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[domain]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *memRepo) CreateCustomDomain(_ context.Context, d *tenant.CustomDomain) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *d
	r.byName[d.Domain] = &copied
	return nil
}

func (r *memRepo) MarkDomainVerified(_ context.Context, id uuid.UUID) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byName {
		if d.ID == id {
			d.Verified = true
			now := time.Now()
			d.VerifiedAt = &now
			return nil
		}
	}
	return tenant.ErrNotFound
}

func (r *memRepo) SetDomainActive(_ context.Context, id uuid.UUID, active bool) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byName {
		if d.ID == id {
			d.Active = active
			return nil
		}
	}
	return tenant.ErrNotFound
}

type stubIssuer struct {
	mu      sync.Mutex
	domains []string
	fail    bool
}

func (i *stubIssuer) Provision(_ context.Context, domain string) certs.ProvisionResult {
	i.mu.Lock()
	i.domains = append(i.domains, domain)
	i.mu.Unlock()
	if i.fail {
		return certs.ProvisionResult{Domain: domain, Step: certs.StepValidation, Error: "boom"}
	}
	return certs.ProvisionResult{Success: true, Domain: domain}
}

// tokenResolver serves the repo's current token for every registered
// domain, simulating an operator who placed the TXT record correctly.
func tokenResolver(repo *memRepo) domains.LookupTXTFunc {
	return func(_ context.Context, name string) ([]string, error) {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		for domain, d := range repo.byName {
			if name == domains.DefaultRecordPrefix+"."+domain {
				return []string{"unrelated-record", d.VerificationToken}, nil
			}
		}
		return nil, errors.New("NXDOMAIN")
	}
}

func newTestService(t *testing.T, repo *memRepo, opts ...domains.Option) *domains.Service {
	t.Helper()
	provider, err := dns.New(context.Background(), dns.ProviderConfig{Driver: dns.ManualDriverName})
	require.NoError(t, err)

	service, err := domains.New(repo, provider, opts...)
	require.NoError(t, err)
	return service
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	provider, err := dns.New(context.Background(), dns.ProviderConfig{})
	require.NoError(t, err)

	_, err = domains.New(nil, provider)
	assert.ErrorIs(t, err, domains.ErrRepositoryNil)

	_, err = domains.New(newMemRepo(), nil)
	assert.ErrorIs(t, err, domains.ErrProviderNil)
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores an unverified domain with a token", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		service := newTestService(t, repo)
		tenantID := uuid.New()

		registered, setup, err := service.Register(ctx, tenantID, "Shop.AcmeCorp.com.")
		require.NoError(t, err)

		assert.Equal(t, "shop.acmecorp.com", registered.Domain)
		assert.Equal(t, tenantID, registered.TenantID)
		assert.False(t, registered.Verified)
		assert.False(t, registered.Active)
		assert.NotEmpty(t, registered.VerificationToken)

		// The manual provider cannot place records; it instructs instead.
		assert.True(t, setup.Success)
		assert.NotEmpty(t, setup.Message)

		stored, err := repo.FindByDomain(ctx, "shop.acmecorp.com")
		require.NoError(t, err)
		assert.Equal(t, registered.VerificationToken, stored.VerificationToken)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		service := newTestService(t, repo)

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		_, _, err = service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		assert.ErrorIs(t, err, domains.ErrAlreadyRegistered)
	})

	t.Run("rejects malformed domains", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, newMemRepo())

		for _, domain := range []string{"", "   ", "nodots", "https://x.com", "a b.com"} {
			_, _, err := service.Register(ctx, uuid.New(), domain)
			assert.ErrorIs(t, err, domains.ErrDomainRequired, "domain %q", domain)
		}
	})

	t.Run("tokens are unique per registration", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		service := newTestService(t, repo)

		first, _, err := service.Register(ctx, uuid.New(), "a.example.com")
		require.NoError(t, err)
		second, _, err := service.Register(ctx, uuid.New(), "b.example.com")
		require.NoError(t, err)

		assert.NotEqual(t, first.VerificationToken, second.VerificationToken)
	})
}

func TestService_Verify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("marks verified and active and issues a certificate", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		issuer := &stubIssuer{}
		service := newTestService(t, repo,
			domains.WithLookupTXT(tokenResolver(repo)),
			domains.WithCertIssuer(issuer))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		require.NoError(t, service.Verify(ctx, "shop.acmecorp.com"))

		stored, err := repo.FindByDomain(ctx, "shop.acmecorp.com")
		require.NoError(t, err)
		assert.True(t, stored.Verified)
		assert.True(t, stored.Active)
		assert.NotNil(t, stored.VerifiedAt)
		assert.Equal(t, []string{"shop.acmecorp.com"}, issuer.domains)
	})

	t.Run("fails when the token does not match", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		service := newTestService(t, repo,
			domains.WithLookupTXT(func(context.Context, string) ([]string, error) {
				return []string{"stencil-verify-wrong"}, nil
			}))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		err = service.Verify(ctx, "shop.acmecorp.com")
		assert.ErrorIs(t, err, domains.ErrVerificationFailed)

		stored, err := repo.FindByDomain(ctx, "shop.acmecorp.com")
		require.NoError(t, err)
		assert.False(t, stored.Verified)
	})

	t.Run("fails when the record is absent", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		service := newTestService(t, repo,
			domains.WithLookupTXT(func(context.Context, string) ([]string, error) {
				return nil, errors.New("NXDOMAIN")
			}))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		assert.ErrorIs(t, service.Verify(ctx, "shop.acmecorp.com"), domains.ErrVerificationFailed)
	})

	t.Run("is idempotent for verified domains", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		issuer := &stubIssuer{}
		service := newTestService(t, repo,
			domains.WithLookupTXT(tokenResolver(repo)),
			domains.WithCertIssuer(issuer))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)
		require.NoError(t, service.Verify(ctx, "shop.acmecorp.com"))
		require.NoError(t, service.Verify(ctx, "shop.acmecorp.com"))

		// Issuance ran once; the second Verify short-circuited.
		assert.Len(t, issuer.domains, 1)
	})

	t.Run("keeps the domain verified when issuance fails", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		issuer := &stubIssuer{fail: true}
		service := newTestService(t, repo,
			domains.WithLookupTXT(tokenResolver(repo)),
			domains.WithCertIssuer(issuer))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		err = service.Verify(ctx, "shop.acmecorp.com")
		assert.ErrorIs(t, err, domains.ErrIssuanceFailed)

		stored, err := repo.FindByDomain(ctx, "shop.acmecorp.com")
		require.NoError(t, err)
		assert.True(t, stored.Verified)
		assert.True(t, stored.Active)
	})

	t.Run("unknown domain", func(t *testing.T) {
		t.Parallel()
		service := newTestService(t, newMemRepo())
		assert.ErrorIs(t, service.Verify(ctx, "missing.example.com"), tenant.ErrNotFound)
	})
}

func TestService_WaitVerified(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("succeeds once the record propagates", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()

		var mu sync.Mutex
		attempts := 0
		service := newTestService(t, repo,
			domains.WithPollInterval(5*time.Millisecond),
			domains.WithLookupTXT(func(ctx context.Context, name string) ([]string, error) {
				mu.Lock()
				attempts++
				ready := attempts >= 3
				mu.Unlock()
				if !ready {
					return nil, errors.New("NXDOMAIN")
				}
				return tokenResolver(repo)(ctx, name)
			}))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		require.NoError(t, service.WaitVerified(ctx, "shop.acmecorp.com", time.Second))

		stored, err := repo.FindByDomain(ctx, "shop.acmecorp.com")
		require.NoError(t, err)
		assert.True(t, stored.Verified)
	})

	t.Run("times out when the record never appears", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		service := newTestService(t, repo,
			domains.WithPollInterval(5*time.Millisecond),
			domains.WithLookupTXT(func(context.Context, string) ([]string, error) {
				return nil, errors.New("NXDOMAIN")
			}))

		_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
		require.NoError(t, err)

		err = service.WaitVerified(ctx, "shop.acmecorp.com", 30*time.Millisecond)
		assert.ErrorIs(t, err, domains.ErrVerificationTimeout)
	})
}

func TestService_SuspendReactivate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemRepo()
	service := newTestService(t, repo, domains.WithLookupTXT(tokenResolver(repo)))

	_, _, err := service.Register(ctx, uuid.New(), "shop.acmecorp.com")
	require.NoError(t, err)
	require.NoError(t, service.Verify(ctx, "shop.acmecorp.com"))

	require.NoError(t, service.Suspend(ctx, "shop.acmecorp.com"))
	stored, err := repo.FindByDomain(ctx, "shop.acmecorp.com")
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.True(t, stored.Verified, "suspension keeps verification")

	require.NoError(t, service.Reactivate(ctx, "shop.acmecorp.com"))
	stored, err = repo.FindByDomain(ctx, "shop.acmecorp.com")
	require.NoError(t, err)
	assert.True(t, stored.Active)
}
