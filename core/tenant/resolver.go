package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/canvastack/stencil/core/urlpattern"
)

// Resolver turns a detected URL pattern and extracted identifier into the
// tenant that owns it. Resolution is a pure per-request computation over
// the repositories; a single Resolver is safe to share across concurrent
// requests.
type Resolver struct {
	tenants TenantRepository
	configs URLConfigRepository
	domains CustomDomainRepository
	logger  *slog.Logger
}

// ResolverOption configures a Resolver during construction.
type ResolverOption func(*Resolver)

// WithLogger sets the logger used for lookup diagnostics. By default the
// resolver is silent.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over the platform's lookup repositories.
func NewResolver(tenants TenantRepository, configs URLConfigRepository, domains CustomDomainRepository, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		tenants: tenants,
		configs: configs,
		domains: domains,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tenant addressed by the pattern/identifier pair.
// Every check short-circuits with its own NotFoundError: existence before
// verification before activation before configuration lookup before tenant
// lookup. Storage failures other than absence propagate unchanged.
func (r *Resolver) Resolve(ctx context.Context, pattern urlpattern.Pattern, identifier string) (*Tenant, error) {
	cfg, err := r.lookupConfig(ctx, pattern, identifier)
	if err != nil {
		return nil, err
	}

	tn, err := r.tenants.FindByID(ctx, cfg.TenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A configuration pointing at a missing tenant is a data-layer
			// bug, but the caller still gets a typed not-found.
			r.logger.ErrorContext(ctx, "url configuration references missing tenant",
				slog.String("tenant_id", cfg.TenantID.String()),
				slog.String("pattern", string(pattern)),
				slog.String("identifier", identifier))
			return nil, notFound("no tenant for id: %s", cfg.TenantID)
		}
		return nil, fmt.Errorf("lookup tenant %s: %w", cfg.TenantID, err)
	}

	return tn, nil
}

// ResolveTenantData resolves like Resolve but returns the serializable
// projection instead of the full entity.
func (r *Resolver) ResolveTenantData(ctx context.Context, pattern urlpattern.Pattern, identifier string) (Data, error) {
	tn, err := r.Resolve(ctx, pattern, identifier)
	if err != nil {
		return Data{}, err
	}
	return dataFrom(tn), nil
}

// ValidateTenantAccess fails with a NotFoundError for any tenant whose
// status is not active. Kept separate from Resolve so call sites can
// resolve first for diagnostics and gate access second.
func (r *Resolver) ValidateTenantAccess(tn *Tenant) error {
	if tn == nil {
		return notFound("tenant is not active: <nil>")
	}
	if !tn.IsActive() {
		return notFound("tenant is not active: %s", tn.Slug)
	}
	return nil
}

func (r *Resolver) lookupConfig(ctx context.Context, pattern urlpattern.Pattern, identifier string) (*URLConfig, error) {
	switch pattern {
	case urlpattern.PatternSubdomain:
		return r.configByIdentifier(ctx, "subdomain", identifier, r.configs.FindBySubdomain)
	case urlpattern.PatternPath:
		return r.configByIdentifier(ctx, "path", identifier, r.configs.FindByURLPath)
	case urlpattern.PatternCustomDomain:
		return r.configByCustomDomain(ctx, identifier)
	default:
		return nil, notFound("no tenant for pattern: %s", pattern)
	}
}

// configByIdentifier covers the subdomain and path schemes, which share
// the same lookup shape and differ only in wording.
func (r *Resolver) configByIdentifier(ctx context.Context, kind, identifier string, find func(context.Context, string) (*URLConfig, error)) (*URLConfig, error) {
	cfg, err := find(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("no tenant for %s: %s", kind, identifier)
		}
		return nil, fmt.Errorf("lookup url configuration for %s %q: %w", kind, identifier, err)
	}
	if !cfg.Enabled {
		return nil, notFound("configuration inactive for %s: %s", kind, identifier)
	}
	return cfg, nil
}

func (r *Resolver) configByCustomDomain(ctx context.Context, domain string) (*URLConfig, error) {
	cd, err := r.domains.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("no tenant for custom domain: %s", domain)
		}
		return nil, fmt.Errorf("lookup custom domain %q: %w", domain, err)
	}
	if !cd.Verified {
		return nil, notFound("custom domain not verified: %s", domain)
	}
	if !cd.Active {
		return nil, notFound("custom domain is not active: %s", domain)
	}

	cfg, err := r.configs.FindByCustomDomainID(ctx, cd.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("no URL configuration for custom domain: %s", domain)
		}
		return nil, fmt.Errorf("lookup url configuration for custom domain %q: %w", domain, err)
	}
	if !cfg.Enabled {
		return nil, notFound("configuration inactive for custom domain: %s", domain)
	}
	return cfg, nil
}
