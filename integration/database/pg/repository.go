package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/canvastack/stencil/core/tenant"
)

// Repository implements the core/tenant repository interfaces over
// PostgreSQL. A single type covers all three because resolution always
// needs them together and they share one pool.
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ tenant.TenantRepository       = (*Repository)(nil)
	_ tenant.URLConfigRepository    = (*Repository)(nil)
	_ tenant.CustomDomainRepository = (*Repository)(nil)
)

// NewRepository creates a Repository over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// db returns the ambient transaction when one is attached to the context,
// otherwise the pool.
func (r *Repository) db(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

const tenantColumns = `id, name, slug, status, subscription_status, subscription_expires_at, created_at`

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.SubscriptionStatus,
		&t.SubscriptionExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("query tenant: %w", err)
	}
	return &t, nil
}

const urlConfigColumns = `id, tenant_id, pattern, COALESCE(subdomain, ''), COALESCE(url_path, ''), COALESCE(custom_domain_id, '00000000-0000-0000-0000-000000000000'::uuid), is_primary, enabled`

func (r *Repository) FindBySubdomain(ctx context.Context, subdomain string) (*tenant.URLConfig, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+urlConfigColumns+` FROM tenant_url_configurations WHERE subdomain = $1`, subdomain)
	return scanURLConfig(row)
}

func (r *Repository) FindByURLPath(ctx context.Context, path string) (*tenant.URLConfig, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+urlConfigColumns+` FROM tenant_url_configurations WHERE url_path = $1`, path)
	return scanURLConfig(row)
}

func (r *Repository) FindByCustomDomainID(ctx context.Context, id uuid.UUID) (*tenant.URLConfig, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+urlConfigColumns+` FROM tenant_url_configurations WHERE custom_domain_id = $1`, id)
	return scanURLConfig(row)
}

func scanURLConfig(row pgx.Row) (*tenant.URLConfig, error) {
	var cfg tenant.URLConfig
	err := row.Scan(&cfg.ID, &cfg.TenantID, &cfg.Pattern, &cfg.Subdomain,
		&cfg.URLPath, &cfg.CustomDomainID, &cfg.Primary, &cfg.Enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("query url configuration: %w", err)
	}
	return &cfg, nil
}

const customDomainColumns = `id, tenant_id, domain, verified, active, verification_token, verified_at, created_at`

func (r *Repository) FindByDomain(ctx context.Context, domain string) (*tenant.CustomDomain, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+customDomainColumns+` FROM custom_domains WHERE domain = $1`, domain)
	return scanCustomDomain(row)
}

func scanCustomDomain(row pgx.Row) (*tenant.CustomDomain, error) {
	var d tenant.CustomDomain
	err := row.Scan(&d.ID, &d.TenantID, &d.Domain, &d.Verified, &d.Active,
		&d.VerificationToken, &d.VerifiedAt, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrNotFound
		}
		return nil, fmt.Errorf("query custom domain: %w", err)
	}
	return &d, nil
}

// CreateCustomDomain inserts a pending, unverified custom domain.
func (r *Repository) CreateCustomDomain(ctx context.Context, d *tenant.CustomDomain) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO custom_domains (id, tenant_id, domain, verified, active, verification_token, verified_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.TenantID, d.Domain, d.Verified, d.Active, d.VerificationToken, d.VerifiedAt, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create custom domain: %w", err)
	}
	return nil
}

// MarkDomainVerified records successful ownership verification.
func (r *Repository) MarkDomainVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE custom_domains SET verified = TRUE, verified_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark custom domain verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

// SetDomainActive toggles whether a verified domain serves traffic.
func (r *Repository) SetDomainActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE custom_domains SET active = $2 WHERE id = $1 AND verified`, id, active)
	if err != nil {
		return fmt.Errorf("set custom domain active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}
