package tenant

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository looks up tenant records. Implementations return
// ErrNotFound when no record exists; any other error is treated as a
// storage failure and propagated.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// URLConfigRepository looks up addressing configurations by each of the
// three identifier kinds.
type URLConfigRepository interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*URLConfig, error)
	FindByURLPath(ctx context.Context, path string) (*URLConfig, error)
	FindByCustomDomainID(ctx context.Context, id uuid.UUID) (*URLConfig, error)
}

// CustomDomainRepository looks up custom domains by their DNS name.
type CustomDomainRepository interface {
	FindByDomain(ctx context.Context, domain string) (*CustomDomain, error)
}
