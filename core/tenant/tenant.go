package tenant

import (
	"time"

	"github.com/google/uuid"

	"github.com/canvastack/stencil/core/urlpattern"
)

// Status describes the lifecycle state of a tenant account.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
	StatusClosed    Status = "closed"
)

// SubscriptionStatus describes the billing state of a tenant.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Tenant is a business occupying the platform. Tenants are created by the
// provisioning flow and never physically deleted while URL configurations
// reference them.
type Tenant struct {
	ID                    uuid.UUID
	Name                  string
	Slug                  string
	Status                Status
	SubscriptionStatus    SubscriptionStatus
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
}

// IsActive reports whether the tenant may receive traffic.
func (t Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// SubscriptionExpired reports whether the tenant's subscription expiry, if
// set, is in the past. Read traffic is not gated on this; write operations
// at the platform layer are.
func (t Tenant) SubscriptionExpired() bool {
	return t.SubscriptionExpiresAt != nil && t.SubscriptionExpiresAt.Before(time.Now())
}

// URLConfig binds a tenant to one addressing mechanism. Exactly one of
// Subdomain, URLPath, or CustomDomainID is populated, consistent with
// Pattern. Uniqueness of primary configurations per pattern is enforced at
// write time by the data layer, not here.
type URLConfig struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Pattern        urlpattern.Pattern
	Subdomain      string
	URLPath        string
	CustomDomainID uuid.UUID
	Primary        bool
	Enabled        bool
}

// CustomDomain is a tenant-supplied DNS name. It must be both verified and
// active before resolution through it succeeds.
type CustomDomain struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Domain            string
	Verified          bool
	Active            bool
	VerificationToken string
	VerifiedAt        *time.Time
	CreatedAt         time.Time
}

// Data is a read-only projection of a resolved tenant for contexts that
// need a serializable snapshot rather than the full entity. It is never a
// second source of truth.
type Data struct {
	ID       uuid.UUID `json:"id"`
	Slug     string    `json:"slug"`
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	IsActive bool      `json:"is_active"`
}

func dataFrom(t *Tenant) Data {
	return Data{
		ID:       t.ID,
		Slug:     t.Slug,
		Name:     t.Name,
		Status:   t.Status,
		IsActive: t.IsActive(),
	}
}
