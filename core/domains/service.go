package domains

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/canvastack/stencil/core/certs"
	"github.com/canvastack/stencil/core/dns"
	"github.com/canvastack/stencil/core/tenant"
)

// DefaultRecordPrefix is the TXT record label placed in front of the
// domain being verified.
const DefaultRecordPrefix = "_stencil-verify"

// Repository is the persistence surface the lifecycle needs. The Postgres
// repository in integration/database/pg satisfies it.
type Repository interface {
	FindByDomain(ctx context.Context, domain string) (*tenant.CustomDomain, error)
	CreateCustomDomain(ctx context.Context, d *tenant.CustomDomain) error
	MarkDomainVerified(ctx context.Context, id uuid.UUID) error
	SetDomainActive(ctx context.Context, id uuid.UUID, active bool) error
}

// CertIssuer issues a certificate for a verified domain. *certs.Provisioner
// satisfies it.
type CertIssuer interface {
	Provision(ctx context.Context, domain string) certs.ProvisionResult
}

// LookupTXTFunc resolves TXT records for a name. Defaults to the system
// resolver; tests substitute a stub.
type LookupTXTFunc func(ctx context.Context, name string) ([]string, error)

// Service orchestrates the custom domain trust lifecycle.
type Service struct {
	repo         Repository
	provider     dns.Provider
	issuer       CertIssuer
	lookupTXT    LookupTXTFunc
	recordPrefix string
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Service during construction.
type Option func(*Service)

// WithCertIssuer enables automatic certificate issuance after verification.
func WithCertIssuer(issuer CertIssuer) Option {
	return func(s *Service) {
		if issuer != nil {
			s.issuer = issuer
		}
	}
}

// WithLookupTXT replaces the DNS resolver used for verification checks.
func WithLookupTXT(lookup LookupTXTFunc) Option {
	return func(s *Service) {
		if lookup != nil {
			s.lookupTXT = lookup
		}
	}
}

// WithRecordPrefix overrides the verification TXT record label.
func WithRecordPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.recordPrefix = prefix
		}
	}
}

// WithPollInterval sets the delay between WaitVerified checks.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithLogger sets the logger for lifecycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a domain trust service.
func New(repo Repository, provider dns.Provider, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if provider == nil {
		return nil, ErrProviderNil
	}

	s := &Service{
		repo:         repo,
		provider:     provider,
		recordPrefix: DefaultRecordPrefix,
		pollInterval: 30 * time.Second,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookupTXT: func(ctx context.Context, name string) ([]string, error) {
			return net.DefaultResolver.LookupTXT(ctx, name)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RecordName returns the fully qualified TXT record name for a domain.
func (s *Service) RecordName(domain string) string {
	return s.recordPrefix + "." + domain
}

// Register claims a domain for a tenant. The domain is stored unverified
// with a fresh token, and the verification TXT record is placed through
// the DNS provider. A provider that cannot place records (the manual
// driver) returns instructions in the setup result instead; registration
// itself still succeeds.
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, domain string) (*tenant.CustomDomain, dns.Result, error) {
	domain, err := normalizeDomain(domain)
	if err != nil {
		return nil, dns.Result{}, err
	}

	if _, err := s.repo.FindByDomain(ctx, domain); err == nil {
		return nil, dns.Result{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, domain)
	} else if !errors.Is(err, tenant.ErrNotFound) {
		return nil, dns.Result{}, fmt.Errorf("look up domain %s: %w", domain, err)
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, dns.Result{}, err
	}

	d := &tenant.CustomDomain{
		ID:                uuid.New(),
		TenantID:          tenantID,
		Domain:            domain,
		VerificationToken: token,
	}
	if err := s.repo.CreateCustomDomain(ctx, d); err != nil {
		return nil, dns.Result{}, fmt.Errorf("register domain %s: %w", domain, err)
	}

	setup := s.placeVerificationRecord(ctx, d)

	s.logger.InfoContext(ctx, "custom domain registered",
		slog.String("domain", domain),
		slog.String("tenant_id", tenantID.String()),
		slog.Bool("record_placed", setup.Success && setup.Record != nil))

	return d, setup, nil
}

// placeVerificationRecord creates the TXT record proving ownership. The
// returned Result carries the created record, or the manual provider's
// instructions, or the provider error for operator display.
func (s *Service) placeVerificationRecord(ctx context.Context, d *tenant.CustomDomain) dns.Result {
	zone := s.provider.GetZone(ctx, d.Domain)
	if !zone.Success || zone.Zone == nil {
		return zone
	}

	record := dns.Record{
		Type:    dns.TypeTXT,
		Name:    s.RecordName(d.Domain),
		Content: d.VerificationToken,
	}
	result := s.provider.CreateRecord(ctx, zone.Zone.ID, record)
	if !result.Success {
		s.logger.WarnContext(ctx, "failed to place verification record",
			slog.String("domain", d.Domain),
			slog.String("provider", s.provider.Name()),
			slog.String("error", result.Error))
	}
	return result
}

// Verify checks that the verification token is visible in public DNS and,
// on success, marks the domain verified and active and issues its
// certificate. Verify is idempotent: an already verified domain returns
// nil without touching DNS.
func (s *Service) Verify(ctx context.Context, domain string) error {
	domain, err := normalizeDomain(domain)
	if err != nil {
		return err
	}

	d, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		return fmt.Errorf("look up domain %s: %w", domain, err)
	}
	if d.Verified {
		return nil
	}

	records, err := s.lookupTXT(ctx, s.RecordName(domain))
	if err != nil {
		return fmt.Errorf("%w: lookup %s: %v", ErrVerificationFailed, s.RecordName(domain), err)
	}

	found := false
	for _, value := range records {
		if value == d.VerificationToken {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: token not found in TXT records of %s", ErrVerificationFailed, s.RecordName(domain))
	}

	if err := s.repo.MarkDomainVerified(ctx, d.ID); err != nil {
		return fmt.Errorf("mark domain %s verified: %w", domain, err)
	}
	if err := s.repo.SetDomainActive(ctx, d.ID, true); err != nil {
		return fmt.Errorf("activate domain %s: %w", domain, err)
	}

	s.logger.InfoContext(ctx, "custom domain verified",
		slog.String("domain", domain),
		slog.String("tenant_id", d.TenantID.String()))

	if s.issuer == nil {
		return nil
	}
	result := s.issuer.Provision(ctx, domain)
	if !result.Success {
		return fmt.Errorf("%w: %s at step %s: %s", ErrIssuanceFailed, domain, result.Step, result.Error)
	}
	return nil
}

// WaitVerified polls Verify until it succeeds, a non-retryable error
// occurs, or the timeout elapses.
func (s *Service) WaitVerified(ctx context.Context, domain string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := s.Verify(ctx, domain)
		if err == nil || !errors.Is(err, ErrVerificationFailed) {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrVerificationTimeout, domain)
		case <-time.After(s.pollInterval):
		}
	}
}

// Suspend deactivates a domain without discarding its verification. The
// resolver refuses suspended domains with a distinct message.
func (s *Service) Suspend(ctx context.Context, domain string) error {
	return s.setActive(ctx, domain, false)
}

// Reactivate re-enables a previously suspended domain.
func (s *Service) Reactivate(ctx context.Context, domain string) error {
	return s.setActive(ctx, domain, true)
}

func (s *Service) setActive(ctx context.Context, domain string, active bool) error {
	domain, err := normalizeDomain(domain)
	if err != nil {
		return err
	}
	d, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		return fmt.Errorf("look up domain %s: %w", domain, err)
	}
	if err := s.repo.SetDomainActive(ctx, d.ID, active); err != nil {
		return fmt.Errorf("set domain %s active=%t: %w", domain, active, err)
	}
	s.logger.InfoContext(ctx, "custom domain state changed",
		slog.String("domain", domain),
		slog.Bool("active", active))
	return nil
}

func normalizeDomain(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if domain == "" || strings.ContainsAny(domain, "/ :") || !strings.Contains(domain, ".") {
		return "", fmt.Errorf("%w: %q", ErrDomainRequired, domain)
	}
	return domain, nil
}

func newVerificationToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return "stencil-verify-" + hex.EncodeToString(buf), nil
}
