package certs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"golang.org/x/crypto/acme"
)

// Step names one stage of the provisioning sequence for failure reporting
// and logging.
type Step string

const (
	StepAccountKey     Step = "account_key"
	StepDirectory      Step = "directory"
	StepOrder          Step = "order"
	StepAuthorization  Step = "authorization"
	StepChallengeSetup Step = "challenge_setup"
	StepValidation     Step = "validation"
	StepCSR            Step = "csr"
	StepFinalize       Step = "finalize"
	StepPersist        Step = "persist"
)

// ProvisionResult is the structured outcome of one provisioning attempt.
// Either Success is true and every artifact field is populated, or Success
// is false and Step/Error identify the failing stage, never a mix.
type ProvisionResult struct {
	Success         bool      `json:"success"`
	Domain          string    `json:"domain"`
	CertificatePath string    `json:"certificate_path,omitempty"`
	PrivateKeyPath  string    `json:"private_key_path,omitempty"`
	FullChainPath   string    `json:"fullchain_path,omitempty"`
	IssuedAt        time.Time `json:"issued_at,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	Step            Step      `json:"step,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// Config holds provisioner configuration.
type Config struct {
	// Email is the ACME account contact. Required.
	Email string `env:"ACME_EMAIL"`

	// DirectoryURL overrides the authority endpoint. When empty, Staging
	// selects between the Let's Encrypt staging and production directories.
	DirectoryURL string `env:"ACME_DIRECTORY_URL"`
	Staging      bool   `env:"ACME_STAGING" envDefault:"false"`

	// StorageDir roots the filesystem bundle store and the account key
	// pair. Ignored for bundles when a custom Store is injected.
	StorageDir string `env:"CERT_STORAGE_DIR"`

	// ChallengeDir is the webroot the TLS edge serves
	// /.well-known/acme-challenge/ from. Required for http-01.
	ChallengeDir string `env:"ACME_CHALLENGE_DIR"`

	// ChallengeType selects the proof mechanism; when the authority does
	// not offer it the first offered challenge is used instead.
	ChallengeType string `env:"ACME_CHALLENGE_TYPE" envDefault:"http-01"`

	// KeySize selects the RSA modulus for both the account key and the
	// per-domain keys.
	KeySize int `env:"ACME_KEY_SIZE" envDefault:"4096"`

	// Passphrase, when set, encrypts domain private keys at rest.
	Passphrase string `env:"CERT_KEY_PASSPHRASE"`

	DirectoryTimeout  time.Duration `env:"ACME_DIRECTORY_TIMEOUT" envDefault:"30s"`
	PropagationWait   time.Duration `env:"ACME_PROPAGATION_WAIT" envDefault:"5s"`
	ValidationTimeout time.Duration `env:"ACME_VALIDATION_TIMEOUT" envDefault:"2m"`
}

// Provisioner issues, renews, revokes, and inspects certificates for
// verified custom domains. Safe for concurrent use across different
// domains; the caller serializes runs for the same domain.
type Provisioner struct {
	cfg           Config
	keyType       certcrypto.KeyType
	store         Store
	accountKeys   *AccountKeyStore
	clientFactory ClientFactory
	logger        *slog.Logger
}

// Option configures a Provisioner during construction.
type Option func(*Provisioner)

// WithStore replaces the filesystem bundle store, e.g. with the S3-backed
// store for multi-node edges.
func WithStore(store Store) Option {
	return func(p *Provisioner) {
		if store != nil {
			p.store = store
		}
	}
}

// WithAccountKeyStore replaces the account key location.
func WithAccountKeyStore(store *AccountKeyStore) Option {
	return func(p *Provisioner) {
		if store != nil {
			p.accountKeys = store
		}
	}
}

// WithClientFactory replaces the ACME protocol client, primarily for tests.
func WithClientFactory(factory ClientFactory) Option {
	return func(p *Provisioner) {
		if factory != nil {
			p.clientFactory = factory
		}
	}
}

// WithLogger sets the logger for step diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Provisioner from configuration.
func New(cfg Config, opts ...Option) (*Provisioner, error) {
	if cfg.Email == "" {
		return nil, ErrEmailRequired
	}
	if cfg.ChallengeType == "" {
		cfg.ChallengeType = ChallengeHTTP01
	}
	if cfg.ChallengeType == ChallengeHTTP01 && cfg.ChallengeDir == "" {
		return nil, ErrChallengeDirRequired
	}
	if cfg.DirectoryTimeout <= 0 {
		cfg.DirectoryTimeout = 30 * time.Second
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 2 * time.Minute
	}

	p := &Provisioner{
		cfg:           cfg,
		keyType:       keyTypeForSize(cfg.KeySize),
		clientFactory: defaultClientFactory,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.store == nil {
		store, err := NewFSStore(cfg.StorageDir)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	if p.accountKeys == nil {
		if cfg.StorageDir == "" {
			return nil, ErrStorageRequired
		}
		p.accountKeys = NewAccountKeyStore(cfg.StorageDir, p.keyType)
	}

	return p, nil
}

// DirectoryURL returns the effective authority endpoint.
func (p *Provisioner) DirectoryURL() string {
	if p.cfg.DirectoryURL != "" {
		return p.cfg.DirectoryURL
	}
	if p.cfg.Staging {
		return LetsEncryptStaging
	}
	return LetsEncryptProduction
}

// Provision runs one full issuance attempt for the domain. It never
// retries; scheduling-level retries and per-domain serialization belong to
// the caller.
func (p *Provisioner) Provision(ctx context.Context, domain string) ProvisionResult {
	if domain == "" {
		return p.fail(ctx, domain, StepOrder, ErrInvalidDomain)
	}

	// Step 1: account key, long-lived and shared across all domains.
	accountKey, err := p.accountKeys.LoadOrCreate()
	if err != nil {
		return p.fail(ctx, domain, StepAccountKey, err)
	}

	client := p.clientFactory(accountKey, p.DirectoryURL())

	// Step 2: directory discovery plus account registration. No directory,
	// no order.
	dirCtx, cancel := context.WithTimeout(ctx, p.cfg.DirectoryTimeout)
	_, err = client.Discover(dirCtx)
	cancel()
	if err != nil {
		return p.fail(ctx, domain, StepDirectory, err)
	}
	account := &acme.Account{Contact: []string{"mailto:" + p.cfg.Email}}
	if _, err := client.Register(ctx, account, acme.AcceptTOS); err != nil && !errors.Is(err, acme.ErrAccountAlreadyExists) {
		return p.fail(ctx, domain, StepDirectory, err)
	}

	// Step 3: order naming the domain as a DNS identifier.
	order, err := client.AuthorizeOrder(ctx, acme.DomainIDs(domain))
	if err != nil {
		return p.fail(ctx, domain, StepOrder, err)
	}
	if len(order.AuthzURLs) == 0 {
		return p.fail(ctx, domain, StepOrder, errors.New("order carries no authorizations"))
	}

	// Step 4: authorization and challenge selection.
	authz, err := client.GetAuthorization(ctx, order.AuthzURLs[0])
	if err != nil {
		return p.fail(ctx, domain, StepAuthorization, err)
	}
	chal := selectChallenge(authz, p.cfg.ChallengeType)
	if chal == nil {
		return p.fail(ctx, domain, StepAuthorization, errors.New("authorization offers no challenges"))
	}

	// Step 5: place the key authorization where the edge serves it.
	challengePath, err := p.setupChallenge(client, chal)
	if err != nil {
		return p.fail(ctx, domain, StepChallengeSetup, err)
	}
	defer p.cleanupChallenge(ctx, domain, challengePath)

	// Step 6: signal the authority and wait out propagation, bounded.
	if _, err := client.Accept(ctx, chal); err != nil {
		return p.fail(ctx, domain, StepValidation, err)
	}
	if err := sleepCtx(ctx, p.cfg.PropagationWait); err != nil {
		return p.fail(ctx, domain, StepValidation, err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ValidationTimeout)
	_, err = client.WaitAuthorization(waitCtx, authz.URI)
	cancel()
	if err != nil {
		return p.fail(ctx, domain, StepValidation, err)
	}

	// Step 7: fresh domain key, independent from the account key, and CSR.
	domainKey, err := certcrypto.GeneratePrivateKey(p.keyType)
	if err != nil {
		return p.fail(ctx, domain, StepCSR, err)
	}
	csr, err := certcrypto.GenerateCSR(domainKey, domain, []string{domain}, false)
	if err != nil {
		return p.fail(ctx, domain, StepCSR, err)
	}

	// Step 8: finalize the order and retrieve the issued chain.
	der, _, err := client.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return p.fail(ctx, domain, StepFinalize, err)
	}
	if len(der) == 0 {
		return p.fail(ctx, domain, StepFinalize, errors.New("authority returned an empty certificate chain"))
	}
	leaf, err := x509.ParseCertificate(der[0])
	if err != nil {
		return p.fail(ctx, domain, StepFinalize, fmt.Errorf("parse issued certificate: %w", err))
	}

	// Step 9: persist the complete bundle, and only the complete bundle.
	keyPEM, err := p.encodeDomainKey(domainKey)
	if err != nil {
		return p.fail(ctx, domain, StepPersist, err)
	}
	paths, err := p.store.PutBundle(ctx, domain, Bundle{
		Certificate: pemEncodeCert(der[0]),
		PrivateKey:  keyPEM,
		FullChain:   pemEncodeChain(der),
	})
	if err != nil {
		return p.fail(ctx, domain, StepPersist, err)
	}

	p.logger.InfoContext(ctx, "certificate provisioned",
		slog.String("domain", domain),
		slog.Time("expires_at", leaf.NotAfter))

	return ProvisionResult{
		Success:         true,
		Domain:          domain,
		CertificatePath: paths.CertificatePath,
		PrivateKeyPath:  paths.PrivateKeyPath,
		FullChainPath:   paths.FullChainPath,
		IssuedAt:        leaf.NotBefore,
		ExpiresAt:       leaf.NotAfter,
	}
}

// Renew re-runs issuance for the domain. There is no differential renewal
// logic; a successful run supersedes the stored bundle wholesale, which
// makes renewal idempotent and safe to re-trigger on a schedule.
func (p *Provisioner) Renew(ctx context.Context, domain string) ProvisionResult {
	return p.Provision(ctx, domain)
}

// Revoke deletes the domain's stored bundle. It returns false without an
// error when nothing was present, so callers can tell "already absent"
// from "revocation failed".
func (p *Provisioner) Revoke(ctx context.Context, domain string) (bool, error) {
	removed, err := p.store.Delete(ctx, domain)
	if err != nil {
		p.logger.ErrorContext(ctx, "certificate revocation failed",
			slog.String("domain", domain),
			slog.Any("error", err))
		return false, err
	}
	p.logger.InfoContext(ctx, "certificate revoked",
		slog.String("domain", domain),
		slog.Bool("was_present", removed))
	return removed, nil
}

// Store exposes the bundle store for collaborators such as the renewal
// scheduler.
func (p *Provisioner) Store() Store {
	return p.store
}

func (p *Provisioner) fail(ctx context.Context, domain string, step Step, err error) ProvisionResult {
	p.logger.ErrorContext(ctx, "certificate provisioning failed",
		slog.String("domain", domain),
		slog.String("step", string(step)),
		slog.Any("error", err))
	return ProvisionResult{Domain: domain, Step: step, Error: err.Error()}
}

// setupChallenge writes the key authorization under the webroot. The
// webroot itself must already exist and be writable; only the well-known
// subpath is created on demand.
func (p *Provisioner) setupChallenge(client AuthorityClient, chal *acme.Challenge) (string, error) {
	keyAuth, err := client.HTTP01ChallengeResponse(chal.Token)
	if err != nil {
		return "", fmt.Errorf("compute key authorization: %w", err)
	}

	if _, err := os.Stat(p.cfg.ChallengeDir); err != nil {
		return "", fmt.Errorf("challenge directory %q not usable: %w", p.cfg.ChallengeDir, err)
	}

	dir := filepath.Join(p.cfg.ChallengeDir, ".well-known", "acme-challenge")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create challenge path: %w", err)
	}

	path := filepath.Join(dir, chal.Token)
	if err := os.WriteFile(path, []byte(keyAuth), 0644); err != nil {
		return "", fmt.Errorf("write challenge file: %w", err)
	}
	return path, nil
}

func (p *Provisioner) cleanupChallenge(ctx context.Context, domain, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.WarnContext(ctx, "failed to clean up challenge file",
			slog.String("domain", domain),
			slog.String("path", path),
			slog.Any("error", err))
	}
}

func (p *Provisioner) encodeDomainKey(key crypto.PrivateKey) ([]byte, error) {
	keyPEM := certcrypto.PEMEncode(key)
	if p.cfg.Passphrase == "" {
		return keyPEM, nil
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("encode domain key: invalid PEM")
	}
	// Legacy PEM encryption, understood by every TLS terminator the
	// platform fronts.
	enc, err := x509.EncryptPEMBlock(rand.Reader, block.Type, block.Bytes, []byte(p.cfg.Passphrase), x509.PEMCipherAES256) //nolint:staticcheck
	if err != nil {
		return nil, fmt.Errorf("encrypt domain key: %w", err)
	}
	return pem.EncodeToMemory(enc), nil
}

// selectChallenge prefers the configured type and falls back to the first
// offered challenge when the authority does not support it.
func selectChallenge(authz *acme.Authorization, preferred string) *acme.Challenge {
	for _, chal := range authz.Challenges {
		if chal.Type == preferred {
			return chal
		}
	}
	if len(authz.Challenges) > 0 {
		return authz.Challenges[0]
	}
	return nil
}

func keyTypeForSize(size int) certcrypto.KeyType {
	switch size {
	case 2048:
		return certcrypto.RSA2048
	case 3072:
		return certcrypto.RSA3072
	case 8192:
		return certcrypto.RSA8192
	default:
		return certcrypto.RSA4096
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func pemEncodeCert(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func pemEncodeChain(der [][]byte) []byte {
	var out []byte
	for _, cert := range der {
		out = append(out, pemEncodeCert(cert)...)
	}
	return out
}
