package certs

import (
	"context"
	"crypto"
	"net/http"
	"time"

	"golang.org/x/crypto/acme"
)

// ACME directory endpoints for Let's Encrypt.
const (
	LetsEncryptProduction = "https://acme-v02.api.letsencrypt.org/directory"
	LetsEncryptStaging    = "https://acme-staging-v02.api.letsencrypt.org/directory"
)

// ChallengeHTTP01 is the default proof-of-control mechanism.
const ChallengeHTTP01 = "http-01"

// AuthorityClient is the subset of the ACME protocol the provisioner
// drives. The default implementation wraps golang.org/x/crypto/acme; tests
// substitute a stub authority through WithClientFactory.
type AuthorityClient interface {
	Discover(ctx context.Context) (acme.Directory, error)
	Register(ctx context.Context, account *acme.Account, prompt func(tosURL string) bool) (*acme.Account, error)
	AuthorizeOrder(ctx context.Context, ids []acme.AuthzID) (*acme.Order, error)
	GetAuthorization(ctx context.Context, url string) (*acme.Authorization, error)
	Accept(ctx context.Context, chal *acme.Challenge) (*acme.Challenge, error)
	WaitAuthorization(ctx context.Context, url string) (*acme.Authorization, error)
	CreateOrderCert(ctx context.Context, finalizeURL string, csr []byte, bundle bool) ([][]byte, string, error)
	HTTP01ChallengeResponse(token string) (string, error)
}

// ClientFactory builds an AuthorityClient bound to an account key and
// directory endpoint.
type ClientFactory func(key crypto.Signer, directoryURL string) AuthorityClient

func defaultClientFactory(key crypto.Signer, directoryURL string) AuthorityClient {
	return &acmeClient{
		client: &acme.Client{
			Key:          key,
			DirectoryURL: directoryURL,
			HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		},
	}
}

type acmeClient struct {
	client *acme.Client
}

var _ AuthorityClient = (*acmeClient)(nil)

func (c *acmeClient) Discover(ctx context.Context) (acme.Directory, error) {
	return c.client.Discover(ctx)
}

func (c *acmeClient) Register(ctx context.Context, account *acme.Account, prompt func(string) bool) (*acme.Account, error) {
	return c.client.Register(ctx, account, prompt)
}

func (c *acmeClient) AuthorizeOrder(ctx context.Context, ids []acme.AuthzID) (*acme.Order, error) {
	return c.client.AuthorizeOrder(ctx, ids)
}

func (c *acmeClient) GetAuthorization(ctx context.Context, url string) (*acme.Authorization, error) {
	return c.client.GetAuthorization(ctx, url)
}

func (c *acmeClient) Accept(ctx context.Context, chal *acme.Challenge) (*acme.Challenge, error) {
	return c.client.Accept(ctx, chal)
}

func (c *acmeClient) WaitAuthorization(ctx context.Context, url string) (*acme.Authorization, error) {
	return c.client.WaitAuthorization(ctx, url)
}

func (c *acmeClient) CreateOrderCert(ctx context.Context, finalizeURL string, csr []byte, bundle bool) ([][]byte, string, error) {
	return c.client.CreateOrderCert(ctx, finalizeURL, csr, bundle)
}

func (c *acmeClient) HTTP01ChallengeResponse(token string) (string, error) {
	return c.client.HTTP01ChallengeResponse(token)
}
