package renewal_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvastack/stencil/core/certs"
	"github.com/canvastack/stencil/core/renewal"
)

func certPEM(t *testing.T, domain string, notAfter time.Time) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// memStore is an in-memory certs.Store holding certificates only; renewal
// never touches keys or chains directly.
type memStore struct {
	mu    sync.Mutex
	certs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{certs: make(map[string][]byte)}
}

func (s *memStore) PutBundle(_ context.Context, domain string, bundle certs.Bundle) (certs.BundlePaths, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[domain] = bundle.Certificate
	return certs.BundlePaths{}, nil
}

func (s *memStore) ReadCertificate(_ context.Context, domain string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.certs[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", certs.ErrCertificateNotFound, domain)
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, domain string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.certs[domain]
	delete(s.certs, domain)
	return ok, nil
}

func (s *memStore) Exists(_ context.Context, domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.certs[domain]
	return ok
}

func (s *memStore) ListDomains(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	domains := make([]string, 0, len(s.certs))
	for domain := range s.certs {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains, nil
}

func (s *memStore) put(t *testing.T, domain string, notAfter time.Time) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[domain] = certPEM(t, domain, notAfter)
}

// fakeProvisioner counts Renew calls and fails the first failures calls per
// domain before succeeding.
type fakeProvisioner struct {
	mu       sync.Mutex
	store    *memStore
	failures int
	calls    map[string]int
	block    chan struct{}
}

func newFakeProvisioner(store *memStore) *fakeProvisioner {
	return &fakeProvisioner{store: store, calls: make(map[string]int)}
}

func (p *fakeProvisioner) Renew(ctx context.Context, domain string) certs.ProvisionResult {
	if p.block != nil {
		<-p.block
	}

	p.mu.Lock()
	p.calls[domain]++
	attempt := p.calls[domain]
	p.mu.Unlock()

	if attempt <= p.failures {
		return certs.ProvisionResult{
			Domain: domain,
			Step:   certs.StepValidation,
			Error:  "challenge verification failed",
		}
	}

	fresh := time.Now().Add(90 * 24 * time.Hour)
	_, _ = p.store.PutBundle(ctx, domain, certs.Bundle{
		Certificate: mustCertPEM(domain, fresh),
		PrivateKey:  []byte("key"),
		FullChain:   []byte("chain"),
	})
	return certs.ProvisionResult{Success: true, Domain: domain, ExpiresAt: fresh}
}

func (p *fakeProvisioner) callCount(domain string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[domain]
}

func mustCertPEM(domain string, notAfter time.Time) []byte {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		panic(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	store := newMemStore()

	_, err := renewal.New(nil, store)
	assert.ErrorIs(t, err, renewal.ErrProvisionerNil)

	_, err = renewal.New(newFakeProvisioner(store), nil)
	assert.ErrorIs(t, err, renewal.ErrStoreNil)
}

func TestScheduler_Sweep(t *testing.T) {
	t.Parallel()

	t.Run("renews only certificates in the window", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.put(t, "due.example.com", time.Now().Add(10*24*time.Hour))
		store.put(t, "fresh.example.com", time.Now().Add(60*24*time.Hour))

		provisioner := newFakeProvisioner(store)
		scheduler, err := renewal.New(provisioner, store,
			renewal.WithRenewBefore(30*24*time.Hour))
		require.NoError(t, err)

		renewed, failed := scheduler.Sweep(context.Background())
		assert.Equal(t, 1, renewed)
		assert.Equal(t, 0, failed)
		assert.Equal(t, 1, provisioner.callCount("due.example.com"))
		assert.Equal(t, 0, provisioner.callCount("fresh.example.com"))

		// The renewed certificate is now outside the window.
		renewed, failed = scheduler.Sweep(context.Background())
		assert.Equal(t, 0, renewed)
		assert.Equal(t, 0, failed)
	})

	t.Run("treats an expired certificate as due", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.put(t, "expired.example.com", time.Now().Add(-time.Hour))

		provisioner := newFakeProvisioner(store)
		scheduler, err := renewal.New(provisioner, store)
		require.NoError(t, err)

		renewed, _ := scheduler.Sweep(context.Background())
		assert.Equal(t, 1, renewed)
	})

	t.Run("treats an unreadable certificate as due", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.certs["corrupt.example.com"] = []byte("not a certificate")

		provisioner := newFakeProvisioner(store)
		scheduler, err := renewal.New(provisioner, store)
		require.NoError(t, err)

		renewed, _ := scheduler.Sweep(context.Background())
		assert.Equal(t, 1, renewed)
	})

	t.Run("retries failed attempts up to the limit", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.put(t, "flaky.example.com", time.Now().Add(10*24*time.Hour))

		provisioner := newFakeProvisioner(store)
		provisioner.failures = 2
		scheduler, err := renewal.New(provisioner, store,
			renewal.WithMaxAttempts(3),
			renewal.WithRetryDelay(0))
		require.NoError(t, err)

		renewed, failed := scheduler.Sweep(context.Background())
		assert.Equal(t, 1, renewed)
		assert.Equal(t, 0, failed)
		assert.Equal(t, 3, provisioner.callCount("flaky.example.com"))
	})

	t.Run("reports domains that exhaust all attempts", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.put(t, "broken.example.com", time.Now().Add(10*24*time.Hour))

		provisioner := newFakeProvisioner(store)
		provisioner.failures = 10
		scheduler, err := renewal.New(provisioner, store,
			renewal.WithMaxAttempts(2),
			renewal.WithRetryDelay(0))
		require.NoError(t, err)

		renewed, failed := scheduler.Sweep(context.Background())
		assert.Equal(t, 0, renewed)
		assert.Equal(t, 1, failed)
		assert.Equal(t, 2, provisioner.callCount("broken.example.com"))

		stats := scheduler.Stats()
		assert.Equal(t, int64(1), stats.RenewalsFailed)
	})
}

func TestScheduler_RenewNow(t *testing.T) {
	t.Parallel()

	t.Run("renews regardless of expiry window", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.put(t, "fresh.example.com", time.Now().Add(60*24*time.Hour))

		provisioner := newFakeProvisioner(store)
		scheduler, err := renewal.New(provisioner, store)
		require.NoError(t, err)

		result, err := scheduler.RenewNow(context.Background(), "fresh.example.com")
		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("surfaces total failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		provisioner := newFakeProvisioner(store)
		provisioner.failures = 10
		scheduler, err := renewal.New(provisioner, store,
			renewal.WithMaxAttempts(1),
			renewal.WithRetryDelay(0))
		require.NoError(t, err)

		result, err := scheduler.RenewNow(context.Background(), "broken.example.com")
		require.ErrorIs(t, err, renewal.ErrRenewalFailed)
		assert.False(t, result.Success)
		assert.Equal(t, certs.StepValidation, result.Step)
	})

	t.Run("collapses concurrent renewals of the same domain", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		provisioner := newFakeProvisioner(store)
		provisioner.block = make(chan struct{})
		scheduler, err := renewal.New(provisioner, store)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = scheduler.RenewNow(context.Background(), "shared.example.com")
			}()
		}

		// Let all three goroutines pile up on the singleflight key before
		// releasing the provisioner.
		time.Sleep(50 * time.Millisecond)
		close(provisioner.block)
		wg.Wait()

		assert.Equal(t, 1, provisioner.callCount("shared.example.com"))
	})
}

func TestScheduler_Lifecycle(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.put(t, "due.example.com", time.Now().Add(10*24*time.Hour))

	provisioner := newFakeProvisioner(store)
	scheduler, err := renewal.New(provisioner, store,
		renewal.WithCheckInterval(time.Hour))
	require.NoError(t, err)

	assert.ErrorIs(t, scheduler.Healthcheck(context.Background()), renewal.ErrSchedulerNotRunning)
	assert.ErrorIs(t, scheduler.Stop(), renewal.ErrNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- scheduler.Start(ctx) }()

	// The initial sweep runs on start, before the first tick.
	require.Eventually(t, func() bool {
		return provisioner.callCount("due.example.com") == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.NoError(t, scheduler.Healthcheck(context.Background()))

	require.NoError(t, scheduler.Stop())
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, scheduler.Healthcheck(context.Background()), renewal.ErrSchedulerNotRunning)

	stats := scheduler.Stats()
	assert.Equal(t, int64(1), stats.RenewalsSucceeded)
	assert.False(t, stats.IsRunning)
}
