package certs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bundle is a complete certificate artifact set for one domain.
type Bundle struct {
	Certificate []byte
	PrivateKey  []byte
	FullChain   []byte
}

// BundlePaths locates the persisted artifacts of a bundle.
type BundlePaths struct {
	CertificatePath string `json:"certificate_path"`
	PrivateKeyPath  string `json:"private_key_path"`
	FullChainPath   string `json:"fullchain_path"`
}

// Bundle file names under domains/<domain>/.
const (
	CertificateFile = "certificate.pem"
	PrivateKeyFile  = "private.key"
	FullChainFile   = "fullchain.pem"
)

// Store persists certificate bundles keyed by domain. PutBundle must be
// atomic per domain: readers never observe a mix of old and new artifacts,
// and a failed write leaves the previous bundle intact.
type Store interface {
	PutBundle(ctx context.Context, domain string, bundle Bundle) (BundlePaths, error)
	ReadCertificate(ctx context.Context, domain string) ([]byte, error)
	// Delete removes the domain's bundle and reports whether anything was
	// present, distinguishing "already absent" from "deletion failed".
	Delete(ctx context.Context, domain string) (bool, error)
	Exists(ctx context.Context, domain string) bool
	ListDomains(ctx context.Context) ([]string, error)
}

// FSStore keeps bundles on the local filesystem under
// <root>/domains/<domain>/. Writes go through a staging directory plus
// rename so a crash mid-write never leaves a partial bundle behind.
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the filesystem store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, ErrStorageRequired
	}
	if err := os.MkdirAll(filepath.Join(dir, "domains"), 0700); err != nil {
		return nil, fmt.Errorf("create certificate directory: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Root returns the store's base directory.
func (s *FSStore) Root() string {
	return s.root
}

// DomainDir returns the directory holding a domain's bundle.
func (s *FSStore) DomainDir(domain string) string {
	return filepath.Join(s.root, "domains", safeDomainSegment(domain))
}

func (s *FSStore) PutBundle(_ context.Context, domain string, bundle Bundle) (BundlePaths, error) {
	if domain == "" {
		return BundlePaths{}, ErrInvalidDomain
	}

	target := s.DomainDir(domain)
	staging := target + ".tmp"

	if err := os.RemoveAll(staging); err != nil {
		return BundlePaths{}, fmt.Errorf("clear staging directory: %w", err)
	}
	if err := os.MkdirAll(staging, 0700); err != nil {
		return BundlePaths{}, fmt.Errorf("create staging directory: %w", err)
	}

	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{CertificateFile, bundle.Certificate, 0644},
		{PrivateKeyFile, bundle.PrivateKey, 0600},
		{FullChainFile, bundle.FullChain, 0644},
	}
	for _, f := range files {
		if len(f.data) == 0 {
			_ = os.RemoveAll(staging)
			return BundlePaths{}, fmt.Errorf("refusing to persist empty %s for %s", f.name, domain)
		}
		if err := os.WriteFile(filepath.Join(staging, f.name), f.data, f.perm); err != nil {
			_ = os.RemoveAll(staging)
			return BundlePaths{}, fmt.Errorf("write %s for %s: %w", f.name, domain, err)
		}
	}

	// Replace the previous bundle wholesale; re-issuance supersedes, never
	// merges.
	if err := os.RemoveAll(target); err != nil {
		_ = os.RemoveAll(staging)
		return BundlePaths{}, fmt.Errorf("remove previous bundle for %s: %w", domain, err)
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.RemoveAll(staging)
		return BundlePaths{}, fmt.Errorf("finalize bundle for %s: %w", domain, err)
	}

	return BundlePaths{
		CertificatePath: filepath.Join(target, CertificateFile),
		PrivateKeyPath:  filepath.Join(target, PrivateKeyFile),
		FullChainPath:   filepath.Join(target, FullChainFile),
	}, nil
}

func (s *FSStore) ReadCertificate(_ context.Context, domain string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.DomainDir(domain), CertificateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCertificateNotFound, domain)
		}
		return nil, fmt.Errorf("read certificate for %s: %w", domain, err)
	}
	return data, nil
}

func (s *FSStore) Delete(_ context.Context, domain string) (bool, error) {
	dir := s.DomainDir(domain)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("delete bundle for %s: %w", domain, err)
	}
	return true, nil
}

func (s *FSStore) Exists(_ context.Context, domain string) bool {
	_, err := os.Stat(filepath.Join(s.DomainDir(domain), CertificateFile))
	return err == nil
}

func (s *FSStore) ListDomains(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "domains"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list certificate domains: %w", err)
	}

	var domains []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasSuffix(entry.Name(), ".tmp") {
			domains = append(domains, entry.Name())
		}
	}
	return domains, nil
}

// safeDomainSegment keeps bundle directories inside the store root even
// for hostile domain strings.
func safeDomainSegment(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))

	var b strings.Builder
	b.Grow(len(domain))
	for _, r := range domain {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.Trim(b.String(), "._-")
	if sanitized == "" {
		return "_invalid"
	}
	return sanitized
}
