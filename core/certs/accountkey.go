package certs

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-acme/lego/v4/certcrypto"
)

// Account key file names inside the storage directory.
const (
	accountKeyFile = "account.key"
	accountPubFile = "account.pub"
)

// AccountKeyStore manages the long-lived ACME account key pair, shared
// across all domain issuances. The pair is persisted before first use:
// losing it would orphan the CA account, so generation and write happen
// under a lock with create-if-absent semantics; two racing processes both
// end up using whichever key landed on disk first.
type AccountKeyStore struct {
	mu      sync.Mutex
	dir     string
	keyType certcrypto.KeyType
}

// NewAccountKeyStore creates a store keeping the pair under dir as
// account.key / account.pub.
func NewAccountKeyStore(dir string, keyType certcrypto.KeyType) *AccountKeyStore {
	if keyType == "" {
		keyType = certcrypto.RSA4096
	}
	return &AccountKeyStore{dir: dir, keyType: keyType}
}

// KeyPath returns the private key file location.
func (s *AccountKeyStore) KeyPath() string {
	return filepath.Join(s.dir, accountKeyFile)
}

// LoadOrCreate returns the persisted account key, generating and
// persisting a fresh pair when none exists yet.
func (s *AccountKeyStore) LoadOrCreate() (crypto.Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, err := s.load(); err == nil {
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, fmt.Errorf("create account key directory: %w", err)
	}

	key, err := certcrypto.GeneratePrivateKey(s.keyType)
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("generated account key of type %T is not a signer", key)
	}

	f, err := os.OpenFile(s.KeyPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			// Another process won the race; use its key.
			return s.load()
		}
		return nil, fmt.Errorf("create account key file: %w", err)
	}
	if _, err := f.Write(certcrypto.PEMEncode(key)); err != nil {
		_ = f.Close()
		_ = os.Remove(s.KeyPath())
		return nil, fmt.Errorf("write account key: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(s.KeyPath())
		return nil, fmt.Errorf("close account key file: %w", err)
	}

	if err := s.writePublicHalf(signer); err != nil {
		_ = os.Remove(s.KeyPath())
		return nil, err
	}

	return signer, nil
}

func (s *AccountKeyStore) load() (crypto.Signer, error) {
	data, err := os.ReadFile(s.KeyPath())
	if err != nil {
		return nil, err
	}

	key, err := certcrypto.ParsePEMPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse account key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("account key of type %T is not a signer", key)
	}
	return signer, nil
}

func (s *AccountKeyStore) writePublicHalf(signer crypto.Signer) error {
	der, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return fmt.Errorf("marshal account public key: %w", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(filepath.Join(s.dir, accountPubFile), pemData, 0644); err != nil {
		return fmt.Errorf("write account public key: %w", err)
	}
	return nil
}
