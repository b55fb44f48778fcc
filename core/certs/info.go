package certs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
)

// CertificateInfo describes the stored leaf certificate for a domain.
type CertificateInfo struct {
	Domain          string    `json:"domain"`
	Issuer          string    `json:"issuer"`
	Subject         string    `json:"subject"`
	DNSNames        []string  `json:"dns_names,omitempty"`
	SerialNumber    string    `json:"serial_number"`
	NotBefore       time.Time `json:"not_before"`
	NotAfter        time.Time `json:"not_after"`
	ValidNow        bool      `json:"valid_now"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// Info reads and parses the stored certificate for the domain. It returns
// ErrCertificateNotFound (wrapped) when no bundle is stored.
func (p *Provisioner) Info(ctx context.Context, domain string) (CertificateInfo, error) {
	return InspectStored(ctx, p.store, domain)
}

// InspectStored parses the leaf certificate a store holds for the domain.
func InspectStored(ctx context.Context, store Store, domain string) (CertificateInfo, error) {
	pemData, err := store.ReadCertificate(ctx, domain)
	if err != nil {
		return CertificateInfo{}, err
	}
	return Inspect(domain, pemData)
}

// Inspect parses a PEM certificate and reports its validity window. The
// first certificate in the input is treated as the leaf.
func Inspect(domain string, pemData []byte) (CertificateInfo, error) {
	certs, err := certcrypto.ParsePEMBundle(pemData)
	if err != nil {
		return CertificateInfo{}, fmt.Errorf("parse certificate for %s: %w", domain, err)
	}
	if len(certs) == 0 {
		return CertificateInfo{}, fmt.Errorf("no certificate found for %s", domain)
	}

	leaf := certs[0]
	now := time.Now()
	info := CertificateInfo{
		Domain:       domain,
		Issuer:       leaf.Issuer.CommonName,
		Subject:      leaf.Subject.CommonName,
		DNSNames:     leaf.DNSNames,
		SerialNumber: leaf.SerialNumber.String(),
		NotBefore:    leaf.NotBefore,
		NotAfter:     leaf.NotAfter,
		ValidNow:     !now.Before(leaf.NotBefore) && now.Before(leaf.NotAfter),
	}
	if remaining := time.Until(leaf.NotAfter); remaining > 0 {
		info.DaysUntilExpiry = int(remaining.Hours() / 24)
	}
	return info, nil
}
