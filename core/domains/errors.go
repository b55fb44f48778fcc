package domains

import "errors"

var (
	// ErrRepositoryNil is returned when New is called without a repository.
	ErrRepositoryNil = errors.New("domains: repository is nil")

	// ErrProviderNil is returned when New is called without a DNS provider.
	ErrProviderNil = errors.New("domains: dns provider is nil")

	// ErrDomainRequired is returned for an empty or malformed domain name.
	ErrDomainRequired = errors.New("domains: domain name is required")

	// ErrAlreadyRegistered is returned when the domain is already claimed.
	ErrAlreadyRegistered = errors.New("domains: domain already registered")

	// ErrVerificationFailed indicates the TXT record was absent or carried
	// the wrong token. Retryable; DNS propagation takes time.
	ErrVerificationFailed = errors.New("domains: ownership verification failed")

	// ErrVerificationTimeout is returned when WaitVerified gives up.
	ErrVerificationTimeout = errors.New("domains: ownership verification timed out")

	// ErrIssuanceFailed indicates the domain verified but certificate
	// issuance did not complete. The domain stays verified; issuance can be
	// retried without re-proving ownership.
	ErrIssuanceFailed = errors.New("domains: certificate issuance failed")
)
