package certs

import "errors"

var (
	// ErrEmailRequired is returned when no ACME account email is configured.
	ErrEmailRequired = errors.New("email is required for the ACME account")

	// ErrStorageRequired is returned when neither a storage directory nor a
	// custom certificate store is configured.
	ErrStorageRequired = errors.New("certificate storage is required")

	// ErrChallengeDirRequired is returned when http-01 is configured without
	// a writable challenge directory.
	ErrChallengeDirRequired = errors.New("challenge directory is required for http-01")

	// ErrCertificateNotFound is returned by Info when no bundle is stored
	// for the domain.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrInvalidDomain is returned for empty or unusable domain names.
	ErrInvalidDomain = errors.New("invalid domain name")
)
