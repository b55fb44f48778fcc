package dns

import "errors"

var (
	// ErrUnknownDriver is returned by New for a driver name no provider has
	// registered under.
	ErrUnknownDriver = errors.New("unknown dns driver")

	// ErrInvalidConfig is returned by driver factories for missing or
	// inconsistent credentials.
	ErrInvalidConfig = errors.New("invalid dns provider configuration")
)
