package urlpattern

import "errors"

var (
	// ErrInvalidURLPattern is returned when a host/path pair does not match
	// any supported addressing scheme, or when an identifier cannot be
	// extracted for the detected pattern. The wrapped message carries the
	// human-readable reason.
	ErrInvalidURLPattern = errors.New("invalid URL pattern")
)
