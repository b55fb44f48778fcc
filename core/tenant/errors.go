package tenant

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when no record exists for the
	// given identifier.
	ErrNotFound = errors.New("record not found")

	// ErrTenantNotFound is the match target for all resolution failures.
	// Use errors.Is(err, ErrTenantNotFound) to detect them without caring
	// about the specific sub-reason.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrCacheMiss is returned by Cache implementations when a key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// NotFoundError is a typed resolution failure. Each failed resolution step
// produces its own distinctly worded reason; the routing layer maps any
// NotFoundError to a 404-equivalent outcome, never a 500.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return e.Reason
}

// Is makes every NotFoundError match ErrTenantNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrTenantNotFound
}

func notFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}
