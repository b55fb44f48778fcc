package renewal

import "errors"

var (
	// ErrProvisionerNil is returned when New is called without a provisioner.
	ErrProvisionerNil = errors.New("renewal: provisioner is nil")

	// ErrStoreNil is returned when New is called without a certificate store.
	ErrStoreNil = errors.New("renewal: certificate store is nil")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("renewal: scheduler already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("renewal: scheduler not started")

	// ErrRenewalFailed is returned when every attempt for a domain failed.
	ErrRenewalFailed = errors.New("renewal: all attempts failed")

	// ErrHealthcheckFailed marks scheduler health errors.
	ErrHealthcheckFailed = errors.New("renewal: healthcheck failed")

	// ErrSchedulerNotRunning indicates the scheduler loop is not active.
	ErrSchedulerNotRunning = errors.New("renewal: scheduler is not running")
)
