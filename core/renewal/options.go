package renewal

import (
	"log/slog"
	"time"
)

// Config holds renewal scheduler configuration.
type Config struct {
	CheckInterval   time.Duration `env:"RENEWAL_CHECK_INTERVAL" envDefault:"12h"`
	RenewBefore     time.Duration `env:"RENEWAL_BEFORE" envDefault:"720h"`
	MaxAttempts     int           `env:"RENEWAL_MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay      time.Duration `env:"RENEWAL_RETRY_DELAY" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"RENEWAL_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type options struct {
	checkInterval   time.Duration
	renewBefore     time.Duration
	maxAttempts     int
	retryDelay      time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// Option configures a Scheduler during construction.
type Option func(*options)

// WithCheckInterval sets how often the store is swept. Zero or negative
// values keep the default.
func WithCheckInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.checkInterval = interval
		}
	}
}

// WithRenewBefore sets how long before expiry a certificate becomes due.
func WithRenewBefore(window time.Duration) Option {
	return func(o *options) {
		if window > 0 {
			o.renewBefore = window
		}
	}
}

// WithMaxAttempts sets the per-domain attempt limit within a single sweep.
func WithMaxAttempts(attempts int) Option {
	return func(o *options) {
		if attempts > 0 {
			o.maxAttempts = attempts
		}
	}
}

// WithRetryDelay sets the fixed delay between attempts for a domain.
func WithRetryDelay(delay time.Duration) Option {
	return func(o *options) {
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for an active sweep.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.shutdownTimeout = timeout
		}
	}
}

// WithLogger sets the logger for sweep diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
