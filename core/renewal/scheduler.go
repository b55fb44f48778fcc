package renewal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/canvastack/stencil/core/certs"
)

// Provisioner is the issuance surface the scheduler drives. *certs.Provisioner
// satisfies it.
type Provisioner interface {
	Renew(ctx context.Context, domain string) certs.ProvisionResult
}

// Scheduler sweeps a certificate store and renews certificates entering
// their renewal window.
type Scheduler struct {
	provisioner Provisioner
	store       certs.Store

	checkInterval   time.Duration
	renewBefore     time.Duration
	maxAttempts     int
	retryDelay      time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	ticker  *time.Ticker
	running atomic.Bool
	wg      sync.WaitGroup

	renewalsSucceeded atomic.Int64
	renewalsFailed    atomic.Int64
	activeSweeps      atomic.Int32
}

// Stats provides observability counters for monitoring.
type Stats struct {
	RenewalsSucceeded int64
	RenewalsFailed    int64
	ActiveSweeps      int32
	IsRunning         bool
}

// New creates a renewal scheduler over the given provisioner and store.
func New(provisioner Provisioner, store certs.Store, opts ...Option) (*Scheduler, error) {
	if provisioner == nil {
		return nil, ErrProvisionerNil
	}
	if store == nil {
		return nil, ErrStoreNil
	}

	o := &options{
		checkInterval:   12 * time.Hour,
		renewBefore:     30 * 24 * time.Hour,
		maxAttempts:     3,
		retryDelay:      time.Minute,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Scheduler{
		provisioner:     provisioner,
		store:           store,
		checkInterval:   o.checkInterval,
		renewBefore:     o.renewBefore,
		maxAttempts:     o.maxAttempts,
		retryDelay:      o.retryDelay,
		shutdownTimeout: o.shutdownTimeout,
		logger:          o.logger,
		now:             o.now,
	}, nil
}

// NewFromConfig creates a Scheduler from configuration. Additional options
// override config values.
func NewFromConfig(cfg Config, provisioner Provisioner, store certs.Store, opts ...Option) (*Scheduler, error) {
	allOpts := append([]Option{
		WithCheckInterval(cfg.CheckInterval),
		WithRenewBefore(cfg.RenewBefore),
		WithMaxAttempts(cfg.MaxAttempts),
		WithRetryDelay(cfg.RetryDelay),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}, opts...)

	return New(provisioner, store, allOpts...)
}

// Start begins periodic sweeping. It blocks until the context is cancelled
// or Stop is called; use Run for the errgroup pattern.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.ticker = time.NewTicker(s.checkInterval)
	s.mu.Unlock()

	s.running.Store(true)
	defer s.ticker.Stop()

	s.logger.InfoContext(s.ctx, "renewal scheduler started",
		slog.Duration("check_interval", s.checkInterval),
		slog.Duration("renew_before", s.renewBefore))

	s.sweepWithWait()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.InfoContext(context.Background(), "renewal scheduler stopping")
			s.running.Store(false)
			return s.ctx.Err()
		case <-s.ticker.C:
			s.sweepWithWait()
		}
	}
}

// Stop cancels the sweep loop and waits for an in-flight sweep, bounded by
// the shutdown timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.running.Store(false)
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer ctxCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(context.Background(), "renewal shutdown timeout exceeded",
			slog.Duration("timeout", s.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", s.shutdownTimeout)
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = s.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// RenewNow renews one domain immediately, regardless of its expiry window.
// Concurrent calls for the same domain share a single issuance run.
func (s *Scheduler) RenewNow(ctx context.Context, domain string) (certs.ProvisionResult, error) {
	v, err, _ := s.group.Do(domain, func() (any, error) {
		return s.renewWithRetries(ctx, domain), nil
	})
	if err != nil {
		return certs.ProvisionResult{}, err
	}

	result := v.(certs.ProvisionResult)
	if !result.Success {
		return result, fmt.Errorf("%w: %s at step %s: %s", ErrRenewalFailed, domain, result.Step, result.Error)
	}
	return result, nil
}

// Sweep runs one pass over the store, renewing every due certificate. It
// returns the number of domains renewed and the number that failed all
// attempts.
func (s *Scheduler) Sweep(ctx context.Context) (renewed, failed int) {
	domains, err := s.store.ListDomains(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list certificate domains", slog.Any("error", err))
		return 0, 0
	}

	for _, domain := range domains {
		if ctx.Err() != nil {
			return renewed, failed
		}
		due, reason := s.isDue(ctx, domain)
		if !due {
			continue
		}

		s.logger.InfoContext(ctx, "certificate due for renewal",
			slog.String("domain", domain),
			slog.String("reason", reason))

		if _, err := s.RenewNow(ctx, domain); err != nil {
			failed++
			s.logger.ErrorContext(ctx, "certificate renewal failed",
				slog.String("domain", domain),
				slog.Any("error", err))
			continue
		}
		renewed++
	}
	return renewed, failed
}

// Stats returns current counters. Thread-safe.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	isRunning := s.cancel != nil
	s.mu.Unlock()

	return Stats{
		RenewalsSucceeded: s.renewalsSucceeded.Load(),
		RenewalsFailed:    s.renewalsFailed.Load(),
		ActiveSweeps:      s.activeSweeps.Load(),
		IsRunning:         isRunning,
	}
}

// Healthcheck reports whether the sweep loop is active. Suitable for
// health endpoints; the returned error supports errors.Is.
func (s *Scheduler) Healthcheck(_ context.Context) error {
	if !s.Stats().IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrSchedulerNotRunning)
	}
	return nil
}

func (s *Scheduler) sweepWithWait() {
	// Checked under the mutex so Stop never waits on an uncounted sweep.
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	defer s.wg.Done()

	s.activeSweeps.Add(1)
	defer s.activeSweeps.Add(-1)

	renewed, failed := s.Sweep(ctx)
	if renewed > 0 || failed > 0 {
		s.logger.InfoContext(ctx, "renewal sweep finished",
			slog.Int("renewed", renewed),
			slog.Int("failed", failed))
	}
}

// isDue decides whether the stored certificate needs re-issuance. An
// unreadable or unparseable certificate counts as due so a corrupt bundle
// gets repaired on the next sweep.
func (s *Scheduler) isDue(ctx context.Context, domain string) (bool, string) {
	info, err := certs.InspectStored(ctx, s.store, domain)
	if err != nil {
		return true, fmt.Sprintf("stored certificate unreadable: %v", err)
	}

	deadline := info.NotAfter.Add(-s.renewBefore)
	if s.now().Before(deadline) {
		return false, ""
	}
	if s.now().After(info.NotAfter) {
		return true, "certificate expired"
	}
	return true, fmt.Sprintf("expires in %d days", info.DaysUntilExpiry)
}

func (s *Scheduler) renewWithRetries(ctx context.Context, domain string) certs.ProvisionResult {
	var result certs.ProvisionResult
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result = s.provisioner.Renew(ctx, domain)
		if result.Success {
			s.renewalsSucceeded.Add(1)
			return result
		}

		s.logger.WarnContext(ctx, "renewal attempt failed",
			slog.String("domain", domain),
			slog.Int("attempt", attempt),
			slog.String("step", string(result.Step)),
			slog.String("error", result.Error))

		if attempt == s.maxAttempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			s.renewalsFailed.Add(1)
			return result
		case <-time.After(s.retryDelay):
		}
	}
	s.renewalsFailed.Add(1)
	return result
}
