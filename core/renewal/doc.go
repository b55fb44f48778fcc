// Package renewal keeps provisioned certificates from expiring.
//
// A Scheduler periodically sweeps the certificate store, inspects each
// stored leaf, and re-issues any certificate entering its renewal window.
// Renewal is a full re-issuance; the provisioner replaces the stored bundle
// wholesale on success, so a sweep that is interrupted or repeated never
// leaves a domain half-renewed.
//
// Concurrent renewals of the same domain are collapsed through
// singleflight, so an operator-triggered RenewNow during a sweep does not
// race the background run for the same domain.
//
// Usage:
//
//	scheduler, err := renewal.New(provisioner, provisioner.Store(),
//		renewal.WithRenewBefore(30*24*time.Hour),
//		renewal.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(scheduler.Run(ctx))
package renewal
