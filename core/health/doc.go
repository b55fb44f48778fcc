// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: Process is running (no dependency checks)
//   - Readiness: All dependencies are available
//
// Dependency checks follow the func(context.Context) error signature that
// the integration packages expose:
//
//	mux.HandleFunc("/health/live", health.Liveness)
//	mux.HandleFunc("/health/ready", health.Readiness(logger,
//		pg.Healthcheck(pool),
//		redis.Healthcheck(client),
//		scheduler.Healthcheck,
//	))
package health
