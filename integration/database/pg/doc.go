// Package pg provides PostgreSQL connection management, embedded schema
// migrations, and the Postgres-backed repositories behind tenant
// resolution.
//
// Connect wraps pgxpool with retry logic and connection verification, so
// services restarting alongside the database converge instead of crashing.
// Migrate applies the embedded goose migrations through the pgx stdlib
// bridge. Repositories satisfy the core/tenant repository interfaces and
// translate pgx.ErrNoRows into tenant.ErrNotFound, keeping storage error
// vocabulary out of the resolution layer.
//
// Usage:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		return err
//	}
//
//	repo := pg.NewRepository(pool)
//	resolver := tenant.NewResolver(repo, repo, repo)
//
// Repositories participate in an ambient transaction when one is attached
// to the context with WithTx, which lets the provisioning flow create a
// domain and its URL configuration atomically.
package pg
