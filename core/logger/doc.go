// Package logger provides slog attribute helpers with consistent keys for
// the attributes that recur across tenant resolution, DNS management, and
// certificate provisioning.
//
// Helpers follow the empty Attr pattern for nil safety: passing a nil error
// or empty identifier yields an empty slog.Attr, which handlers drop, so
// call sites need no conditional logging.
//
// Usage:
//
//	log.Info("custom domain verified",
//		logger.Domain("shop.example.com"),
//		logger.TenantID(tenantID),
//		logger.Elapsed(start),
//	)
//
//	log.Error("dns record creation failed",
//		logger.Zone(zoneID),
//		logger.Error(err),
//	)
package logger
