// Package tenant resolves inbound request identity to the tenant that owns
// it and gates access on tenant activation.
//
// The resolver operates over three repository interfaces (tenant, URL
// configuration, custom domain) supplied by the platform's data layer. It
// owns no storage itself. Every failed resolution step short-circuits with
// its own distinctly worded NotFoundError so operators can tell "domain
// never added" from "domain pending verification" from "domain suspended"
// without reading code:
//
//	r := tenant.NewResolver(tenants, configs, domains)
//	tn, err := r.Resolve(ctx, urlpattern.PatternSubdomain, "acmecorp")
//	if err != nil {
//		var nf *tenant.NotFoundError
//		if errors.As(err, &nf) {
//			// 404-equivalent: request has no identifiable tenant
//		}
//	}
//	if err := r.ValidateTenantAccess(tn); err != nil {
//		// resolved but suspended, still a 404 to the outside
//	}
//
// Access validation is deliberately separate from resolution so call sites
// can resolve first for diagnostics and gate second.
//
// CachedResolver wraps a Resolver with a read-through cache for the per
// request hot path; resolution failures are never cached.
package tenant
