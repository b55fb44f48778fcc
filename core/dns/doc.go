// Package dns defines the normalized DNS provider abstraction used by the
// domain verification flow to place and clean up ownership-proof records.
//
// Every operation returns a Result instead of a provider-specific error:
// transport, authentication, and API-level failures are folded into
// Result.Error together with the zone/record context, so callers branch on
// Result.Success and never unwrap provider SDK types.
//
// Concrete providers live under integration/dns and register themselves by
// driver name:
//
//	import (
//		"github.com/canvastack/stencil/core/dns"
//
//		_ "github.com/canvastack/stencil/integration/dns/cloudflare"
//		_ "github.com/canvastack/stencil/integration/dns/route53"
//	)
//
//	provider, err := dns.New(ctx, dns.ProviderConfig{Driver: "cloudflare", APIToken: token})
//
// When no driver is configured the factory returns the built-in manual
// provider, whose results carry operator instructions instead of API
// effects. The platform stays usable without any DNS credentials; record
// placement just becomes a human task.
package dns
