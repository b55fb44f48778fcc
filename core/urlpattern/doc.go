// Package urlpattern classifies inbound request addresses into the three
// tenant addressing schemes supported by the platform: subdomain of the
// platform base domain, path prefix under the base domain, and verified
// custom domain.
//
// Classification is a pure computation over the request host and path with
// no I/O, so a single Matcher can be shared across all concurrent requests.
// Reconfiguration through the fluent setters is intended for startup and
// configuration reload only and is not synchronized against in-flight
// Detect calls.
//
// Usage:
//
//	m := urlpattern.NewMatcher("stencil.example.com")
//	pattern, err := m.Detect("acme.stencil.example.com", "/")
//	if err != nil {
//		// no tenant addressable at this host/path
//	}
//	id, err := m.ExtractIdentifier(pattern, "acme.stencil.example.com", "/")
//	// id == "acme"
//
// Subdomain matches take precedence over path matches: a request for
// acme.stencil.example.com/t/other classifies as SUBDOMAIN and the path
// segment is ignored. The bare base domain is never a valid tenant address.
// Any other host, including multi-label domains such as shop.acme.co.uk,
// classifies as CUSTOM_DOMAIN and is passed through verbatim.
package urlpattern
