// Package cloudflare implements the dns.Provider interface against the
// Cloudflare v4 API for managed-zone record operations.
//
// The provider translates the normalized record CRUD into the raw HTTP
// endpoints, injecting either bearer-token or key/email authentication and
// unwrapping the {success, errors[], result} response envelope into
// dns.Result values. No raw transport error ever reaches the caller; every
// failure is a Result with Success false and a human-readable Error.
//
// # Configuration
//
// Authentication accepts either a scoped API token (preferred) or the
// legacy global key plus account email:
//
//	type Config struct {
//		APIToken string        `env:"CLOUDFLARE_API_TOKEN"`
//		APIKey   string        `env:"CLOUDFLARE_API_KEY"`
//		APIEmail string        `env:"CLOUDFLARE_API_EMAIL"`
//		Timeout  time.Duration `env:"CLOUDFLARE_TIMEOUT" envDefault:"10s"`
//	}
//
// One of the two credential forms is required; construction fails without
// either. Every API call is bounded by the configured timeout.
//
// # Usage
//
//	provider, err := cloudflare.New(cloudflare.Config{APIToken: token})
//	if err != nil {
//		return err
//	}
//
//	zone := provider.GetZone(ctx, "shop.example.com")
//	if !zone.Success {
//		return errors.New(zone.Error)
//	}
//	res := provider.CreateRecord(ctx, zone.Zone.ID, dns.Record{
//		Type:    dns.RecordTypeTXT,
//		Name:    "_stencil-verify.shop.example.com",
//		Content: token,
//	})
//
// Zone lookup walks the domain's labels upward so a record on a deep
// subdomain still resolves to the apex zone Cloudflare hosts.
//
// The package registers itself with the core/dns factory under the
// "cloudflare" driver name; importing it for side effects is enough for
// dns.New to construct it from a dns.ProviderConfig.
package cloudflare
