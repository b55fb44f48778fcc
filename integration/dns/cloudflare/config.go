package cloudflare

import (
	"fmt"
	"time"

	"github.com/canvastack/stencil/core/dns"
)

// DriverName is the registry key for this provider.
const DriverName = "cloudflare"

// defaultBaseURL is the Cloudflare v4 API endpoint.
const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// Config credentials the Cloudflare API. Either APIToken (preferred) or
// the legacy APIKey/APIEmail pair must be set.
type Config struct {
	APIToken string
	APIKey   string
	APIEmail string
	BaseURL  string
	Timeout  time.Duration
}

// Validate enforces that exactly one authentication scheme is usable.
func (c Config) Validate() error {
	hasToken := c.APIToken != ""
	hasKeyPair := c.APIKey != "" && c.APIEmail != ""

	if !hasToken && !hasKeyPair {
		return fmt.Errorf("%w: cloudflare requires an API token or an API key/email pair", dns.ErrInvalidConfig)
	}
	if c.APIKey != "" && c.APIEmail == "" {
		return fmt.Errorf("%w: cloudflare API key set without account email", dns.ErrInvalidConfig)
	}
	return nil
}
