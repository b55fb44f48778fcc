package dns

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderConfig selects and credentials a DNS driver.
type ProviderConfig struct {
	// Driver names the registered backend. Empty or "manual" selects the
	// built-in manual provider.
	Driver string `env:"DNS_DRIVER" envDefault:"manual"`

	// APIToken is a bearer token for token-authenticated APIs.
	APIToken string `env:"DNS_API_TOKEN"`

	// APIKey and APIEmail form the legacy key/email credential pair.
	APIKey   string `env:"DNS_API_KEY"`
	APIEmail string `env:"DNS_API_EMAIL"`

	// AccessKeyID and SecretAccessKey credential cloud-SDK drivers. When
	// empty those drivers fall back to their default credential chain.
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	// Timeout bounds each provider API call.
	Timeout time.Duration `env:"DNS_TIMEOUT" envDefault:"10s"`
}

// DriverFactory constructs a Provider from configuration. The context
// bounds any setup-time I/O (e.g. cloud credential chains).
type DriverFactory func(ctx context.Context, cfg ProviderConfig) (Provider, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// Register makes a driver available to New under the given name. It is
// intended to be called from driver package init functions and panics on
// duplicate registration, matching database/sql semantics.
func Register(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if factory == nil {
		panic("dns: Register factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("dns: Register called twice for driver " + name)
	}
	drivers[name] = factory
}

// Drivers returns the sorted names of registered drivers plus "manual".
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers)+1)
	names = append(names, ManualDriverName)
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the provider selected by cfg.Driver. An empty or "manual"
// driver yields the manual provider; an unregistered name is an error so a
// typo in configuration does not silently degrade to manual instructions.
func New(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Driver == "" || cfg.Driver == ManualDriverName {
		return NewManualProvider(), nil
	}

	driversMu.RLock()
	factory, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDriver, cfg.Driver, Drivers())
	}

	return factory(ctx, cfg)
}
