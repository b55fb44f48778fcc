package urlpattern

// Config maps matcher settings to environment variables for loading with
// core/config. An empty ExcludedSubdomains slice keeps the defaults.
type Config struct {
	BaseDomain         string   `env:"BASE_DOMAIN,required"`
	ExcludedSubdomains []string `env:"EXCLUDED_SUBDOMAINS" envSeparator:","`
	PathPrefix         string   `env:"PATH_PREFIX" envDefault:"t"`
}

// NewMatcherFromConfig builds a matcher from loaded configuration.
func NewMatcherFromConfig(cfg Config) *Matcher {
	m := NewMatcher(cfg.BaseDomain)
	if len(cfg.ExcludedSubdomains) > 0 {
		m.SetExcludedSubdomains(cfg.ExcludedSubdomains)
	}
	if cfg.PathPrefix != "" {
		m.SetPathPrefix(cfg.PathPrefix)
	}
	return m
}
