package urlpattern

import (
	"fmt"
	"strings"
)

// Pattern identifies the addressing scheme a request uses to reach a tenant.
type Pattern string

const (
	// PatternSubdomain addresses a tenant as <slug>.<base domain>.
	PatternSubdomain Pattern = "subdomain"
	// PatternPath addresses a tenant as <base domain>/<prefix>/<slug>.
	PatternPath Pattern = "path"
	// PatternCustomDomain addresses a tenant by a domain it brought itself.
	PatternCustomDomain Pattern = "custom_domain"
)

// maxLabelLength is the DNS label length limit (RFC 1035).
const maxLabelLength = 63

// defaultExcludedSubdomains are reserved platform labels that never
// address a tenant.
var defaultExcludedSubdomains = []string{"www", "api", "admin", "platform", "mail"}

// Matcher classifies (host, path) pairs and extracts tenant identifiers.
// The zero value is not usable; construct with NewMatcher.
type Matcher struct {
	baseDomain string
	excluded   map[string]struct{}
	pathPrefix string
}

// NewMatcher creates a matcher for the given platform base domain with the
// default excluded subdomains (www, api, admin, platform, mail) and the
// default path prefix "t".
func NewMatcher(baseDomain string) *Matcher {
	m := &Matcher{
		excluded:   make(map[string]struct{}),
		pathPrefix: "t",
	}
	m.SetBaseDomain(baseDomain)
	m.SetExcludedSubdomains(defaultExcludedSubdomains)
	return m
}

// SetBaseDomain replaces the platform base domain. Intended for startup and
// configuration reload; not synchronized against concurrent Detect calls.
func (m *Matcher) SetBaseDomain(domain string) *Matcher {
	m.baseDomain = strings.ToLower(strings.TrimSpace(domain))
	return m
}

// SetExcludedSubdomains replaces the reserved-subdomain set.
func (m *Matcher) SetExcludedSubdomains(labels []string) *Matcher {
	m.excluded = make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label != "" {
			m.excluded[label] = struct{}{}
		}
	}
	return m
}

// AddExcludedSubdomain adds a single reserved subdomain label.
func (m *Matcher) AddExcludedSubdomain(label string) *Matcher {
	label = strings.ToLower(strings.TrimSpace(label))
	if label != "" {
		m.excluded[label] = struct{}{}
	}
	return m
}

// SetPathPrefix replaces the path prefix segment used for path addressing.
func (m *Matcher) SetPathPrefix(prefix string) *Matcher {
	m.pathPrefix = strings.Trim(strings.TrimSpace(prefix), "/")
	return m
}

// BaseDomain returns the configured platform base domain.
func (m *Matcher) BaseDomain() string {
	return m.baseDomain
}

// PathPrefix returns the configured path prefix segment.
func (m *Matcher) PathPrefix() string {
	return m.pathPrefix
}

// IsExcluded reports whether the label is a reserved subdomain.
func (m *Matcher) IsExcluded(label string) bool {
	_, ok := m.excluded[strings.ToLower(label)]
	return ok
}

// Detect classifies a host/path pair into one of the three patterns.
// Subdomain matches take precedence over any path segments present on the
// same request. The bare base domain without a valid path match never
// addresses a tenant and returns ErrInvalidURLPattern.
func (m *Matcher) Detect(host, path string) (Pattern, error) {
	host = normalizeHost(host)
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrInvalidURLPattern)
	}

	if label, ok := m.subdomainLabel(host); ok {
		if label == "" {
			return "", fmt.Errorf("%w: empty subdomain on host %q", ErrInvalidURLPattern, host)
		}
		if m.IsExcluded(label) {
			return "", fmt.Errorf("%w: reserved subdomain %q", ErrInvalidURLPattern, label)
		}
		return PatternSubdomain, nil
	}

	if host == m.baseDomain {
		if m.pathIdentifier(path) != "" {
			return PatternPath, nil
		}
		return "", fmt.Errorf("%w: unable to detect pattern for host %q path %q", ErrInvalidURLPattern, host, path)
	}

	return PatternCustomDomain, nil
}

// ExtractIdentifier returns the tenant identifier string for a previously
// detected pattern. For SUBDOMAIN the leading label, for PATH the first
// segment after the prefix (trailing segments ignored), for CUSTOM_DOMAIN
// the full host.
func (m *Matcher) ExtractIdentifier(pattern Pattern, host, path string) (string, error) {
	host = normalizeHost(host)

	switch pattern {
	case PatternSubdomain:
		label, ok := m.subdomainLabel(host)
		if !ok || label == "" {
			return "", fmt.Errorf("%w: host %q is not a subdomain of %q", ErrInvalidURLPattern, host, m.baseDomain)
		}
		if err := validateIdentifier(label); err != nil {
			return "", err
		}
		return label, nil

	case PatternPath:
		id := m.pathIdentifier(path)
		if id == "" {
			return "", fmt.Errorf("%w: no tenant segment after prefix %q in path %q", ErrInvalidURLPattern, m.pathPrefix, path)
		}
		if err := validateIdentifier(id); err != nil {
			return "", err
		}
		return id, nil

	case PatternCustomDomain:
		if host == "" {
			return "", fmt.Errorf("%w: empty host", ErrInvalidURLPattern)
		}
		return host, nil

	default:
		return "", fmt.Errorf("%w: unknown pattern %q", ErrInvalidURLPattern, pattern)
	}
}

// subdomainLabel returns the leading label of a direct subdomain of the
// base domain. Multi-label remainders (a.b.<base>) are not subdomain
// matches and classify as custom domains downstream.
func (m *Matcher) subdomainLabel(host string) (string, bool) {
	if m.baseDomain == "" || !strings.HasSuffix(host, "."+m.baseDomain) {
		return "", false
	}
	label := strings.TrimSuffix(host, "."+m.baseDomain)
	if strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}

// pathIdentifier returns the first segment after the configured prefix, or
// empty when the path does not match the prefix scheme.
func (m *Matcher) pathIdentifier(path string) string {
	if m.pathPrefix == "" {
		return ""
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || segments[0] != m.pathPrefix {
		return ""
	}
	return segments[1]
}

func validateIdentifier(id string) error {
	if len(id) > maxLabelLength {
		return fmt.Errorf("%w: identifier %q exceeds %d characters", ErrInvalidURLPattern, id, maxLabelLength)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return fmt.Errorf("%w: identifier %q contains invalid character %q", ErrInvalidURLPattern, id, r)
		}
	}
	return nil
}

// normalizeHost lowercases the host and strips an optional port suffix so
// Host-header values can be passed in directly.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host, "]") {
		host = host[:idx]
	}
	return host
}
