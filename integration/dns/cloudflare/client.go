package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/canvastack/stencil/core/dns"
)

func init() {
	dns.Register(DriverName, func(_ context.Context, cfg dns.ProviderConfig) (dns.Provider, error) {
		return New(Config{
			APIToken: cfg.APIToken,
			APIKey:   cfg.APIKey,
			APIEmail: cfg.APIEmail,
			Timeout:  cfg.Timeout,
		})
	})
}

// Provider is a Cloudflare-backed dns.Provider.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

var _ dns.Provider = (*Provider)(nil)

// Option configures the provider during construction.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithLogger sets the logger for API failure diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Cloudflare provider from validated configuration.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = dns.DefaultTimeout
	}

	p := &Provider{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return DriverName }

// envelope is Cloudflare's uniform response wrapper.
type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

// apiRecord is Cloudflare's DNS record representation.
type apiRecord struct {
	ID      string `json:"id,omitempty"`
	ZoneID  string `json:"zone_id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
}

// apiZone is Cloudflare's zone representation.
type apiZone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	NameServers []string `json:"name_servers"`
}

func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record dns.Record) dns.Result {
	body := apiRecord{Type: string(record.Type), Name: record.Name, Content: record.Content, TTL: recordTTL(record.TTL)}

	var out apiRecord
	if err := p.call(ctx, http.MethodPost, "/zones/"+zoneID+"/dns_records", nil, body, &out); err != nil {
		return p.failure(ctx, err, "create record", zoneID, record.Name)
	}
	return dns.Result{Success: true, Record: toRecord(out)}
}

func (p *Provider) UpdateRecord(ctx context.Context, zoneID, recordID string, record dns.Record) dns.Result {
	body := apiRecord{Type: string(record.Type), Name: record.Name, Content: record.Content, TTL: recordTTL(record.TTL)}

	var out apiRecord
	if err := p.call(ctx, http.MethodPut, "/zones/"+zoneID+"/dns_records/"+recordID, nil, body, &out); err != nil {
		return p.failure(ctx, err, "update record", zoneID, recordID)
	}
	return dns.Result{Success: true, Record: toRecord(out)}
}

func (p *Provider) DeleteRecord(ctx context.Context, zoneID, recordID string) dns.Result {
	var out struct {
		ID string `json:"id"`
	}
	if err := p.call(ctx, http.MethodDelete, "/zones/"+zoneID+"/dns_records/"+recordID, nil, nil, &out); err != nil {
		return p.failure(ctx, err, "delete record", zoneID, recordID)
	}
	return dns.Result{Success: true, Record: &dns.Record{ID: out.ID, ZoneID: zoneID}}
}

func (p *Provider) GetRecord(ctx context.Context, zoneID, recordID string) dns.Result {
	var out apiRecord
	if err := p.call(ctx, http.MethodGet, "/zones/"+zoneID+"/dns_records/"+recordID, nil, nil, &out); err != nil {
		return p.failure(ctx, err, "get record", zoneID, recordID)
	}
	return dns.Result{Success: true, Record: toRecord(out)}
}

func (p *Provider) ListRecords(ctx context.Context, zoneID string, filter dns.RecordFilter) dns.Result {
	query := url.Values{}
	if filter.Type != "" {
		query.Set("type", string(filter.Type))
	}
	if filter.Name != "" {
		query.Set("name", filter.Name)
	}

	var out []apiRecord
	if err := p.call(ctx, http.MethodGet, "/zones/"+zoneID+"/dns_records", query, nil, &out); err != nil {
		return p.failure(ctx, err, "list records", zoneID, "")
	}

	records := make([]dns.Record, 0, len(out))
	for _, r := range out {
		records = append(records, *toRecord(r))
	}
	return dns.Result{Success: true, Records: records}
}

// GetZone finds the zone serving the domain, walking up labels so a record
// host like shop.acmecorp.com resolves to the acmecorp.com zone.
func (p *Provider) GetZone(ctx context.Context, domain string) dns.Result {
	candidate := strings.ToLower(strings.TrimSuffix(domain, "."))
	for {
		query := url.Values{"name": {candidate}}

		var out []apiZone
		if err := p.call(ctx, http.MethodGet, "/zones", query, nil, &out); err != nil {
			return p.failure(ctx, err, "get zone", "", domain)
		}
		if len(out) > 0 {
			return dns.Result{Success: true, Zone: toZone(out[0])}
		}

		idx := strings.Index(candidate, ".")
		if idx < 0 || !strings.Contains(candidate[idx+1:], ".") {
			return dns.Failuref("get zone: no zone found for domain %q", domain)
		}
		candidate = candidate[idx+1:]
	}
}

func (p *Provider) ListZones(ctx context.Context) dns.Result {
	var out []apiZone
	if err := p.call(ctx, http.MethodGet, "/zones", nil, nil, &out); err != nil {
		return p.failure(ctx, err, "list zones", "", "")
	}

	zones := make([]dns.Zone, 0, len(out))
	for _, z := range out {
		zones = append(zones, *toZone(z))
	}
	return dns.Result{Success: true, Zones: zones}
}

func (p *Provider) Verify(ctx context.Context) dns.Result {
	// Token auth has a dedicated verification endpoint; key/email auth is
	// verified by the cheapest authenticated read available.
	path := "/user/tokens/verify"
	if p.cfg.APIToken == "" {
		path = "/user"
	}

	var out json.RawMessage
	if err := p.call(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return p.failure(ctx, err, "verify credentials", "", "")
	}
	return dns.Result{Success: true, Message: "cloudflare credentials verified"}
}

// call performs one bounded API request and decodes the envelope into out.
func (p *Provider) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	endpoint := p.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIToken)
	} else {
		req.Header.Set("X-Auth-Key", p.cfg.APIKey)
		req.Header.Set("X-Auth-Email", p.cfg.APIEmail)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cloudflare api unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		if len(env.Errors) > 0 {
			return fmt.Errorf("cloudflare api error %d: %s", env.Errors[0].Code, env.Errors[0].Message)
		}
		return fmt.Errorf("cloudflare api request failed with status %d", resp.StatusCode)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// failure logs the operation with its zone/record context and folds the
// error into the normalized result shape.
func (p *Provider) failure(ctx context.Context, err error, op, zoneID, target string) dns.Result {
	p.logger.ErrorContext(ctx, "cloudflare operation failed",
		slog.String("operation", op),
		slog.String("zone_id", zoneID),
		slog.String("target", target),
		slog.Any("error", err))
	return dns.Failuref("%s: %s", op, err)
}

func toRecord(r apiRecord) *dns.Record {
	return &dns.Record{
		ID:      r.ID,
		ZoneID:  r.ZoneID,
		Type:    dns.RecordType(r.Type),
		Name:    r.Name,
		Content: r.Content,
		TTL:     r.TTL,
	}
}

func toZone(z apiZone) *dns.Zone {
	return &dns.Zone{ID: z.ID, Name: z.Name, Status: z.Status, NameServers: z.NameServers}
}

// recordTTL maps our zero value to Cloudflare's "automatic" TTL.
func recordTTL(ttl int) int {
	if ttl <= 0 {
		return 1
	}
	return ttl
}
