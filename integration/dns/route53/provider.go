package route53

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsroute53 "github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/canvastack/stencil/core/dns"
)

// DriverName is the registry key for this provider.
const DriverName = "route53"

// defaultTTL is applied when a record carries no TTL of its own.
const defaultTTL = 300

func init() {
	dns.Register(DriverName, func(ctx context.Context, cfg dns.ProviderConfig) (dns.Provider, error) {
		return New(ctx, Config{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Region:          cfg.Region,
			Timeout:         cfg.Timeout,
		})
	})
}

// Config credentials the Route 53 client. Empty keys fall back to the AWS
// default credential chain (environment, shared config, instance role).
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Timeout         time.Duration
}

// Client is the subset of the Route 53 API the provider uses, extracted
// for testing with mocks.
type Client interface {
	ListHostedZones(ctx context.Context, params *awsroute53.ListHostedZonesInput, optFns ...func(*awsroute53.Options)) (*awsroute53.ListHostedZonesOutput, error)
	ListHostedZonesByName(ctx context.Context, params *awsroute53.ListHostedZonesByNameInput, optFns ...func(*awsroute53.Options)) (*awsroute53.ListHostedZonesByNameOutput, error)
	ListResourceRecordSets(ctx context.Context, params *awsroute53.ListResourceRecordSetsInput, optFns ...func(*awsroute53.Options)) (*awsroute53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *awsroute53.ChangeResourceRecordSetsInput, optFns ...func(*awsroute53.Options)) (*awsroute53.ChangeResourceRecordSetsOutput, error)
}

// Provider is a Route 53-backed dns.Provider.
type Provider struct {
	client  Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ dns.Provider = (*Provider)(nil)

// Option configures the provider during construction.
type Option func(*Provider)

// WithClient sets a pre-configured Route 53 client, primarily for tests.
func WithClient(client Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.client = client
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

// New creates a Route 53 provider. The context bounds credential chain
// resolution, which may perform network calls on EC2.
func New(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = dns.DefaultTimeout
	}

	p := &Provider{
		timeout: cfg.Timeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		p.client = awsroute53.NewFromConfig(awsCfg)
	}

	return p, nil
}

func (p *Provider) Name() string { return DriverName }

func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record dns.Record) dns.Result {
	return p.upsert(ctx, "create record", zoneID, record)
}

func (p *Provider) UpdateRecord(ctx context.Context, zoneID, recordID string, record dns.Record) dns.Result {
	if record.Name == "" || record.Type == "" {
		name, rtype, err := splitRecordID(recordID)
		if err != nil {
			return dns.Failure(err)
		}
		record.Name, record.Type = name, rtype
	}
	return p.upsert(ctx, "update record", zoneID, record)
}

func (p *Provider) DeleteRecord(ctx context.Context, zoneID, recordID string) dns.Result {
	name, rtype, err := splitRecordID(recordID)
	if err != nil {
		return dns.Failure(err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Route 53 DELETE changes must match the existing record set exactly,
	// so fetch it first.
	rrset, err := p.findRecordSet(ctx, zoneID, name, rtype)
	if err != nil {
		return p.failure(ctx, err, "delete record", zoneID, recordID)
	}
	if rrset == nil {
		return dns.Failuref("delete record: record %q not found in zone %q", recordID, zoneID)
	}

	_, err = p.client.ChangeResourceRecordSets(ctx, &awsroute53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action:            types.ChangeActionDelete,
				ResourceRecordSet: rrset,
			}},
		},
	})
	if err != nil {
		return p.failure(ctx, err, "delete record", zoneID, recordID)
	}
	return dns.Result{Success: true}
}

func (p *Provider) GetRecord(ctx context.Context, zoneID, recordID string) dns.Result {
	name, rtype, err := splitRecordID(recordID)
	if err != nil {
		return dns.Failure(err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rrset, err := p.findRecordSet(ctx, zoneID, name, rtype)
	if err != nil {
		return p.failure(ctx, err, "get record", zoneID, recordID)
	}
	if rrset == nil {
		return dns.Failuref("get record: record %q not found in zone %q", recordID, zoneID)
	}
	return dns.Result{Success: true, Record: toRecord(zoneID, *rrset)}
}

func (p *Provider) ListRecords(ctx context.Context, zoneID string, filter dns.RecordFilter) dns.Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	input := &awsroute53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}

	var records []dns.Record
	for {
		out, err := p.client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return p.failure(ctx, err, "list records", zoneID, "")
		}
		for _, rrset := range out.ResourceRecordSets {
			rec := toRecord(zoneID, rrset)
			if filter.Matches(*rec) {
				records = append(records, *rec)
			}
		}
		if !out.IsTruncated {
			break
		}
		input.StartRecordName = out.NextRecordName
		input.StartRecordType = out.NextRecordType
	}

	return dns.Result{Success: true, Records: records}
}

func (p *Provider) GetZone(ctx context.Context, domain string) dns.Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	candidate := strings.ToLower(strings.TrimSuffix(domain, "."))
	for {
		out, err := p.client.ListHostedZonesByName(ctx, &awsroute53.ListHostedZonesByNameInput{
			DNSName:  aws.String(candidate),
			MaxItems: aws.Int32(1),
		})
		if err != nil {
			return p.failure(ctx, err, "get zone", "", domain)
		}
		if len(out.HostedZones) > 0 && zoneName(out.HostedZones[0]) == candidate {
			return dns.Result{Success: true, Zone: toZone(out.HostedZones[0])}
		}

		idx := strings.Index(candidate, ".")
		if idx < 0 || !strings.Contains(candidate[idx+1:], ".") {
			return dns.Failuref("get zone: no hosted zone found for domain %q", domain)
		}
		candidate = candidate[idx+1:]
	}
}

func (p *Provider) ListZones(ctx context.Context) dns.Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	input := &awsroute53.ListHostedZonesInput{}

	var zones []dns.Zone
	for {
		out, err := p.client.ListHostedZones(ctx, input)
		if err != nil {
			return p.failure(ctx, err, "list zones", "", "")
		}
		for _, hz := range out.HostedZones {
			zones = append(zones, *toZone(hz))
		}
		if !out.IsTruncated {
			break
		}
		input.Marker = out.NextMarker
	}

	return dns.Result{Success: true, Zones: zones}
}

func (p *Provider) Verify(ctx context.Context) dns.Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.ListHostedZones(ctx, &awsroute53.ListHostedZonesInput{MaxItems: aws.Int32(1)})
	if err != nil {
		return p.failure(ctx, err, "verify credentials", "", "")
	}
	return dns.Result{Success: true, Message: "route53 credentials verified"}
}

func (p *Provider) upsert(ctx context.Context, op, zoneID string, record dns.Record) dns.Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ttl := int64(record.TTL)
	if ttl <= 0 {
		ttl = defaultTTL
	}

	_, err := p.client.ChangeResourceRecordSets(ctx, &awsroute53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(record.Name),
					Type:            types.RRType(record.Type),
					TTL:             aws.Int64(ttl),
					ResourceRecords: []types.ResourceRecord{{Value: aws.String(quoteValue(record))}},
				},
			}},
		},
	})
	if err != nil {
		return p.failure(ctx, err, op, zoneID, record.Name)
	}

	record.ID = recordID(record.Name, record.Type)
	record.ZoneID = zoneID
	if record.TTL <= 0 {
		record.TTL = defaultTTL
	}
	return dns.Result{Success: true, Record: &record}
}

func (p *Provider) findRecordSet(ctx context.Context, zoneID, name string, rtype dns.RecordType) (*types.ResourceRecordSet, error) {
	out, err := p.client.ListResourceRecordSets(ctx, &awsroute53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(name),
		StartRecordType: types.RRType(rtype),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	for _, rrset := range out.ResourceRecordSets {
		if strings.TrimSuffix(aws.ToString(rrset.Name), ".") == strings.TrimSuffix(name, ".") && rrset.Type == types.RRType(rtype) {
			return &rrset, nil
		}
	}
	return nil, nil
}

func (p *Provider) failure(ctx context.Context, err error, op, zoneID, target string) dns.Result {
	p.logger.ErrorContext(ctx, "route53 operation failed",
		slog.String("operation", op),
		slog.String("zone_id", zoneID),
		slog.String("target", target),
		slog.Any("error", err))
	return dns.Failuref("%s: %s", op, err)
}

// recordID builds the composite identifier Route 53 records are addressed
// by, since the API has no native record IDs.
func recordID(name string, rtype dns.RecordType) string {
	return name + "/" + string(rtype)
}

func splitRecordID(id string) (string, dns.RecordType, error) {
	idx := strings.LastIndex(id, "/")
	if idx <= 0 || idx == len(id)-1 {
		return "", "", fmt.Errorf("invalid route53 record id %q, want \"name/TYPE\"", id)
	}
	return id[:idx], dns.RecordType(id[idx+1:]), nil
}

func toRecord(zoneID string, rrset types.ResourceRecordSet) *dns.Record {
	name := strings.TrimSuffix(aws.ToString(rrset.Name), ".")
	rec := &dns.Record{
		ID:     recordID(name, dns.RecordType(rrset.Type)),
		ZoneID: zoneID,
		Type:   dns.RecordType(rrset.Type),
		Name:   name,
		TTL:    int(aws.ToInt64(rrset.TTL)),
	}
	if len(rrset.ResourceRecords) > 0 {
		rec.Content = unquoteValue(rrset.Type, aws.ToString(rrset.ResourceRecords[0].Value))
	}
	return rec
}

func toZone(hz types.HostedZone) *dns.Zone {
	return &dns.Zone{
		ID:     strings.TrimPrefix(aws.ToString(hz.Id), "/hostedzone/"),
		Name:   zoneName(hz),
		Status: "active",
	}
}

func zoneName(hz types.HostedZone) string {
	return strings.TrimSuffix(aws.ToString(hz.Name), ".")
}

// quoteValue wraps TXT content in the quotes Route 53 requires.
func quoteValue(record dns.Record) string {
	if record.Type == dns.TypeTXT && !strings.HasPrefix(record.Content, `"`) {
		return `"` + record.Content + `"`
	}
	return record.Content
}

func unquoteValue(rtype types.RRType, value string) string {
	if rtype == types.RRTypeTxt {
		return strings.Trim(value, `"`)
	}
	return value
}
