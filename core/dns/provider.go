package dns

import (
	"context"
	"fmt"
	"time"
)

// RecordType enumerates the record kinds the verification flow manages.
type RecordType string

const (
	TypeTXT   RecordType = "TXT"
	TypeCNAME RecordType = "CNAME"
	TypeA     RecordType = "A"
)

// DefaultTimeout bounds every provider API call unless the configuration
// overrides it.
const DefaultTimeout = 10 * time.Second

// Record is the provider-neutral representation of a DNS record.
type Record struct {
	ID      string     `json:"id,omitempty"`
	ZoneID  string     `json:"zone_id,omitempty"`
	Type    RecordType `json:"type"`
	Name    string     `json:"name"`
	Content string     `json:"content"`
	TTL     int        `json:"ttl,omitempty"`
}

// Zone is the provider-neutral representation of a DNS zone.
type Zone struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status,omitempty"`
	NameServers []string `json:"name_servers,omitempty"`
}

// RecordFilter narrows ListRecords results. Zero fields match everything.
type RecordFilter struct {
	Type RecordType
	Name string
}

// Result is the normalized outcome of every provider operation. Exactly one
// of the payload fields is populated on success, matching the operation;
// Error is non-empty iff Success is false. Message carries human-directed
// instructions from the manual provider.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Record  *Record  `json:"record,omitempty"`
	Records []Record `json:"records,omitempty"`
	Zone    *Zone    `json:"zone,omitempty"`
	Zones   []Zone   `json:"zones,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Failure builds a failed Result from an error.
func Failure(err error) Result {
	return Result{Error: err.Error()}
}

// Failuref builds a failed Result from a format string.
func Failuref(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Provider is the capability interface over a DNS backend. Implementations
// convert every failure into a normalized Result, honor caller-supplied
// context cancellation, and bound each call with the configured timeout.
type Provider interface {
	// Name returns the driver name the provider registered under.
	Name() string

	CreateRecord(ctx context.Context, zoneID string, record Record) Result
	UpdateRecord(ctx context.Context, zoneID, recordID string, record Record) Result
	DeleteRecord(ctx context.Context, zoneID, recordID string) Result
	GetRecord(ctx context.Context, zoneID, recordID string) Result
	ListRecords(ctx context.Context, zoneID string, filter RecordFilter) Result

	GetZone(ctx context.Context, domain string) Result
	ListZones(ctx context.Context) Result

	// Verify checks connectivity and credentials without mutating anything.
	Verify(ctx context.Context) Result
}

// Matches reports whether a record passes the filter.
func (f RecordFilter) Matches(r Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Name != "" && r.Name != f.Name {
		return false
	}
	return true
}
