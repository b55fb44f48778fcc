package dns

import (
	"context"
	"fmt"
)

// ManualDriverName selects the built-in no-op provider.
const ManualDriverName = "manual"

// ManualProvider is the degraded backend used when no DNS integration is
// configured. Every mutation succeeds without side effects and carries an
// instruction for the operator to apply the change by hand, so domain
// verification remains possible on platforms without API credentials.
type ManualProvider struct{}

// NewManualProvider creates the manual no-op provider.
func NewManualProvider() *ManualProvider {
	return &ManualProvider{}
}

var _ Provider = (*ManualProvider)(nil)

func (p *ManualProvider) Name() string { return ManualDriverName }

func (p *ManualProvider) CreateRecord(_ context.Context, zoneID string, record Record) Result {
	record.ZoneID = zoneID
	return Result{
		Success: true,
		Message: fmt.Sprintf("manual DNS mode: create a %s record %q with content %q in your DNS console", record.Type, record.Name, record.Content),
		Record:  &record,
	}
}

func (p *ManualProvider) UpdateRecord(_ context.Context, zoneID, recordID string, record Record) Result {
	record.ZoneID = zoneID
	record.ID = recordID
	return Result{
		Success: true,
		Message: fmt.Sprintf("manual DNS mode: update the %s record %q to content %q in your DNS console", record.Type, record.Name, record.Content),
		Record:  &record,
	}
}

func (p *ManualProvider) DeleteRecord(_ context.Context, zoneID, recordID string) Result {
	return Result{
		Success: true,
		Message: fmt.Sprintf("manual DNS mode: delete record %q in zone %q in your DNS console", recordID, zoneID),
	}
}

func (p *ManualProvider) GetRecord(_ context.Context, zoneID, recordID string) Result {
	return Result{
		Success: true,
		Message: fmt.Sprintf("manual DNS mode: no API access to read record %q in zone %q; check your DNS console", recordID, zoneID),
	}
}

func (p *ManualProvider) ListRecords(_ context.Context, zoneID string, _ RecordFilter) Result {
	return Result{
		Success: true,
		Message: fmt.Sprintf("manual DNS mode: no API access to list records in zone %q; check your DNS console", zoneID),
		Records: []Record{},
	}
}

func (p *ManualProvider) GetZone(_ context.Context, domain string) Result {
	// A synthetic zone keyed by the domain lets the verification flow
	// proceed to record instructions without a real zone lookup.
	return Result{
		Success: true,
		Message: fmt.Sprintf("manual DNS mode: using domain %q as its own zone", domain),
		Zone:    &Zone{ID: domain, Name: domain, Status: "manual"},
	}
}

func (p *ManualProvider) ListZones(_ context.Context) Result {
	return Result{
		Success: true,
		Message: "manual DNS mode: no API access to list zones",
		Zones:   []Zone{},
	}
}

func (p *ManualProvider) Verify(_ context.Context) Result {
	return Result{
		Success: true,
		Message: "manual DNS mode active: no provider credentials configured, DNS changes must be applied by an operator",
	}
}
