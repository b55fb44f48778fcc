// Package route53 implements the dns.Provider interface on top of AWS
// Route 53 hosted zones.
//
// Route 53 has no per-record identifiers, so records are addressed by a
// composite "name/TYPE" ID and every mutation goes through a
// ChangeResourceRecordSets UPSERT or DELETE batch. Zone lookup uses
// ListHostedZonesByName and walks the domain's labels upward to the
// hosted apex. All failures are normalized into dns.Result values.
//
// # Configuration
//
//	type Config struct {
//		AccessKeyID     string
//		SecretAccessKey string
//		Region          string
//		Timeout         time.Duration
//	}
//
// Static keys are optional; when absent the AWS default credential chain
// applies (environment, shared config, instance role), which is the usual
// deployment mode on EC2/ECS.
//
// # Usage
//
//	provider, err := route53.New(ctx, route53.Config{Region: "us-east-1"})
//	if err != nil {
//		return err
//	}
//
//	zone := provider.GetZone(ctx, "shop.example.com")
//	res := provider.CreateRecord(ctx, zone.Zone.ID, dns.Record{
//		Type:    dns.RecordTypeTXT,
//		Name:    "_stencil-verify.shop.example.com",
//		Content: token,
//	})
//
// WithClient substitutes the AWS client in tests. The package registers
// itself with the core/dns factory under the "route53" driver name.
package route53
