// Package domains drives the custom domain trust lifecycle: registration,
// DNS ownership verification, activation, and certificate issuance.
//
// Register stores an unverified domain with a fresh verification token and
// places (or instructs the operator to place) a TXT record carrying it.
// Verify confirms the token is visible in public DNS, flips the domain to
// verified and active, and hands the domain to the certificate
// provisioner. Until Verify succeeds the resolver refuses to serve traffic
// for the domain, so trust is established before exposure.
//
// The flow tolerates partial progress: registration succeeds even when the
// DNS provider cannot place the record (the manual provider returns
// operator instructions instead), and a certificate failure after
// verification leaves the domain verified so issuance can be retried
// without re-proving ownership.
//
// Usage:
//
//	service, err := domains.New(repo, provider,
//		domains.WithCertIssuer(provisioner),
//		domains.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	registered, setup, err := service.Register(ctx, tenantID, "shop.acmecorp.com")
//	// ... operator places the TXT record if setup.Message says so ...
//	err = service.WaitVerified(ctx, "shop.acmecorp.com", 10*time.Minute)
package domains
