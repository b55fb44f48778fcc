// Package certs drives ACME certificate issuance for verified custom
// domains, end to end, and persists the resulting bundle.
//
// A provisioning run is an explicit nine-step sequence: account key
// load-or-create, directory discovery, order creation, authorization and
// challenge selection, challenge setup, validation wait, domain key and
// CSR generation, finalization, and persistence. Each step is individually
// observable; the first failing step aborts the run and is reported in the
// structured ProvisionResult together with the underlying error. A bundle
// is written only after the full chain has been retrieved, so there is no
// partial-bundle state on disk.
//
//	p, err := certs.New(certs.Config{
//		Email:        "ops@canvastack.com",
//		StorageDir:   "/var/lib/stencil/certs",
//		ChallengeDir: "/var/www/acme",
//	})
//	res := p.Provision(ctx, "acmecorp.com")
//	if !res.Success {
//		log.Error("provisioning failed", "domain", res.Domain, "step", res.Step, "error", res.Error)
//	}
//
// Renewal is issuance re-run against the same domain and is safe to
// trigger on a schedule. The provisioner performs exactly one attempt per
// call and never serializes concurrent runs for the same domain itself;
// both retries and per-domain serialization belong to the calling
// scheduler (see core/renewal).
//
// The ACME protocol client is pluggable through a factory seam so tests
// run against a stub authority; the default wraps golang.org/x/crypto/acme
// against Let's Encrypt production or staging.
package certs
