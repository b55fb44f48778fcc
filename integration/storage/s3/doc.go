// Package s3 provides an S3-backed certificate bundle store for
// multi-node TLS edges.
//
// The filesystem store in core/certs works for a single edge host; when
// several hosts terminate TLS for custom domains they need a shared bundle
// location. CertStore implements the certs.Store interface over Amazon S3
// or any S3-compatible service (MinIO, Wasabi, Cloudflare R2).
//
// Bundle artifacts live under <prefix>/domains/<domain>/ using the same
// file names as the filesystem store. S3 offers no atomic multi-object
// rename, so PutBundle writes the private key and chain before the
// certificate: Exists and ReadCertificate key off certificate.pem, which
// means a partially written bundle is never observed as present.
//
// Usage:
//
//	store, err := s3.New(ctx, s3.Config{
//		Bucket: "stencil-certificates",
//		Region: "us-east-1",
//	})
//	if err != nil {
//		return err
//	}
//
//	provisioner, err := certs.New(cfg, certs.WithStore(store))
package s3
