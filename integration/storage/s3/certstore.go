package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/canvastack/stencil/core/certs"
)

// ErrInvalidConfig is returned when required configuration is missing.
var ErrInvalidConfig = errors.New("s3: bucket and region are required")

// Client defines the S3 operations CertStore uses. Satisfied by
// *s3aws.Client; tests substitute a mock through WithClient.
type Client interface {
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3aws.GetObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3aws.HeadObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3aws.DeleteObjectsInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectsOutput, error)
}

// Config contains S3 certificate store configuration.
type Config struct {
	Bucket         string `env:"CERT_S3_BUCKET"`
	Region         string `env:"CERT_S3_REGION"`
	AccessKeyID    string `env:"CERT_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"CERT_S3_SECRET_KEY"`
	Endpoint       string `env:"CERT_S3_ENDPOINT"`
	ForcePathStyle bool   `env:"CERT_S3_FORCE_PATH_STYLE" envDefault:"false"`
	Prefix         string `env:"CERT_S3_PREFIX" envDefault:"certificates"`
}

// CertStore implements certs.Store over an S3 bucket.
type CertStore struct {
	client Client
	bucket string
	prefix string
}

var _ certs.Store = (*CertStore)(nil)

// Option configures a CertStore during construction.
type Option func(*options)

type options struct {
	client     Client
	httpClient *http.Client
}

// WithClient sets a custom pre-configured S3 client, primarily for tests.
func WithClient(client Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// New creates an S3 certificate store. Static credentials are used when
// configured, otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config, opts ...Option) (*CertStore, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretKey, "")))
		}
		if o.httpClient != nil {
			awsOptions = append(awsOptions, awsconfig.WithHTTPClient(o.httpClient))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("s3: load aws config: %w", err)
		}

		client = s3aws.NewFromConfig(awsCfg, func(so *s3aws.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &CertStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// PutBundle stores all three artifacts for the domain. The certificate is
// written last so a bundle only becomes observable once complete.
func (s *CertStore) PutBundle(ctx context.Context, domain string, bundle certs.Bundle) (certs.BundlePaths, error) {
	if domain == "" {
		return certs.BundlePaths{}, certs.ErrInvalidDomain
	}
	if len(bundle.Certificate) == 0 || len(bundle.PrivateKey) == 0 || len(bundle.FullChain) == 0 {
		return certs.BundlePaths{}, fmt.Errorf("s3: incomplete bundle for %s", domain)
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{certs.PrivateKeyFile, bundle.PrivateKey},
		{certs.FullChainFile, bundle.FullChain},
		{certs.CertificateFile, bundle.Certificate},
	}
	for _, artifact := range artifacts {
		key := s.objectKey(domain, artifact.name)
		_, err := s.client.PutObject(ctx, &s3aws.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(artifact.data),
			ContentType: aws.String("application/x-pem-file"),
		})
		if err != nil {
			return certs.BundlePaths{}, fmt.Errorf("s3: put %s: %w", key, err)
		}
	}

	return certs.BundlePaths{
		CertificatePath: s.objectKey(domain, certs.CertificateFile),
		PrivateKeyPath:  s.objectKey(domain, certs.PrivateKeyFile),
		FullChainPath:   s.objectKey(domain, certs.FullChainFile),
	}, nil
}

// ReadCertificate returns the stored leaf certificate for the domain.
func (s *CertStore) ReadCertificate(ctx context.Context, domain string) ([]byte, error) {
	key := s.objectKey(domain, certs.CertificateFile)
	out, err := s.client.GetObject(ctx, &s3aws.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", certs.ErrCertificateNotFound, domain)
		}
		return nil, fmt.Errorf("s3: get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes every artifact for the domain. Returns false without an
// error when nothing was stored.
func (s *CertStore) Delete(ctx context.Context, domain string) (bool, error) {
	prefix := s.domainPrefix(domain)
	listed, err := s.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return false, fmt.Errorf("s3: list %s: %w", prefix, err)
	}
	if len(listed.Contents) == 0 {
		return false, nil
	}

	identifiers := make([]types.ObjectIdentifier, 0, len(listed.Contents))
	for _, obj := range listed.Contents {
		identifiers = append(identifiers, types.ObjectIdentifier{Key: obj.Key})
	}

	_, err = s.client.DeleteObjects(ctx, &s3aws.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: identifiers},
	})
	if err != nil {
		return false, fmt.Errorf("s3: delete %s: %w", prefix, err)
	}
	return true, nil
}

// Exists reports whether a complete bundle is stored for the domain.
func (s *CertStore) Exists(ctx context.Context, domain string) bool {
	_, err := s.client.HeadObject(ctx, &s3aws.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(domain, certs.CertificateFile)),
	})
	return err == nil
}

// ListDomains returns all domains with stored bundles, sorted.
func (s *CertStore) ListDomains(ctx context.Context) ([]string, error) {
	prefix := s.rootPrefix()
	out, err := s.client.ListObjectsV2(ctx, &s3aws.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: list domains: %w", err)
	}

	domains := make([]string, 0, len(out.CommonPrefixes))
	for _, cp := range out.CommonPrefixes {
		if cp.Prefix == nil {
			continue
		}
		domain := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	sort.Strings(domains)
	return domains, nil
}

func (s *CertStore) rootPrefix() string {
	if s.prefix == "" {
		return "domains/"
	}
	return s.prefix + "/domains/"
}

func (s *CertStore) domainPrefix(domain string) string {
	return s.rootPrefix() + domain + "/"
}

func (s *CertStore) objectKey(domain, file string) string {
	return s.domainPrefix(domain) + file
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}
