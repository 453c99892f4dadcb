package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
)

const (
	// MinPartSize is the smallest part S3 accepts for any part but the last.
	MinPartSize int64 = 5 << 20

	defaultPartSize     int64 = 8 << 20
	defaultConcurrency        = 8
	defaultAbortTimeout       = 30 * time.Second
)

// API is the subset of the S3 client used by Store.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// PresignAPI is the subset of the S3 presign client used by Store.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config configures the S3-backed store.
type Config struct {
	Region         string
	Bucket         string
	Endpoint       string // optional, for S3-compatible services
	ForcePathStyle bool
	AccessKeyID    string
	SecretKey      string
	KMSKeyID       string
	PublicURLBase  string // overrides the fallback URL pattern
	PartSize       int64
	Concurrency    int
}

// Option customizes Store construction.
type Option func(*options)

type options struct {
	client  API
	presign PresignAPI
}

// WithClient injects a pre-built S3 client. Useful for testing with fakes.
func WithClient(client API) Option {
	return func(o *options) { o.client = client }
}

// WithPresignClient injects a presign client.
func WithPresignClient(p PresignAPI) Option {
	return func(o *options) { o.presign = p }
}

// Store implements object.ObjectStore and object.Presigner on Amazon S3.
// It is safe for concurrent use by independent uploads.
type Store struct {
	client        API
	presign       PresignAPI
	bucket        string
	region        string
	endpoint      string
	publicURLBase string
	kmsKeyID      string
	partSize      int64
	concurrency   int
	abortTimeout  time.Duration
	bufs          sync.Pool
}

// New creates a new S3-backed object store.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
		o.client = client
		if o.presign == nil {
			o.presign = s3.NewPresignClient(client)
		}
	}

	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = defaultPartSize
	}
	if partSize < MinPartSize {
		partSize = MinPartSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	s := &Store{
		client:        o.client,
		presign:       o.presign,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/"),
		publicURLBase: strings.TrimSuffix(strings.TrimSpace(cfg.PublicURLBase), "/"),
		kmsKeyID:      strings.TrimSpace(cfg.KMSKeyID),
		partSize:      partSize,
		concurrency:   concurrency,
		abortTimeout:  defaultAbortTimeout,
	}
	return s, nil
}

// Location reports the bucket and region objects are written to.
func (s *Store) Location() object.Location {
	return object.Location{Bucket: s.bucket, Region: s.region}
}

// ObjectURL returns the deterministic, non-expiring URL of key. The pattern is
// PUBLIC_URL_BASE when configured, the custom endpoint in path style when one
// is set, and the virtual-hosted AWS URL otherwise.
func (s *Store) ObjectURL(key string) string {
	escaped := escapeKey(key)
	switch {
	case s.publicURLBase != "":
		return s.publicURLBase + "/" + escaped
	case s.endpoint != "":
		return s.endpoint + "/" + s.bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
	}
}

func escapeKey(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

var (
	_ object.ObjectStore = (*Store)(nil)
	_ object.Presigner   = (*Store)(nil)
)
