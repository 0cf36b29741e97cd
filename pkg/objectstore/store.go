package objectstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/3leaps/awsbridge/pkg/retry"
)

// API is the subset of *s3.Client used by Store.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner is the subset of *s3.PresignClient used by PresignGet.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ API       = (*s3.Client)(nil)
	_ Presigner = (*s3.PresignClient)(nil)
)

// ObjectSummary describes an object returned by a listing.
type ObjectSummary struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectMeta is the result of Head.
type ObjectMeta struct {
	ObjectSummary
	ContentType string
	Metadata    map[string]string
}

// Store performs object operations against one bucket.
type Store struct {
	api       API
	presigner Presigner
	bucket    string
	maxKeys   int
	rateLimit float64
	retry     retry.Config
	logger    *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithRetry sets the retry schedule applied to every call.
// The default makes a single attempt.
func WithRetry(cfg retry.Config) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithLogger sets the logger for retries and listings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithPresigner enables PresignGet.
func WithPresigner(p Presigner) Option {
	return func(s *Store) { s.presigner = p }
}

// WithRateLimit caps listing page requests per second.
func WithRateLimit(rps float64) Option {
	return func(s *Store) { s.rateLimit = rps }
}

// New creates a Store for cfg.Bucket using awsCfg for credentials and region.
func New(awsCfg aws.Config, cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	s := NewFromAPI(client, cfg.Bucket, append([]Option{WithPresigner(s3.NewPresignClient(client))}, opts...)...)
	s.maxKeys = clampMaxKeys(cfg.MaxKeys)
	return s, nil
}

// NewFromAPI creates a Store over an existing client.
func NewFromAPI(api API, bucket string, opts ...Option) *Store {
	s := &Store{
		api:     api,
		bucket:  bucket,
		maxKeys: DefaultMaxKeys,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.Logger == nil {
		s.retry.Logger = s.logger
	}
	return s
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Head returns metadata for a single object.
func (s *Store) Head(ctx context.Context, key string) (*ObjectMeta, error) {
	out, err := retry.Run(ctx, s.retry, func(ctx context.Context) (*s3.HeadObjectOutput, error) {
		return s.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
	})
	if err != nil {
		return nil, s.wrapError("Head", key, err)
	}

	return &ObjectMeta{
		ObjectSummary: ObjectSummary{
			Key:          key,
			Size:         aws.ToInt64(out.ContentLength),
			ETag:         cleanETag(aws.ToString(out.ETag)),
			LastModified: aws.ToTime(out.LastModified),
		},
		ContentType: aws.ToString(out.ContentType),
		Metadata:    out.Metadata,
	}, nil
}

// Exists reports whether key exists. A missing object is not an error;
// any other failure, including access denied, is.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Head(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Get returns the full body of key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := retry.Run(ctx, s.retry, func(ctx context.Context) ([]byte, error) {
		out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()
		return io.ReadAll(out.Body)
	})
	if err != nil {
		return nil, s.wrapError("Get", key, err)
	}
	return body, nil
}

// Put uploads body to key. An empty contentType leaves the type unset.
func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := retry.Run(ctx, s.retry, func(ctx context.Context) (*s3.PutObjectOutput, error) {
		in := &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
		}
		if contentType != "" {
			in.ContentType = aws.String(contentType)
		}
		return s.api.PutObject(ctx, in)
	})
	return s.wrapError("Put", key, err)
}

// Copy copies srcKey to dstKey within the bucket.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := retry.Run(ctx, s.retry, func(ctx context.Context) (*s3.CopyObjectOutput, error) {
		return s.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(dstKey),
			CopySource: aws.String(s.bucket + "/" + EncodeKey(srcKey)),
		})
	})
	return s.wrapError("Copy", srcKey, err)
}

// Delete removes key. Deleting a missing key succeeds, as in S3.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := retry.Run(ctx, s.retry, func(ctx context.Context) (*s3.DeleteObjectOutput, error) {
		return s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
	})
	return s.wrapError("Delete", key, err)
}

// PresignGet returns a URL granting GET access to key for expires.
func (s *Store) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if s.presigner == nil {
		return "", s.wrapError("PresignGet", key, ErrPresignUnsupported)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", s.wrapError("PresignGet", key, err)
	}
	return req.URL, nil
}
