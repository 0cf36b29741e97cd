package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/3leaps/awsbridge/pkg/awserrors"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable indicates the service is unavailable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrThrottled indicates the request was rate limited.
	ErrThrottled = errors.New("request throttled")

	// ErrPresignUnsupported is returned by PresignGet on a store built
	// without a presigner.
	ErrPresignUnsupported = errors.New("presigning not configured")
)

// ObjectError wraps a failed store operation.
//
// Both Kind and Err are reachable through errors.Is/As, so callers can test
// for a sentinel and still inspect the SDK error.
type ObjectError struct {
	// Op is the operation that failed (e.g., "Head", "Scan").
	Op string

	// Bucket is the bucket name.
	Bucket string

	// Key is the object key or listing prefix, if applicable.
	Key string

	// Kind is one of the sentinel errors, or nil when unclassified.
	Kind error

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ObjectError) Error() string {
	msg := e.Err
	if e.Kind != nil {
		msg = fmt.Errorf("%w: %w", e.Kind, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3 %s: %s/%s: %v", e.Op, e.Bucket, e.Key, msg)
	}
	return fmt.Sprintf("s3 %s: %s: %v", e.Op, e.Bucket, msg)
}

// Unwrap returns the sentinel and the underlying error.
func (e *ObjectError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// wrapError converts an SDK error into an *ObjectError with a sentinel Kind.
// Context errors are returned unchanged.
func (s *Store) wrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ObjectError{Op: op, Bucket: s.bucket, Key: key, Kind: classify(err), Err: err}
}

// classify maps an SDK error to a sentinel: modeled S3 errors first, then
// error codes, then bare HTTP statuses for code-less responses such as HEAD.
func classify(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		return ErrNotFound
	case errors.As(err, &noSuchBucket):
		return ErrBucketNotFound
	}

	switch awserrors.ErrorCode(err) {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied", "Forbidden":
		return ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return ErrInvalidCredentials
	case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded":
		return ErrThrottled
	case "ServiceUnavailable", "InternalError":
		return ErrUnavailable
	}

	if status, ok := awserrors.StatusCode(err); ok {
		switch status {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden:
			return ErrAccessDenied
		case http.StatusTooManyRequests:
			return ErrThrottled
		case http.StatusServiceUnavailable:
			return ErrUnavailable
		}
	}
	return nil
}
