// Package awserrors normalizes the error values produced by the two
// generations of the AWS SDK for Go into one view.
//
// The v1 SDK (github.com/aws/aws-sdk-go) reports service failures as
// awserr.Error values, optionally carrying an HTTP status through
// awserr.RequestFailure. The v2 SDK (github.com/aws/aws-sdk-go-v2) reports
// them as a chain of smithy.OperationError, an HTTP ResponseError carrying
// the raw response, and a smithy.APIError carrying the error code.
//
// Classify inspects an error once and returns a Shape, a sealed union with
// the variants *Legacy and *Modern. Callers match on the variant instead of
// re-probing the error. The package-level predicates (StatusCode,
// IsRetryable, IsThrottlingError, RetryAfter) are total: nil and foreign
// errors classify as "neither shape" and never panic.
package awserrors

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ThrottlingException is the canonical error code for rate-limit rejections.
const ThrottlingException = "ThrottlingException"

// Shape is the classified view of an SDK error.
//
// The only implementations are *Legacy and *Modern.
type Shape interface {
	error

	// Code returns the service error code, or "" when none is known.
	Code() string

	// StatusCode returns the HTTP status of the failed response, if known.
	StatusCode() (int, bool)

	// Retryable reports whether the SDK considers the failure transient.
	Retryable() bool

	// Throttling reports whether the error code is ThrottlingException.
	Throttling() bool

	// RetryAfter returns the server-advised delay, if any.
	RetryAfter() (time.Duration, bool)

	// Unwrap returns the classified error.
	Unwrap() error

	shape()
}

// Legacy is an error produced by the v1 SDK.
type Legacy struct {
	err     error
	aerr    awserr.Error
	status  int
	hasCode bool
	delay   time.Duration
	delayed bool
}

// Modern is an error produced by the v2 SDK.
type Modern struct {
	err    error
	api    smithy.APIError
	resp   *http.Response
	status int
}

// retryDelayer is implemented by errors that carry a server-advised delay
// outside of an HTTP response.
type retryDelayer interface {
	RetryDelay() time.Duration
}

var (
	_ Shape = (*Legacy)(nil)
	_ Shape = (*Modern)(nil)
)

// Classify returns the shape of err, preferring Modern when an error chain
// carries both. It returns nil when err matches neither shape.
func Classify(err error) Shape {
	if m, ok := AsModern(err); ok {
		return m
	}
	if l, ok := AsLegacy(err); ok {
		return l
	}
	return nil
}

// AsLegacy extracts the v1 view of err.
func AsLegacy(err error) (*Legacy, bool) {
	if err == nil {
		return nil, false
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) || aerr == nil {
		return nil, false
	}

	l := &Legacy{err: err, aerr: aerr}

	var rf awserr.RequestFailure
	if errors.As(err, &rf) && rf != nil {
		l.status = rf.StatusCode()
		l.hasCode = true
	}

	var rd retryDelayer
	if errors.As(err, &rd) && rd != nil {
		l.delay = rd.RetryDelay()
		l.delayed = true
	}

	return l, true
}

// AsModern extracts the v2 view of err.
func AsModern(err error) (*Modern, bool) {
	if err == nil {
		return nil, false
	}

	m := &Modern{err: err}

	var api smithy.APIError
	if errors.As(err, &api) && api != nil {
		m.api = api
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr != nil && respErr.Response != nil && respErr.Response.Response != nil {
		m.resp = respErr.Response.Response
		m.status = m.resp.StatusCode
	}

	if m.api == nil && respErr == nil {
		return nil, false
	}
	return m, true
}

func (l *Legacy) shape() {}

func (l *Legacy) Error() string { return l.err.Error() }

// Unwrap returns the original error.
func (l *Legacy) Unwrap() error { return l.err }

// Code returns the awserr code.
func (l *Legacy) Code() string { return l.aerr.Code() }

// Message returns the awserr message.
func (l *Legacy) Message() string { return l.aerr.Message() }

// StatusCode returns the status carried by awserr.RequestFailure.
func (l *Legacy) StatusCode() (int, bool) { return l.status, l.hasCode }

// Retryable uses the v1 SDK's own retry and throttle tables.
func (l *Legacy) Retryable() bool {
	return request.IsErrorRetryable(l.aerr) || request.IsErrorThrottle(l.aerr)
}

// Throttling reports whether the code is ThrottlingException.
func (l *Legacy) Throttling() bool { return l.aerr.Code() == ThrottlingException }

// RetryAfter returns the delay of a wrapped error implementing
// RetryDelay() time.Duration.
func (l *Legacy) RetryAfter() (time.Duration, bool) { return l.delay, l.delayed }

func (m *Modern) shape() {}

func (m *Modern) Error() string { return m.err.Error() }

// Unwrap returns the original error.
func (m *Modern) Unwrap() error { return m.err }

// Code returns the smithy error code, or "" when the chain has none.
func (m *Modern) Code() string {
	if m.api == nil {
		return ""
	}
	return m.api.ErrorCode()
}

// StatusCode returns the status of the HTTP response in the chain.
func (m *Modern) StatusCode() (int, bool) {
	if m.resp == nil {
		return 0, false
	}
	return m.status, true
}

// Retryable reports the v2 SDK's throttle verdict. Server errors and
// transport failures that are not throttles are not retryable.
func (m *Modern) Retryable() bool {
	return retry.IsErrorThrottles(retry.DefaultThrottles).IsErrorThrottle(m.err) == aws.TrueTernary
}

// Throttling reports whether the smithy error code is ThrottlingException.
func (m *Modern) Throttling() bool { return m.Code() == ThrottlingException }

// maxRetryAfterSeconds is the largest delta-seconds value representable as
// a time.Duration.
const maxRetryAfterSeconds = math.MaxInt64 / int64(time.Second)

// RetryAfter parses the Retry-After header of the failed response.
// Only the integer delta-seconds form is honoured; values too large for a
// time.Duration are ignored.
func (m *Modern) RetryAfter() (time.Duration, bool) {
	if m.resp == nil || m.resp.Header == nil {
		return 0, false
	}
	v := m.resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || secs < 0 || secs > maxRetryAfterSeconds {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
