package awserrors

import "time"

// IsLegacy reports whether err carries a v1 awserr.Error.
func IsLegacy(err error) bool {
	_, ok := AsLegacy(err)
	return ok
}

// IsModern reports whether err carries a smithy API error or an HTTP
// response error from the v2 SDK.
func IsModern(err error) bool {
	_, ok := AsModern(err)
	return ok
}

// IsEither reports whether err matches either shape.
func IsEither(err error) bool {
	return IsModern(err) || IsLegacy(err)
}

// StatusCode returns the HTTP status of a failed call. The v2 response
// status wins over the v1 RequestFailure status.
func StatusCode(err error) (int, bool) {
	if m, ok := AsModern(err); ok {
		if code, ok := m.StatusCode(); ok {
			return code, true
		}
	}
	if l, ok := AsLegacy(err); ok {
		return l.StatusCode()
	}
	return 0, false
}

// IsRetryable reports whether the SDK that produced err considers it
// transient. Foreign errors are never retryable.
func IsRetryable(err error) bool {
	if m, ok := AsModern(err); ok {
		return m.Retryable()
	}
	if l, ok := AsLegacy(err); ok {
		return l.Retryable()
	}
	return false
}

// IsThrottlingError reports whether err is a ThrottlingException from
// either SDK generation.
func IsThrottlingError(err error) bool {
	if m, ok := AsModern(err); ok && m.Throttling() {
		return true
	}
	if l, ok := AsLegacy(err); ok && l.Throttling() {
		return true
	}
	return false
}

// RetryAfter returns the server-advised delay carried by err.
func RetryAfter(err error) (time.Duration, bool) {
	if s := Classify(err); s != nil {
		return s.RetryAfter()
	}
	return 0, false
}

// ErrorCode returns the service error code of err, or "".
func ErrorCode(err error) string {
	if s := Classify(err); s != nil {
		return s.Code()
	}
	return ""
}
