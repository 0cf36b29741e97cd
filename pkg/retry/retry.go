// Package retry executes fallible AWS calls, retrying throttled and
// transient failures on a caller-supplied backoff schedule.
//
// Retry decisions are made from the error alone, through the awserrors
// classifier, so the same Policy works for v1 and v2 SDK clients:
//
//	out, err := retry.Do(ctx, retry.Policy[*s3.HeadObjectOutput]{
//		Delays: retry.Milliseconds(100, 200, 400),
//	}, func(ctx context.Context, _ retry.Attempt[*s3.HeadObjectOutput]) (*s3.HeadObjectOutput, error) {
//		return client.HeadObject(ctx, input)
//	})
//
// The driver never wraps errors: when retries are refused or exhausted the
// most recent error is returned unchanged.
package retry

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"

	"github.com/3leaps/awsbridge/pkg/awserrors"
)

// DefaultPolicyName labels logs and metrics of unnamed policies.
const DefaultPolicyName = "default"

// Attempt describes one invocation of an Operation.
type Attempt[T any] struct {
	// Number is 1-based; attempt 1 is the initial call.
	Number int

	// Result and Err hold the outcome of the previous attempt.
	// Both are zero on attempt 1.
	Result T
	Err    error
}

// Operation is a single fallible call.
type Operation[T any] func(ctx context.Context, a Attempt[T]) (T, error)

// BackoffFunc computes the delay before the attempt following a.
//
// It is called with the failed attempt: a.Number is the attempt that just
// failed and a.Result/a.Err its outcome. Returning false, or a negative
// duration, stops retrying.
type BackoffFunc[T any] func(a Attempt[T]) (time.Duration, bool)

// Policy configures Do. The zero value makes a single attempt.
//
// A Policy is read-only for the duration of a Do call and may be shared by
// concurrent calls, provided Backoff is itself safe for concurrent use.
type Policy[T any] struct {
	// Delays is the fixed schedule. Delays[0] is the wait before attempt 2,
	// so len(Delays) bounds the number of retries. Ignored when Backoff is set.
	Delays []time.Duration

	// Backoff computes the schedule dynamically.
	Backoff BackoffFunc[T]

	// Statuses restricts retries to errors with the listed HTTP statuses.
	// Nil means DefaultStatusFilter (429 only).
	Statuses *StatusFilter

	// Name labels log entries and metrics.
	Name string

	// Clock drives the waits between attempts. Nil uses the wall clock.
	Clock clock.Clock

	// Logger receives debug events. Nil disables logging.
	Logger *zap.Logger

	// Metrics records retry counters. Optional.
	Metrics *Metrics
}

// Do invokes op until it succeeds or the policy refuses another attempt.
//
// After a failure, a retry happens only if the error is retryable or a
// throttling error AND the policy's status filter admits its status code.
// The wait before the next attempt is the larger of the scheduled delay and
// the server-advised delay carried by the error. Waiting stops early when
// ctx is cancelled, in which case ctx.Err() is returned.
func Do[T any](ctx context.Context, p Policy[T], op Operation[T]) (T, error) {
	var zero T

	name := p.name()
	logger := p.logger().With(zap.String("policy", name))
	clk := p.clock()
	filter := p.statuses()

	a := Attempt[T]{Number: 1}
	for {
		result, err := op(ctx, a)
		if err == nil {
			if a.Number > 1 {
				logger.Debug("Operation succeeded after retry", zap.Int("attempt", a.Number))
			}
			return result, nil
		}

		if !ShouldRetry(err, filter) {
			return zero, err
		}

		failed := Attempt[T]{Number: a.Number, Result: result, Err: err}
		delay, ok := p.delay(failed)
		if !ok {
			p.Metrics.observeExhausted(name)
			logger.Debug("Retry attempts exhausted",
				zap.Int("attempt", a.Number),
				zap.Error(err))
			return zero, err
		}

		if advised, ok := awserrors.RetryAfter(err); ok && advised > delay {
			delay = advised
		}

		p.Metrics.observeRetry(name, delay)
		fields := []zap.Field{
			zap.Int("attempt", a.Number),
			zap.Duration("delay", delay),
			zap.String("code", awserrors.ErrorCode(err)),
		}
		if status, ok := awserrors.StatusCode(err); ok {
			fields = append(fields, zap.Int("status", status))
		}
		logger.Debug("Retrying after backoff", fields...)

		if werr := wait(ctx, clk, delay); werr != nil {
			return zero, werr
		}

		a = Attempt[T]{Number: a.Number + 1, Result: result, Err: err}
	}
}

// ShouldRetry reports whether err may be retried under filter.
// A nil filter means DefaultStatusFilter.
func ShouldRetry(err error, filter *StatusFilter) bool {
	if err == nil {
		return false
	}
	if !awserrors.IsRetryable(err) && !awserrors.IsThrottlingError(err) {
		return false
	}
	if filter == nil {
		filter = DefaultStatusFilter()
	}
	return filter.Allows(awserrors.StatusCode(err))
}

// delay returns the scheduled wait after the failed attempt a.
func (p Policy[T]) delay(a Attempt[T]) (time.Duration, bool) {
	if p.Backoff != nil {
		d, ok := p.Backoff(a)
		if !ok || d < 0 {
			return 0, false
		}
		return d, true
	}

	i := a.Number - 1
	if i < 0 || i >= len(p.Delays) {
		return 0, false
	}
	if d := p.Delays[i]; d >= 0 {
		return d, true
	}
	return 0, false
}

func (p Policy[T]) name() string {
	if p.Name == "" {
		return DefaultPolicyName
	}
	return p.Name
}

func (p Policy[T]) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p Policy[T]) clock() clock.Clock {
	if p.Clock == nil {
		return clock.NewClock()
	}
	return p.Clock
}

func (p Policy[T]) statuses() *StatusFilter {
	if p.Statuses == nil {
		return DefaultStatusFilter()
	}
	return p.Statuses
}

// wait blocks for d on clk or until ctx is done.
func wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := clk.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
