package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Milliseconds converts a millisecond schedule into Policy.Delays.
func Milliseconds(ms ...int) []time.Duration {
	out := make([]time.Duration, len(ms))
	for i, v := range ms {
		out[i] = time.Duration(v) * time.Millisecond
	}
	return out
}

// FromBackOff adapts a cenkalti/backoff policy. backoff.Stop ends the
// retries and the policy is reset whenever attempt 1 fails.
//
// The returned func shares b, so it must not serve concurrent Do calls
// unless b is safe for concurrent use.
func FromBackOff[T any](b backoff.BackOff) BackoffFunc[T] {
	return func(a Attempt[T]) (time.Duration, bool) {
		if a.Number == 1 {
			b.Reset()
		}
		d := b.NextBackOff()
		if d == backoff.Stop {
			return 0, false
		}
		return d, true
	}
}

// Exponential builds an exponential schedule of n delays starting at
// initial and capped at maxDelay, without jitter.
func Exponential(n int, initial, maxDelay time.Duration) []time.Duration {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMaxInterval(maxDelay),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, b.NextBackOff())
	}
	return out
}
