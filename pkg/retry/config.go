package retry

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"
)

// Config holds the settings of a Policy that do not depend on the result
// type. Clients that issue calls of several result types under one
// schedule keep a Config and derive a Policy per call with PolicyFor.
type Config struct {
	Delays   []time.Duration
	Statuses *StatusFilter
	Name     string
	Clock    clock.Clock
	Logger   *zap.Logger
	Metrics  *Metrics
}

// PolicyFor returns a Policy carrying c's settings.
func PolicyFor[T any](c Config) Policy[T] {
	return Policy[T]{
		Delays:   c.Delays,
		Statuses: c.Statuses,
		Name:     c.Name,
		Clock:    c.Clock,
		Logger:   c.Logger,
		Metrics:  c.Metrics,
	}
}

// Run is Do under the policy derived from c.
func Run[T any](ctx context.Context, c Config, op func(ctx context.Context) (T, error)) (T, error) {
	return Do(ctx, PolicyFor[T](c), func(ctx context.Context, _ Attempt[T]) (T, error) {
		return op(ctx)
	})
}
