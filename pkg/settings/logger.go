package settings

import (
	"fmt"

	"code.cloudfoundry.org/clock"
	"go.uber.org/zap"

	"github.com/3leaps/awsbridge/pkg/retry"
)

// NewLogger builds a zap logger at the configured level. Development mode
// uses the console encoder.
func NewLogger(l Logging) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, &Error{Field: "logging.level", Message: fmt.Sprintf("invalid level %q", l.Level)}
	}

	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	return cfg.Build()
}

// RetryConfig assembles a retry.Config from the retry settings. clk and
// metrics may be nil.
func (s *Settings) RetryConfig(logger *zap.Logger, clk clock.Clock, metrics *retry.Metrics) (retry.Config, error) {
	filter, err := s.Retry.StatusFilter()
	if err != nil {
		return retry.Config{}, err
	}
	return retry.Config{
		Delays:   s.Retry.Delays,
		Statuses: filter,
		Name:     s.Retry.Name,
		Clock:    clk,
		Logger:   logger,
		Metrics:  metrics,
	}, nil
}
