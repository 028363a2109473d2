package detection

import (
	"fmt"
	"time"

	"dqengine/domain/anomaly"
	"dqengine/internal"
	"dqengine/internal/errors"
	"dqengine/ports"
)

// Option configures a detector or one of its tiers
type Option func(*settings)

type settings struct {
	logger ports.Logger
	now    func() time.Time
}

// WithLogger injects the logger; components tag it with their own name
func WithLogger(logger ports.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for detection timestamps and date checks
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger: internal.NewNopLogger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// guard runs one check, turning a panic into an evaluation error
func guard(name string, check func() ([]anomaly.Anomaly, error)) (found []anomaly.Anomaly, err error) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = errors.EvaluationFailed(name, fmt.Errorf("panic: %v", r))
		}
	}()
	return check()
}
