package circuitbreaker

import (
	"github.com/sony/gobreaker"

	"traffic-director/internal/common/errors"
	"traffic-director/internal/common/logging"
)

// ClusterBreaker wraps one gobreaker instance guarding one upstream
// cluster.
type ClusterBreaker struct {
	cluster string
	breaker *gobreaker.TwoStepCircuitBreaker
	logger  logging.Logger
}

// NewClusterBreaker creates a breaker for the named cluster. An invalid
// config is replaced by DefaultConfig so a bad policy never panics the
// data plane.
func NewClusterBreaker(cluster string, config Config, logger logging.Logger) *ClusterBreaker {
	if err := config.Validate(); err != nil {
		if logger != nil {
			logger.Warn("invalid circuit breaker config, using defaults",
				logging.Field{Key: "cluster", Value: cluster},
				logging.Field{Key: "error", Value: err.Error()},
			)
		}
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	settings := gobreaker.Settings{
		Name: cluster,
		// Probation admits exactly SuccessThreshold probe calls; that
		// many consecutive successes closes the breaker again.
		MaxRequests: uint32(config.SuccessThreshold),
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.FailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("cluster breaker state changed",
				logging.Field{Key: "cluster", Value: name},
				logging.Field{Key: "from", Value: convertState(from).String()},
				logging.Field{Key: "to", Value: convertState(to).String()},
			)
		},
	}

	return &ClusterBreaker{
		cluster: cluster,
		breaker: gobreaker.NewTwoStepCircuitBreaker(settings),
		logger:  logger,
	}
}

// Allow reports whether a call to the cluster may proceed and returns a
// completion callback the caller must invoke with the call's outcome.
// When the breaker is open, Allow returns an internal error and a nil
// callback.
func (b *ClusterBreaker) Allow() (func(success bool), error) {
	done, err := b.breaker.Allow()
	if err == gobreaker.ErrOpenState {
		return nil, errors.InternalError("cluster "+b.cluster+" is unhealthy", err)
	}
	if err == gobreaker.ErrTooManyRequests {
		return nil, errors.InternalError("cluster "+b.cluster+" probation is saturated", err)
	}
	if err != nil {
		return nil, err
	}
	return done, nil
}

// Record executes fn under breaker accounting: a nil return counts as a
// success, anything else as a failure.
func (b *ClusterBreaker) Record(fn func() error) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}
	err = fn()
	done(err == nil)
	return err
}

// State returns the breaker's health state.
func (b *ClusterBreaker) State() State {
	return convertState(b.breaker.State())
}

// Stats returns current statistics.
func (b *ClusterBreaker) Stats() Stats {
	counts := b.breaker.Counts()
	return Stats{
		Cluster:   b.cluster,
		State:     b.State().String(),
		Failures:  int(counts.TotalFailures),
		Successes: int(counts.TotalSuccesses),
	}
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateHealthy
	case gobreaker.StateOpen:
		return StateUnhealthy
	case gobreaker.StateHalfOpen:
		return StateProbation
	default:
		return StateHealthy
	}
}
