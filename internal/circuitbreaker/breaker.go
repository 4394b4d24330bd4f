// Package circuitbreaker enforces the per-cluster circuit breaker
// policy resolved by the decision engine. The decision core only
// resolves thresholds; this package is the data-plane side that tracks
// live health per upstream cluster, built on Sony's gobreaker.
//
// State machine: HEALTHY transitions to UNHEALTHY after
// FailureThreshold consecutive failures; after ResetTimeout elapses the
// breaker enters PROBATION, where SuccessThreshold consecutive
// successes restore HEALTHY and any failure returns to UNHEALTHY and
// restarts the reset timer.
package circuitbreaker

import (
	"fmt"
	"time"
)

// State represents the health state of one upstream cluster.
type State int

const (
	// StateHealthy means calls flow to the cluster normally.
	StateHealthy State = iota
	// StateUnhealthy means the cluster is cut off until the reset
	// timeout elapses.
	StateUnhealthy
	// StateProbation means a limited number of probe calls are allowed
	// to test recovery.
	StateProbation
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	case StateProbation:
		return "probation"
	default:
		return "unknown"
	}
}

// Config holds the breaker thresholds, normally taken from a resolved
// cluster policy.
type Config struct {
	// FailureThreshold is the number of consecutive failures that marks
	// the cluster unhealthy.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive probation successes
	// that restores the cluster to healthy.
	SuccessThreshold int
	// ResetTimeout is how long an unhealthy cluster stays cut off before
	// probation begins.
	ResetTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("FailureThreshold must be positive, got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("SuccessThreshold must be positive, got %d", c.SuccessThreshold)
	}
	if c.ResetTimeout <= 0 {
		return fmt.Errorf("ResetTimeout must be positive, got %v", c.ResetTimeout)
	}
	return nil
}

// Stats reports the observable state of one cluster's breaker.
type Stats struct {
	Cluster   string `json:"cluster"`
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
}
