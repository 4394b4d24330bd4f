package rules

import "fmt"

// Load balancing strategies for the simple policy variant.
const (
	LBRoundRobin = "round_robin"
	LBLeastConn  = "least_conn"
	LBIPHash     = "ip_hash"
	LBRandom     = "random"
)

// CustomSpec is the opaque escape hatch carried by every policy axis.
// The decision core does not interpret it; it is handed through to the
// forwarder, which resolves Impl against its registered implementations.
type CustomSpec struct {
	Impl   string                 `yaml:"impl" json:"impl"`
	Config map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
}

// SimpleLB selects one of the built-in load balancing strategies.
type SimpleLB struct {
	Strategy string `yaml:"strategy" json:"strategy"`
}

// LoadBalancingPolicy is a tagged union over a simple strategy or an
// opaque custom implementation.
type LoadBalancingPolicy struct {
	Simple *SimpleLB   `yaml:"simple,omitempty" json:"simple,omitempty"`
	Custom *CustomSpec `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// SimpleTimeout bounds the upstream call, with an optional per-request
// header override consumed by the forwarder.
type SimpleTimeout struct {
	Seconds            float64 `yaml:"seconds" json:"seconds"`
	OverrideHeaderName string  `yaml:"override_header_name,omitempty" json:"override_header_name,omitempty"`
}

// TimeoutPolicy is a tagged union over a simple timeout or an opaque
// custom implementation.
type TimeoutPolicy struct {
	Simple *SimpleTimeout `yaml:"simple,omitempty" json:"simple,omitempty"`
	Custom *CustomSpec    `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// SimpleRetry retries failed upstream calls up to Attempts times, each
// attempt bounded by PerTryTimeoutSeconds.
type SimpleRetry struct {
	Attempts             int     `yaml:"attempts" json:"attempts"`
	PerTryTimeoutSeconds float64 `yaml:"per_try_timeout_seconds,omitempty" json:"per_try_timeout_seconds,omitempty"`
	OverrideHeaderName   string  `yaml:"override_header_name,omitempty" json:"override_header_name,omitempty"`
}

// RetryPolicy is a tagged union over a simple retry or an opaque custom
// implementation.
type RetryPolicy struct {
	Simple *SimpleRetry `yaml:"simple,omitempty" json:"simple,omitempty"`
	Custom *CustomSpec  `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// SimpleCircuitBreaker carries the breaker thresholds. The data plane
// enforces the state machine; the decision core only resolves and hands
// over these parameters.
type SimpleCircuitBreaker struct {
	FailureThreshold    int     `yaml:"failure_threshold" json:"failure_threshold"`
	SuccessThreshold    int     `yaml:"success_threshold" json:"success_threshold"`
	ResetTimeoutSeconds float64 `yaml:"reset_timeout_seconds" json:"reset_timeout_seconds"`
}

// CircuitBreakerPolicy is a tagged union over simple thresholds or an
// opaque custom implementation.
type CircuitBreakerPolicy struct {
	Simple *SimpleCircuitBreaker `yaml:"simple,omitempty" json:"simple,omitempty"`
	Custom *CustomSpec           `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// UpstreamCluster bundles the resiliency policies of one cluster. Any
// axis may be nil, in which case the resolver applies documented
// defaults (round-robin, no timeout, no retry, no breaker).
type UpstreamCluster struct {
	ID             ClusterIdentifier     `yaml:"id" json:"id"`
	LoadBalancing  *LoadBalancingPolicy  `yaml:"load_balancing,omitempty" json:"load_balancing,omitempty"`
	Timeout        *TimeoutPolicy        `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retry          *RetryPolicy          `yaml:"retry,omitempty" json:"retry,omitempty"`
	CircuitBreaker *CircuitBreakerPolicy `yaml:"circuit_breaker,omitempty" json:"circuit_breaker,omitempty"`
}

func (u *UpstreamCluster) validate() error {
	if u.ID.Name == "" {
		return fmt.Errorf("cluster id must have a name")
	}
	if u.LoadBalancing != nil {
		if err := validateUnion("load_balancing", u.LoadBalancing.Simple != nil, u.LoadBalancing.Custom != nil); err != nil {
			return err
		}
		if u.LoadBalancing.Simple != nil {
			switch u.LoadBalancing.Simple.Strategy {
			case LBRoundRobin, LBLeastConn, LBIPHash, LBRandom:
			default:
				return fmt.Errorf("unknown load balancing strategy %q", u.LoadBalancing.Simple.Strategy)
			}
		}
	}
	if u.Timeout != nil {
		if err := validateUnion("timeout", u.Timeout.Simple != nil, u.Timeout.Custom != nil); err != nil {
			return err
		}
		if u.Timeout.Simple != nil && u.Timeout.Simple.Seconds < 0 {
			return fmt.Errorf("timeout seconds must be non-negative")
		}
	}
	if u.Retry != nil {
		if err := validateUnion("retry", u.Retry.Simple != nil, u.Retry.Custom != nil); err != nil {
			return err
		}
		if u.Retry.Simple != nil && u.Retry.Simple.Attempts < 0 {
			return fmt.Errorf("retry attempts must be non-negative")
		}
	}
	if u.CircuitBreaker != nil {
		if err := validateUnion("circuit_breaker", u.CircuitBreaker.Simple != nil, u.CircuitBreaker.Custom != nil); err != nil {
			return err
		}
		if s := u.CircuitBreaker.Simple; s != nil {
			if s.FailureThreshold <= 0 || s.SuccessThreshold <= 0 {
				return fmt.Errorf("circuit breaker thresholds must be positive")
			}
			if s.ResetTimeoutSeconds <= 0 {
				return fmt.Errorf("circuit breaker reset timeout must be positive")
			}
		}
	}
	return nil
}

func validateUnion(axis string, simple, custom bool) error {
	if simple == custom {
		return fmt.Errorf("%s policy must set exactly one of simple/custom", axis)
	}
	return nil
}
