package routing

import (
	"time"

	"traffic-director/internal/rules"
)

// CustomPolicy is the capability interface behind every custom_impl
// policy variant. The decision core never interprets the payload; it
// wraps it and passes it through. The forwarder (or whoever consumes
// the decision) resolves Impl against its own registry.
type CustomPolicy interface {
	// Impl names the proxy-specific implementation to apply.
	Impl() string
	// Config returns the opaque configuration payload verbatim.
	Config() map[string]interface{}
}

// passthroughPolicy is the core's only CustomPolicy implementation: a
// verbatim carrier for the configured spec.
type passthroughPolicy struct {
	spec *rules.CustomSpec
}

func (p passthroughPolicy) Impl() string                   { return p.spec.Impl }
func (p passthroughPolicy) Config() map[string]interface{} { return p.spec.Config }

// ResolvedLB is the resolved load balancing policy. Strategy holds one
// of the built-in strategies unless Custom is non-nil.
type ResolvedLB struct {
	Strategy string       `json:"strategy,omitempty"`
	Custom   CustomPolicy `json:"custom,omitempty"`
}

// ResolvedTimeout is the resolved upstream call timeout. A zero Timeout
// with nil Custom means no timeout override is applied.
type ResolvedTimeout struct {
	Timeout            time.Duration `json:"timeout,omitempty"`
	OverrideHeaderName string        `json:"override_header_name,omitempty"`
	Custom             CustomPolicy  `json:"custom,omitempty"`
}

// ResolvedRetry is the resolved retry policy. Zero Attempts with nil
// Custom means no retries.
type ResolvedRetry struct {
	Attempts           int           `json:"attempts,omitempty"`
	PerTryTimeout      time.Duration `json:"per_try_timeout,omitempty"`
	OverrideHeaderName string        `json:"override_header_name,omitempty"`
	Custom             CustomPolicy  `json:"custom,omitempty"`
}

// ResolvedBreaker is the resolved circuit breaker policy. Enabled is
// false when the cluster configures no breaker.
type ResolvedBreaker struct {
	Enabled          bool          `json:"enabled"`
	FailureThreshold int           `json:"failure_threshold,omitempty"`
	SuccessThreshold int           `json:"success_threshold,omitempty"`
	ResetTimeout     time.Duration `json:"reset_timeout,omitempty"`
	Custom           CustomPolicy  `json:"custom,omitempty"`
}

// ResolvedPolicy bundles the four policy axes for the selected cluster.
type ResolvedPolicy struct {
	LoadBalancer   ResolvedLB      `json:"load_balancer"`
	Timeout        ResolvedTimeout `json:"timeout"`
	Retry          ResolvedRetry   `json:"retry"`
	CircuitBreaker ResolvedBreaker `json:"circuit_breaker"`
}

// PolicyResolver maps a selected cluster to its resolved resiliency
// policy, unpacking simple variants into typed parameters and wrapping
// custom_impl variants for passthrough.
type PolicyResolver struct{}

// NewPolicyResolver creates a resolver.
func NewPolicyResolver() *PolicyResolver {
	return &PolicyResolver{}
}

// Resolve returns the policy for cluster. A cluster with no configured
// policy bundle resolves to the documented defaults: round-robin load
// balancing, no timeout, no retry, no circuit breaker. Requests are
// never failed for a missing policy.
func (r *PolicyResolver) Resolve(cluster rules.ClusterIdentifier, snap *rules.Snapshot) ResolvedPolicy {
	resolved := ResolvedPolicy{
		LoadBalancer: ResolvedLB{Strategy: rules.LBRoundRobin},
	}

	upstream, ok := snap.Cluster(cluster)
	if !ok {
		return resolved
	}

	if p := upstream.LoadBalancing; p != nil {
		if p.Simple != nil {
			resolved.LoadBalancer.Strategy = p.Simple.Strategy
		} else if p.Custom != nil {
			resolved.LoadBalancer = ResolvedLB{Custom: passthroughPolicy{spec: p.Custom}}
		}
	}

	if p := upstream.Timeout; p != nil {
		if p.Simple != nil {
			resolved.Timeout = ResolvedTimeout{
				Timeout:            secondsToDuration(p.Simple.Seconds),
				OverrideHeaderName: p.Simple.OverrideHeaderName,
			}
		} else if p.Custom != nil {
			resolved.Timeout = ResolvedTimeout{Custom: passthroughPolicy{spec: p.Custom}}
		}
	}

	if p := upstream.Retry; p != nil {
		if p.Simple != nil {
			resolved.Retry = ResolvedRetry{
				Attempts:           p.Simple.Attempts,
				PerTryTimeout:      secondsToDuration(p.Simple.PerTryTimeoutSeconds),
				OverrideHeaderName: p.Simple.OverrideHeaderName,
			}
		} else if p.Custom != nil {
			resolved.Retry = ResolvedRetry{Custom: passthroughPolicy{spec: p.Custom}}
		}
	}

	if p := upstream.CircuitBreaker; p != nil {
		if p.Simple != nil {
			resolved.CircuitBreaker = ResolvedBreaker{
				Enabled:          true,
				FailureThreshold: p.Simple.FailureThreshold,
				SuccessThreshold: p.Simple.SuccessThreshold,
				ResetTimeout:     secondsToDuration(p.Simple.ResetTimeoutSeconds),
			}
		} else if p.Custom != nil {
			resolved.CircuitBreaker = ResolvedBreaker{Custom: passthroughPolicy{spec: p.Custom}}
		}
	}

	return resolved
}
