package routing

import (
	"testing"
	"time"

	"traffic-director/internal/rules"
)

func TestResolveDefaults(t *testing.T) {
	resolver := NewPolicyResolver()
	snap := buildSnapshot(t, nil, nil)

	resolved := resolver.Resolve(rules.ClusterIdentifier{Name: "unconfigured"}, snap)
	if resolved.LoadBalancer.Strategy != rules.LBRoundRobin {
		t.Errorf("lb=%q, want round robin", resolved.LoadBalancer.Strategy)
	}
	if resolved.Timeout.Timeout != 0 {
		t.Errorf("timeout=%v, want zero", resolved.Timeout.Timeout)
	}
	if resolved.Retry.Attempts != 0 {
		t.Errorf("attempts=%d, want zero", resolved.Retry.Attempts)
	}
	if resolved.CircuitBreaker.Enabled {
		t.Error("breaker must be disabled by default")
	}
}

func TestResolveSimplePolicies(t *testing.T) {
	resolver := NewPolicyResolver()
	id := rules.ClusterIdentifier{Name: "ratings", Tags: []string{"v1"}}
	snap := buildSnapshot(t, nil, []*rules.UpstreamCluster{
		{
			ID: id,
			LoadBalancing: &rules.LoadBalancingPolicy{
				Simple: &rules.SimpleLB{Strategy: rules.LBLeastConn},
			},
			Timeout: &rules.TimeoutPolicy{
				Simple: &rules.SimpleTimeout{Seconds: 0.25},
			},
			Retry: &rules.RetryPolicy{
				Simple: &rules.SimpleRetry{Attempts: 2, PerTryTimeoutSeconds: 1, OverrideHeaderName: "x-retries"},
			},
			CircuitBreaker: &rules.CircuitBreakerPolicy{
				Simple: &rules.SimpleCircuitBreaker{FailureThreshold: 3, SuccessThreshold: 2, ResetTimeoutSeconds: 30},
			},
		},
	})

	resolved := resolver.Resolve(id, snap)
	if resolved.LoadBalancer.Strategy != rules.LBLeastConn {
		t.Errorf("lb=%q, want least conn", resolved.LoadBalancer.Strategy)
	}
	if resolved.Timeout.Timeout != 250*time.Millisecond {
		t.Errorf("timeout=%v, want 250ms", resolved.Timeout.Timeout)
	}
	if resolved.Retry.Attempts != 2 || resolved.Retry.PerTryTimeout != time.Second {
		t.Errorf("retry=%+v", resolved.Retry)
	}
	if resolved.Retry.OverrideHeaderName != "x-retries" {
		t.Errorf("retry override header=%q", resolved.Retry.OverrideHeaderName)
	}
	b := resolved.CircuitBreaker
	if !b.Enabled || b.FailureThreshold != 3 || b.SuccessThreshold != 2 || b.ResetTimeout != 30*time.Second {
		t.Errorf("breaker=%+v", b)
	}
}

func TestResolveCustomPassthrough(t *testing.T) {
	resolver := NewPolicyResolver()
	id := rules.ClusterIdentifier{Name: "legacy"}
	payload := map[string]interface{}{"ring_size": 1024, "hash_on": "source_ip"}
	snap := buildSnapshot(t, nil, []*rules.UpstreamCluster{
		{
			ID: id,
			LoadBalancing: &rules.LoadBalancingPolicy{
				Custom: &rules.CustomSpec{Impl: "consistent-hash", Config: payload},
			},
		},
	})

	resolved := resolver.Resolve(id, snap)
	custom := resolved.LoadBalancer.Custom
	if custom == nil {
		t.Fatal("expected custom lb policy")
	}
	if custom.Impl() != "consistent-hash" {
		t.Errorf("impl=%q", custom.Impl())
	}
	// The payload is carried verbatim, never interpreted.
	cfg := custom.Config()
	if cfg["ring_size"] != 1024 || cfg["hash_on"] != "source_ip" {
		t.Errorf("config not passed through: %v", cfg)
	}
	if resolved.LoadBalancer.Strategy != "" {
		t.Errorf("custom variant must not set a simple strategy, got %q", resolved.LoadBalancer.Strategy)
	}
}

func TestHeaderLookup(t *testing.T) {
	attrs := &Attributes{HTTP: &HTTPAttributes{Headers: map[string]string{"X-Request-ID": "abc"}}}

	if v, ok := attrs.Header("x-request-id"); !ok || v != "abc" {
		t.Errorf("case-insensitive lookup failed: %q %v", v, ok)
	}
	if _, ok := attrs.Header("missing"); ok {
		t.Error("absent header reported present")
	}

	l4 := &Attributes{}
	if _, ok := l4.Header("anything"); ok {
		t.Error("L4 attributes must report no headers")
	}
}
