package routing

import (
	"sync"

	"github.com/google/uuid"

	"traffic-director/internal/common/logging"
	"traffic-director/internal/rules"
)

// EngineMetrics tracks decision outcomes across the lifetime of an
// engine: total evaluations, no-route rejections, recovered override
// parse failures and per-rule hit counts.
type EngineMetrics struct {
	TotalEvaluations      int64            `json:"total_evaluations"`
	NoRouteCount          int64            `json:"no_route_count"`
	OverrideParseWarnings int64            `json:"override_parse_warnings"`
	RuleHits              map[string]int64 `json:"rule_hits"`
}

// Engine runs the full decision pipeline: match the rule, select the
// cluster, evaluate faults, resolve the cluster's resiliency policy.
// Evaluation is synchronous and side-effect free apart from metrics;
// any number of evaluations may run concurrently against the same
// snapshot reference.
type Engine struct {
	matcher  *RuleMatcher
	selector *ClusterSelector
	injector *FaultInjector
	resolver *PolicyResolver
	entropy  Source
	logger   logging.Logger

	mu      sync.Mutex
	metrics EngineMetrics
}

// NewEngine creates an engine drawing randomness from entropy. A nil
// logger falls back to the global logger.
func NewEngine(entropy Source, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Engine{
		matcher:  NewRuleMatcher(),
		selector: NewClusterSelector(),
		injector: NewFaultInjector(),
		resolver: NewPolicyResolver(),
		entropy:  entropy,
		logger:   logger,
		metrics:  EngineMetrics{RuleHits: make(map[string]int64)},
	}
}

// Decide evaluates attrs against snap and returns the routing decision
// for the external forwarder. The snapshot reference is captured by the
// caller at entry; a concurrent reload never affects an in-flight
// evaluation.
//
// ErrNoRoute is the expected outcome when no rule matches; every other
// error indicates unvalidated configuration reached the engine.
func (e *Engine) Decide(snap *rules.Snapshot, attrs *Attributes) (*RoutingDecision, error) {
	return e.decide(snap, attrs, e.entropy)
}

// DecideWith is Decide with an explicit entropy source, letting callers
// (and tests) script every probabilistic branch of one evaluation.
func (e *Engine) DecideWith(snap *rules.Snapshot, attrs *Attributes, src Source) (*RoutingDecision, error) {
	return e.decide(snap, attrs, src)
}

func (e *Engine) decide(snap *rules.Snapshot, attrs *Attributes, src Source) (*RoutingDecision, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	if attrs == nil {
		return nil, ErrNilAttributes
	}

	e.mu.Lock()
	e.metrics.TotalEvaluations++
	e.mu.Unlock()

	rule, err := e.matcher.Match(snap.Rules(), attrs)
	if err != nil {
		e.mu.Lock()
		e.metrics.NoRouteCount++
		e.mu.Unlock()
		return nil, err
	}

	cluster, err := e.selector.Select(rule.Route(), src)
	if err != nil {
		return nil, err
	}

	var fault FaultDecision
	var warnings []OverrideWarning
	if rule.IsHTTP() {
		fault, warnings = e.injector.InjectHTTP(rule.HTTP.Fault, attrs, src)
	} else {
		fault = e.injector.InjectL4(rule.L4.Fault, src)
	}

	for _, warn := range warnings {
		e.logger.Warn("fault override header ignored",
			logging.Field{Key: "rule", Value: rule.Name},
			logging.Field{Key: "header", Value: warn.Header},
			logging.Field{Key: "value", Value: warn.Value},
			logging.Field{Key: "error", Value: warn.Err.Error()},
		)
	}

	e.mu.Lock()
	e.metrics.RuleHits[rule.Name]++
	e.metrics.OverrideParseWarnings += int64(len(warnings))
	e.mu.Unlock()

	return &RoutingDecision{
		ID:      uuid.NewString(),
		Rule:    rule.Name,
		Cluster: cluster,
		Fault:   fault,
		Policy:  e.resolver.Resolve(cluster, snap),
	}, nil
}

// Metrics returns a copy of the engine's counters.
func (e *Engine) Metrics() EngineMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.metrics
	out.RuleHits = make(map[string]int64, len(e.metrics.RuleHits))
	for k, v := range e.metrics.RuleHits {
		out.RuleHits[k] = v
	}
	return out
}
