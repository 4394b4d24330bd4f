// Package routing implements the request-time decision engine of the
// traffic director: given an immutable configuration snapshot and the
// attributes of one inbound request or connection, it deterministically
// selects an upstream cluster, decides whether to inject a fault, and
// resolves the resiliency policy for the outgoing call.
//
// The engine is a strict pipeline of four components:
//
// 1. RuleMatcher: first-match-wins scan of the ordered rule list
// 2. ClusterSelector: weighted random selection among the rule's clusters
// 3. FaultInjector: independent delay/abort (HTTP) or throttle/terminate (L4)
// 4. PolicyResolver: per-cluster timeout/retry/breaker/load-balancer policy
//
// Evaluation is stateless and side-effect free. Every probabilistic
// choice draws from an injectable entropy Source so tests can script
// exact outcomes; production uses a mutex-guarded PRNG per engine.
//
// Example usage:
//
//	engine := routing.NewEngine(routing.NewLockedSource(time.Now().UnixNano()), logger)
//
//	attrs := &routing.Attributes{
//		SourceIP:      net.ParseIP("10.0.0.7"),
//		DestinationIP: net.ParseIP("10.1.0.2"),
//		Protocol:      "tcp",
//		HTTP: &routing.HTTPAttributes{
//			Scheme:    "https",
//			Authority: "reviews.svc",
//			URI:       "/api/v1/reviews",
//			Headers:   map[string]string{"cookie": "user=jason"},
//		},
//	}
//
//	decision, err := engine.Decide(snapshot, attrs)
//	if errors.Is(err, routing.ErrNoRoute) {
//		// reject: no rule matched
//	}
package routing

import (
	"net"
	"time"

	"traffic-director/internal/rules"
)

// HTTPAttributes carries the request-level attributes consumed by HTTP
// rule matching. Header keys are matched case-insensitively.
type HTTPAttributes struct {
	Scheme    string            `json:"scheme,omitempty"`
	Authority string            `json:"authority,omitempty"`
	URI       string            `json:"uri,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// Attributes is the read-only attribute bag for one evaluation unit: a
// connection for L4 rules, a request for HTTP rules. HTTP is nil for
// plain L4 traffic; HTTP rules never match such attributes.
type Attributes struct {
	SourceIP        net.IP          `json:"source_ip,omitempty"`
	SourcePort      int             `json:"source_port,omitempty"`
	DestinationIP   net.IP          `json:"destination_ip,omitempty"`
	DestinationPort int             `json:"destination_port,omitempty"`
	Protocol        string          `json:"protocol,omitempty"`
	HTTP            *HTTPAttributes `json:"http,omitempty"`
}

// Header returns the value of an HTTP header, matching the name
// case-insensitively. Returns "" for L4 attributes or absent headers.
func (a *Attributes) Header(name string) (string, bool) {
	if a.HTTP == nil {
		return "", false
	}
	if v, ok := a.HTTP.Headers[name]; ok {
		return v, true
	}
	lower := lowerASCII(name)
	for k, v := range a.HTTP.Headers {
		if lowerASCII(k) == lower {
			return v, true
		}
	}
	return "", false
}

// ErrorSignal is the abort signal carried verbatim to the forwarder.
// Exactly one field is set, mirroring the abort spec's tagged union.
type ErrorSignal struct {
	GRPCStatus string `json:"grpc_status,omitempty"`
	HTTP2Error string `json:"http2_error,omitempty"`
	HTTPStatus int    `json:"http_status,omitempty"`
}

// ThrottleDecision tells the forwarder to cap the bit rate of a
// connection. Zero Duration means throttle for the connection lifetime.
type ThrottleDecision struct {
	DownstreamLimitBps int64         `json:"downstream_limit_bps"`
	UpstreamLimitBps   int64         `json:"upstream_limit_bps"`
	After              StartTrigger  `json:"after"`
	Duration           time.Duration `json:"duration"`
}

// StartTrigger delays the onset of throttling until the connection has
// aged past Age or transferred Bytes. At most one field is non-zero.
type StartTrigger struct {
	Age   time.Duration `json:"age,omitempty"`
	Bytes int64         `json:"bytes,omitempty"`
}

// TerminateDecision tells the forwarder to force-close the connection
// after the given delay; zero means immediately.
type TerminateDecision struct {
	After time.Duration `json:"after"`
}

// FaultDecision is the outcome of evaluating a rule's fault spec for
// one evaluation unit. All fields are optional; delay and abort are
// statistically independent of each other.
type FaultDecision struct {
	Delay     *time.Duration     `json:"delay,omitempty"`
	Abort     *ErrorSignal       `json:"abort,omitempty"`
	Throttle  *ThrottleDecision  `json:"throttle,omitempty"`
	Terminate *TerminateDecision `json:"terminate,omitempty"`
}

// RoutingDecision combines the four pipeline outputs for the external
// forwarder: where to send the traffic, which faults to apply, and
// which resiliency policy governs the upstream call.
type RoutingDecision struct {
	ID      string                  `json:"id"`
	Rule    string                  `json:"rule"`
	Cluster rules.ClusterIdentifier `json:"cluster"`
	Fault   FaultDecision           `json:"fault"`
	Policy  ResolvedPolicy          `json:"policy"`
}

func lowerASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
