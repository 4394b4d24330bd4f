// Package telemetry is the proxy-side client for the sibling policy
// and telemetry backend: three duplex-streaming operations, Check
// (precondition evaluation), Report (telemetry emission) and Quota
// (allocate/release). The decision core treats the contract as opaque:
// it sends attribute-bearing messages and forwards whatever comes back
// without interpreting the backend's semantics.
package telemetry

import "time"

// CheckRequest asks the backend to evaluate preconditions for one
// decision. Attributes are an opaque string bag; the backend owns their
// meaning.
type CheckRequest struct {
	DecisionID string            `json:"decision_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// CheckResponse is the backend's verdict, forwarded verbatim.
type CheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ReportRequest emits telemetry for one completed decision.
type ReportRequest struct {
	DecisionID string            `json:"decision_id"`
	Rule       string            `json:"rule,omitempty"`
	Cluster    string            `json:"cluster,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// QuotaRequest allocates or releases quota against a named bucket.
// Exactly one of Allocate/Release is positive.
type QuotaRequest struct {
	DecisionID string `json:"decision_id"`
	Quota      string `json:"quota"`
	Allocate   int64  `json:"allocate,omitempty"`
	Release    int64  `json:"release,omitempty"`
}

// QuotaResponse reports how much quota was granted and for how long.
type QuotaResponse struct {
	Granted  int64         `json:"granted"`
	ValidFor time.Duration `json:"valid_for,omitempty"`
}
