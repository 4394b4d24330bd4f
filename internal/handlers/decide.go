package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	apperrors "traffic-director/internal/common/errors"
	"traffic-director/internal/common/logging"
	"traffic-director/internal/routing"
	"traffic-director/internal/telemetry"
)

// decideRequest is the wire shape of a dry-run decision request. IPs
// arrive as strings and are parsed here so malformed input is a 400,
// never an engine error.
type decideRequest struct {
	SourceIP        string                  `json:"source_ip,omitempty"`
	SourcePort      int                     `json:"source_port,omitempty"`
	DestinationIP   string                  `json:"destination_ip,omitempty"`
	DestinationPort int                     `json:"destination_port,omitempty"`
	Protocol        string                  `json:"protocol,omitempty"`
	HTTP            *routing.HTTPAttributes `json:"http,omitempty"`
}

func (r *decideRequest) attributes() (*routing.Attributes, error) {
	attrs := &routing.Attributes{
		SourcePort:      r.SourcePort,
		DestinationPort: r.DestinationPort,
		Protocol:        r.Protocol,
		HTTP:            r.HTTP,
	}
	if r.SourceIP != "" {
		attrs.SourceIP = net.ParseIP(r.SourceIP)
		if attrs.SourceIP == nil {
			return nil, apperrors.ValidationError("invalid source_ip").WithContext("value", r.SourceIP)
		}
	}
	if r.DestinationIP != "" {
		attrs.DestinationIP = net.ParseIP(r.DestinationIP)
		if attrs.DestinationIP == nil {
			return nil, apperrors.ValidationError("invalid destination_ip").WithContext("value", r.DestinationIP)
		}
	}
	return attrs, nil
}

// HandleDecide runs one evaluation against the current snapshot and
// returns the full routing decision. No traffic is forwarded; this is
// the debugging surface for rule authors.
func (h *Handlers) HandleDecide(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no configuration snapshot loaded")
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	attrs, err := req.attributes()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.engine.Decide(snap, attrs)
	if errors.Is(err, routing.ErrNoRoute) {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"result": "no_route",
			"error":  apperrors.NoRouteError("no rule matches the given attributes"),
		})
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Register the cluster's breaker so configured clusters show up in
	// the observation API as soon as they receive traffic.
	h.breakers.ForDecision(decision.Cluster, decision.Policy.CircuitBreaker)

	h.report(decision, &req)

	h.writeJSON(w, http.StatusOK, decision)
}

// report forwards the decision to the policy backend. The backend is
// opaque; failures are logged and never affect the caller.
func (h *Handlers) report(decision *routing.RoutingDecision, req *decideRequest) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := h.policy.Report(ctx, &telemetry.ReportRequest{
			DecisionID: decision.ID,
			Rule:       decision.Rule,
			Cluster:    decision.Cluster.Key(),
			Attributes: map[string]string{
				"source_ip":      req.SourceIP,
				"destination_ip": req.DestinationIP,
				"protocol":       req.Protocol,
			},
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			h.logger.Debug("policy report failed",
				logging.Field{Key: "decision_id", Value: decision.ID},
				logging.Field{Key: "error", Value: err.Error()},
			)
		}
	}()
}
