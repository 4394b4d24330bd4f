// Package handlers implements the admin/debug HTTP API of the traffic
// director: a dry-run decision endpoint, snapshot inspection and
// reload, engine statistics and per-cluster breaker state. The data
// plane does not go through this API; it calls the engine directly.
package handlers

import (
	"encoding/json"
	"net/http"

	"traffic-director/internal/circuitbreaker"
	"traffic-director/internal/common/logging"
	"traffic-director/internal/config"
	"traffic-director/internal/routing"
	"traffic-director/internal/snapshot"
	"traffic-director/internal/telemetry"
)

// Handlers holds the dependencies of the admin API.
type Handlers struct {
	store    *snapshot.Store
	engine   *routing.Engine
	breakers *circuitbreaker.Manager
	policy   telemetry.Client
	cfg      *config.Config
	logger   logging.Logger
}

// New creates the admin API handlers.
func New(store *snapshot.Store, engine *routing.Engine, breakers *circuitbreaker.Manager, policy telemetry.Client, cfg *config.Config, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if policy == nil {
		policy = telemetry.NopClient{}
	}
	return &Handlers{
		store:    store,
		engine:   engine,
		breakers: breakers,
		policy:   policy,
		cfg:      cfg,
		logger:   logger,
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response failed", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// HealthCheck reports liveness and whether a snapshot is loaded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	status := map[string]interface{}{
		"status":          "ok",
		"snapshot_loaded": snap != nil,
	}
	if snap != nil {
		status["snapshot_version"] = snap.Version
	}
	h.writeJSON(w, http.StatusOK, status)
}
