package handlers

import (
	"net/http"
)

// snapshotSummary is the inspection view of the active snapshot. Rules
// are summarized, not dumped; the source file remains the authority.
type snapshotSummary struct {
	Version   string   `json:"version"`
	CreatedAt string   `json:"created_at"`
	RuleCount int      `json:"rule_count"`
	RuleNames []string `json:"rule_names"`
	Clusters  int      `json:"clusters"`
}

// GetSnapshot returns a summary of the active snapshot.
func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	if snap == nil {
		h.writeError(w, http.StatusNotFound, "no configuration snapshot loaded")
		return
	}

	names := make([]string, 0, len(snap.Rules()))
	for _, rule := range snap.Rules() {
		names = append(names, rule.Name)
	}

	h.writeJSON(w, http.StatusOK, snapshotSummary{
		Version:   snap.Version,
		CreatedAt: snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		RuleCount: len(snap.Rules()),
		RuleNames: names,
		Clusters:  snap.ClusterCount(),
	})
}

// ReloadSnapshot re-reads the configured rules file, validates it and
// swaps it in atomically. A rejected snapshot leaves the active one
// untouched and surfaces the configuration error to the caller.
func (h *Handlers) ReloadSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(h.cfg.RulesFile); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"result": "rejected",
			"error":  err.Error(),
		})
		return
	}

	snap := h.store.Current()
	h.writeJSON(w, http.StatusOK, map[string]string{
		"result":  "reloaded",
		"version": snap.Version,
	})
}

// GetStats returns the engine's decision counters.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Metrics())
}

// GetBreakers returns per-cluster circuit breaker state.
func (h *Handlers) GetBreakers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.breakers.AllStats())
}

// GetClusterBreaker returns the breaker state for one cluster key, as
// produced by rules.ClusterIdentifier.Key.
func (h *Handlers) GetClusterBreaker(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("cluster")
	if key == "" {
		h.writeError(w, http.StatusBadRequest, "cluster query parameter is required")
		return
	}

	breaker, ok := h.breakers.Get(key)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no breaker tracked for cluster "+key)
		return
	}
	h.writeJSON(w, http.StatusOK, breaker.Stats())
}
