package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-director/internal/circuitbreaker"
	"traffic-director/internal/config"
	"traffic-director/internal/routing"
	"traffic-director/internal/snapshot"
)

const testRules = `
version: test-01
rules:
  - name: api-split
    http:
      match:
        uri:
          prefix: /api
      route:
        - cluster: {name: api, tags: [v2]}
          weight: 100
  - name: default
    http:
      route:
        - cluster: {name: api, tags: [v1]}
          weight: 100
clusters:
  - id: {name: api, tags: [v2]}
    circuit_breaker:
      simple:
        failure_threshold: 3
        success_threshold: 2
        reset_timeout_seconds: 30
`

type fixture struct {
	handlers *Handlers
	store    *snapshot.Store
	path     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o644))

	store := snapshot.NewStore(nil)
	require.NoError(t, store.Reload(path))

	cfg := &config.Config{
		Port:           "8080",
		RulesFile:      path,
		AdminJWTSecret: strings.Repeat("s", 32),
	}
	engine := routing.NewEngine(routing.NewLockedSource(1), nil)
	breakers := circuitbreaker.NewManager(nil)

	return &fixture{
		handlers: New(store, engine, breakers, nil, cfg, nil),
		store:    store,
		path:     path,
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handlers.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["snapshot_loaded"])
	assert.Equal(t, "test-01", body["snapshot_version"])
}

func TestHandleDecide(t *testing.T) {
	f := newFixture(t)

	t.Run("matched request", func(t *testing.T) {
		payload := map[string]interface{}{
			"source_ip": "10.0.0.1",
			"protocol":  "tcp",
			"http":      map[string]interface{}{"uri": "/api/users"},
		}
		body, _ := json.Marshal(payload)
		rec := httptest.NewRecorder()
		f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", bytes.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var decision routing.RoutingDecision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.Equal(t, "api-split", decision.Rule)
		assert.Equal(t, "api", decision.Cluster.Name)
		assert.NotEmpty(t, decision.ID)
	})

	t.Run("no rule matched", func(t *testing.T) {
		body := []byte(`{"protocol": "tcp"}`)
		rec := httptest.NewRecorder()
		f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", bytes.NewReader(body)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"result":"no_route"`)
		assert.Contains(t, rec.Body.String(), `"type":"no_route"`)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid source ip", func(t *testing.T) {
		body := []byte(`{"source_ip": "not-an-ip"}`)
		rec := httptest.NewRecorder()
		f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "validation: invalid source_ip")
	})
}

func TestHandleDecideWithoutSnapshot(t *testing.T) {
	empty := New(snapshot.NewStore(nil), routing.NewEngine(routing.NewLockedSource(1), nil), circuitbreaker.NewManager(nil), nil, &config.Config{}, nil)

	rec := httptest.NewRecorder()
	empty.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", strings.NewReader("{}")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetSnapshot(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handlers.GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "test-01", summary["version"])
	assert.EqualValues(t, 2, summary["rule_count"])
}

func TestReloadSnapshot(t *testing.T) {
	f := newFixture(t)

	t.Run("accepted", func(t *testing.T) {
		updated := strings.Replace(testRules, "test-01", "test-02", 1)
		require.NoError(t, os.WriteFile(f.path, []byte(updated), 0o644))

		rec := httptest.NewRecorder()
		f.handlers.ReloadSnapshot(rec, httptest.NewRequest(http.MethodPost, "/api/snapshot/reload", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "test-02")
		assert.Equal(t, "test-02", f.store.Current().Version)
	})

	t.Run("rejected keeps active snapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.path, []byte("rules: []"), 0o644))

		rec := httptest.NewRecorder()
		f.handlers.ReloadSnapshot(rec, httptest.NewRequest(http.MethodPost, "/api/snapshot/reload", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "rejected")
		assert.Equal(t, "test-02", f.store.Current().Version)
	})
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"http": {"uri": "/api/users"}}`)
	rec := httptest.NewRecorder()
	f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handlers.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var metrics routing.EngineMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.EqualValues(t, 1, metrics.TotalEvaluations)
	assert.EqualValues(t, 1, metrics.RuleHits["api-split"])
}

func TestGetBreakers(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handlers.GetBreakers(rec, httptest.NewRequest(http.MethodGet, "/api/breakers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "no breakers tracked yet")

	rec = httptest.NewRecorder()
	f.handlers.GetClusterBreaker(rec, httptest.NewRequest(http.MethodGet, "/api/breakers/cluster", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	f.handlers.GetClusterBreaker(rec, httptest.NewRequest(http.MethodGet, "/api/breakers/cluster?cluster=api%7Cv1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// A decision for a cluster with a configured circuit breaker must
// register that breaker, so the observation API surfaces it.
func TestDecidePopulatesBreakers(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"http": {"uri": "/api/users"}}`)
	rec := httptest.NewRecorder()
	f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handlers.GetBreakers(rec, httptest.NewRequest(http.MethodGet, "/api/breakers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats []circuitbreaker.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "api|v2", stats[0].Cluster)
	assert.Equal(t, "healthy", stats[0].State)

	rec = httptest.NewRecorder()
	f.handlers.GetClusterBreaker(rec, httptest.NewRequest(http.MethodGet, "/api/breakers/cluster?cluster=api%7Cv2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// A decision for the unconfigured v1 cluster must not register one.
	rec = httptest.NewRecorder()
	f.handlers.HandleDecide(rec, httptest.NewRequest(http.MethodPost, "/api/decide", bytes.NewReader([]byte(`{"http": {"uri": "/other"}}`))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handlers.GetBreakers(rec, httptest.NewRequest(http.MethodGet, "/api/breakers", nil))
	var after []circuitbreaker.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Len(t, after, 1)
}
