package circuitbreaker

import (
	"sort"
	"sync"

	"traffic-director/internal/common/logging"
	"traffic-director/internal/routing"
	"traffic-director/internal/rules"
)

// Manager holds one breaker per upstream cluster, created lazily from
// the resolved circuit breaker policy of each decision.
type Manager struct {
	breakers map[string]*ClusterBreaker
	logger   logging.Logger
	mu       sync.RWMutex
}

// NewManager creates an empty manager. A nil logger falls back to the
// global logger.
func NewManager(logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Manager{
		breakers: make(map[string]*ClusterBreaker),
		logger:   logger,
	}
}

// ForDecision returns the breaker guarding the decision's cluster, or
// nil when the resolved policy enables no breaker (including custom
// policies, which this core passes through without enforcing).
func (m *Manager) ForDecision(cluster rules.ClusterIdentifier, policy routing.ResolvedBreaker) *ClusterBreaker {
	if !policy.Enabled {
		return nil
	}
	return m.getOrCreate(cluster.Key(), Config{
		FailureThreshold: policy.FailureThreshold,
		SuccessThreshold: policy.SuccessThreshold,
		ResetTimeout:     policy.ResetTimeout,
	})
}

func (m *Manager) getOrCreate(key string, config Config) *ClusterBreaker {
	m.mu.RLock()
	breaker, exists := m.breakers[key]
	m.mu.RUnlock()
	if exists {
		return breaker
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if breaker, exists = m.breakers[key]; exists {
		return breaker
	}
	breaker = NewClusterBreaker(key, config, m.logger)
	m.breakers[key] = breaker
	return breaker
}

// Get retrieves an existing breaker by cluster key.
func (m *Manager) Get(key string) (*ClusterBreaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	breaker, exists := m.breakers[key]
	return breaker, exists
}

// AllStats returns statistics for every tracked cluster, sorted by
// cluster key for stable output.
func (m *Manager) AllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, breaker := range m.breakers {
		stats = append(stats, breaker.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Cluster < stats[j].Cluster })
	return stats
}
