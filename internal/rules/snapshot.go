package rules

import (
	"fmt"
	"time"
)

// Snapshot is an immutable view of the full routing configuration: the
// ordered rule list plus the per-cluster policy set. A snapshot never
// mutates after NewSnapshot returns; configuration reload builds a new
// snapshot off to the side and swaps it in atomically.
type Snapshot struct {
	Version   string
	CreatedAt time.Time

	rules    []*RouteRule
	clusters map[string]*UpstreamCluster
}

// NewSnapshot validates and compiles the given rules and cluster
// policies into an immutable snapshot. Both slices are copied; the
// caller may not rely on mutating its inputs afterwards. Any
// validation failure rejects the whole snapshot so a previously active
// one stays in effect.
func NewSnapshot(version string, ruleList []*RouteRule, clusters []*UpstreamCluster) (*Snapshot, error) {
	snap := &Snapshot{
		Version:   version,
		CreatedAt: time.Now(),
		rules:     make([]*RouteRule, 0, len(ruleList)),
		clusters:  make(map[string]*UpstreamCluster, len(clusters)),
	}

	for i, rule := range ruleList {
		if rule == nil {
			return nil, fmt.Errorf("rule %d: nil rule", i)
		}
		if err := validateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Name, err)
		}
		snap.rules = append(snap.rules, rule)
	}

	for i, cluster := range clusters {
		if cluster == nil {
			return nil, fmt.Errorf("cluster %d: nil cluster", i)
		}
		if err := cluster.validate(); err != nil {
			return nil, fmt.Errorf("cluster %s: %w", cluster.ID, err)
		}
		key := cluster.ID.Key()
		if _, dup := snap.clusters[key]; dup {
			return nil, fmt.Errorf("cluster %s: duplicate identifier", cluster.ID)
		}
		snap.clusters[key] = cluster
	}

	return snap, nil
}

// Rules returns the ordered rule list. The returned slice must not be
// modified.
func (s *Snapshot) Rules() []*RouteRule {
	return s.rules
}

// Cluster looks up the policy bundle for a cluster identifier.
func (s *Snapshot) Cluster(id ClusterIdentifier) (*UpstreamCluster, bool) {
	c, ok := s.clusters[id.Key()]
	return c, ok
}

// ClusterCount returns the number of configured cluster policy bundles.
func (s *Snapshot) ClusterCount() int {
	return len(s.clusters)
}

func validateRule(rule *RouteRule) error {
	if (rule.L4 != nil) == (rule.HTTP != nil) {
		return fmt.Errorf("rule must set exactly one of l4/http")
	}

	switch {
	case rule.L4 != nil:
		if rule.L4.Match != nil {
			if err := rule.L4.Match.Compile(); err != nil {
				return fmt.Errorf("match: %w", err)
			}
		}
		if err := validateRoute(rule.L4.Route); err != nil {
			return err
		}
		if f := rule.L4.Fault; f != nil {
			if f.Throttle != nil {
				if err := f.Throttle.validate(); err != nil {
					return err
				}
			}
			if f.Terminate != nil {
				if err := f.Terminate.validate(); err != nil {
					return err
				}
			}
		}
	case rule.HTTP != nil:
		if rule.HTTP.Match != nil {
			if err := rule.HTTP.Match.Compile(); err != nil {
				return fmt.Errorf("match: %w", err)
			}
		}
		if err := validateRoute(rule.HTTP.Route); err != nil {
			return err
		}
		if f := rule.HTTP.Fault; f != nil {
			if f.Delay != nil {
				if err := f.Delay.validate(); err != nil {
					return err
				}
			}
			if f.Abort != nil {
				if err := f.Abort.validate(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateRoute(route []WeightedCluster) error {
	if len(route) == 0 {
		return fmt.Errorf("route must list at least one weighted cluster")
	}
	sum := 0
	for _, wc := range route {
		if wc.Cluster.Name == "" {
			return fmt.Errorf("weighted cluster must name a cluster")
		}
		if wc.Weight < 0 || wc.Weight > 100 {
			return fmt.Errorf("weight must be within [0,100], got %d", wc.Weight)
		}
		sum += wc.Weight
	}
	if sum != 100 {
		return fmt.Errorf("route weights must sum to 100, got %d", sum)
	}
	return nil
}
