package routing

import (
	"traffic-director/internal/rules"
)

// ClusterSelector picks one cluster from a rule's weighted list: draw a
// uniform integer in [0,100), walk the list accumulating weights, and
// return the first cluster whose cumulative upper bound exceeds the
// draw. Deterministic given the draw, stateless otherwise.
type ClusterSelector struct{}

// NewClusterSelector creates a selector.
func NewClusterSelector() *ClusterSelector {
	return &ClusterSelector{}
}

// Select returns the cluster chosen for this evaluation. Weights are
// validated at snapshot build time to sum to 100; if a list violating
// that reaches the selector it fails fast with ErrWeightSum instead of
// silently renormalizing.
func (s *ClusterSelector) Select(route []rules.WeightedCluster, src Source) (rules.ClusterIdentifier, error) {
	if len(route) == 0 {
		return rules.ClusterIdentifier{}, ErrEmptyRoute
	}

	sum := 0
	for _, wc := range route {
		sum += wc.Weight
	}
	if sum != 100 {
		return rules.ClusterIdentifier{}, ErrWeightSum
	}

	draw := src.IntN(100)
	cumulative := 0
	for _, wc := range route {
		cumulative += wc.Weight
		if draw < cumulative {
			return wc.Cluster, nil
		}
	}

	// Unreachable when weights sum to 100, since draw < 100.
	return route[len(route)-1].Cluster, nil
}
