package routing

import (
	"errors"
	"testing"

	"traffic-director/internal/rules"
)

func TestSelectSingleCluster(t *testing.T) {
	selector := NewClusterSelector()
	route := []rules.WeightedCluster{
		{Cluster: rules.ClusterIdentifier{Name: "only"}, Weight: 100},
	}

	for draw := 0; draw < 100; draw += 33 {
		cluster, err := selector.Select(route, &ScriptedSource{Ints: []int{draw}})
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if cluster.Name != "only" {
			t.Errorf("draw %d: expected 'only', got %q", draw, cluster.Name)
		}
	}
}

func TestSelectBoundaries(t *testing.T) {
	selector := NewClusterSelector()
	route := []rules.WeightedCluster{
		{Cluster: rules.ClusterIdentifier{Name: "a"}, Weight: 50},
		{Cluster: rules.ClusterIdentifier{Name: "b"}, Weight: 30},
		{Cluster: rules.ClusterIdentifier{Name: "c"}, Weight: 20},
	}

	tests := []struct {
		draw int
		want string
	}{
		{0, "a"},
		{49, "a"},
		{50, "b"},
		{79, "b"},
		{80, "c"},
		{99, "c"},
	}

	for _, tt := range tests {
		cluster, err := selector.Select(route, &ScriptedSource{Ints: []int{tt.draw}})
		if err != nil {
			t.Fatalf("draw %d: Select failed: %v", tt.draw, err)
		}
		if cluster.Name != tt.want {
			t.Errorf("draw %d: expected %q, got %q", tt.draw, tt.want, cluster.Name)
		}
	}
}

func TestSelectEmptyRoute(t *testing.T) {
	selector := NewClusterSelector()
	_, err := selector.Select(nil, &ScriptedSource{})
	if !errors.Is(err, ErrEmptyRoute) {
		t.Errorf("expected ErrEmptyRoute, got %v", err)
	}
}

func TestSelectWeightSum(t *testing.T) {
	selector := NewClusterSelector()

	tests := []struct {
		name  string
		route []rules.WeightedCluster
	}{
		{
			name: "under 100",
			route: []rules.WeightedCluster{
				{Cluster: rules.ClusterIdentifier{Name: "a"}, Weight: 60},
				{Cluster: rules.ClusterIdentifier{Name: "b"}, Weight: 30},
			},
		},
		{
			name: "over 100",
			route: []rules.WeightedCluster{
				{Cluster: rules.ClusterIdentifier{Name: "a"}, Weight: 70},
				{Cluster: rules.ClusterIdentifier{Name: "b"}, Weight: 40},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := selector.Select(tt.route, &ScriptedSource{})
			if !errors.Is(err, ErrWeightSum) {
				t.Errorf("expected ErrWeightSum, got %v", err)
			}
		})
	}
}

// TestSelectDistribution draws a large sample with a seeded PRNG and
// checks that the observed shares track the configured weights.
func TestSelectDistribution(t *testing.T) {
	selector := NewClusterSelector()
	route := []rules.WeightedCluster{
		{Cluster: rules.ClusterIdentifier{Name: "v1"}, Weight: 75},
		{Cluster: rules.ClusterIdentifier{Name: "v2"}, Weight: 25},
	}

	src := NewLockedSource(42)
	const draws = 100000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		cluster, err := selector.Select(route, src)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		counts[cluster.Name]++
	}

	if counts["v1"]+counts["v2"] != draws {
		t.Fatalf("draws unaccounted for: %v", counts)
	}
	share := float64(counts["v1"]) / draws * 100
	if share < 73 || share > 77 {
		t.Errorf("v1 share %.2f%% outside [73,77] for weight 75", share)
	}
}
