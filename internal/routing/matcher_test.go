package routing

import (
	"errors"
	"net"
	"testing"

	"traffic-director/internal/rules"
)

func exact(s string) *rules.StringMatch  { return &rules.StringMatch{Exact: s} }
func prefix(s string) *rules.StringMatch { return &rules.StringMatch{Prefix: s} }
func regex(s string) *rules.StringMatch  { return &rules.StringMatch{Regex: s} }

// buildSnapshot compiles rules through the same validation path
// production uses, so tests exercise compiled match conditions.
func buildSnapshot(t *testing.T, ruleList []*rules.RouteRule, clusters []*rules.UpstreamCluster) *rules.Snapshot {
	t.Helper()
	snap, err := rules.NewSnapshot("test", ruleList, clusters)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	return snap
}

func httpRule(name string, match *rules.HTTPMatchCondition, cluster string) *rules.RouteRule {
	return &rules.RouteRule{
		Name: name,
		HTTP: &rules.HTTPRule{
			Match: match,
			Route: []rules.WeightedCluster{
				{Cluster: rules.ClusterIdentifier{Name: cluster}, Weight: 100},
			},
		},
	}
}

func l4Rule(name string, match *rules.L4MatchCondition, cluster string) *rules.RouteRule {
	return &rules.RouteRule{
		Name: name,
		L4: &rules.L4Rule{
			Match: match,
			Route: []rules.WeightedCluster{
				{Cluster: rules.ClusterIdentifier{Name: cluster}, Weight: 100},
			},
		},
	}
}

func TestMatchFirstWins(t *testing.T) {
	snap := buildSnapshot(t, []*rules.RouteRule{
		httpRule("specific", &rules.HTTPMatchCondition{URI: prefix("/api")}, "api-v2"),
		httpRule("catch-all", nil, "api-v1"),
	}, nil)

	matcher := NewRuleMatcher()

	attrs := &Attributes{HTTP: &HTTPAttributes{URI: "/api/users"}}
	rule, err := matcher.Match(snap.Rules(), attrs)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if rule.Name != "specific" {
		t.Errorf("expected first matching rule 'specific', got %q", rule.Name)
	}

	// Reversing the declaration order must flip the winner even though
	// both rules still match.
	reversed := buildSnapshot(t, []*rules.RouteRule{
		httpRule("catch-all", nil, "api-v1"),
		httpRule("specific", &rules.HTTPMatchCondition{URI: prefix("/api")}, "api-v2"),
	}, nil)
	rule, err = matcher.Match(reversed.Rules(), attrs)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if rule.Name != "catch-all" {
		t.Errorf("expected 'catch-all' to win after reordering, got %q", rule.Name)
	}
}

func TestMatchNoRoute(t *testing.T) {
	snap := buildSnapshot(t, []*rules.RouteRule{
		httpRule("only", &rules.HTTPMatchCondition{URI: exact("/exists")}, "svc"),
	}, nil)

	matcher := NewRuleMatcher()
	_, err := matcher.Match(snap.Rules(), &Attributes{HTTP: &HTTPAttributes{URI: "/missing"}})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}

func TestMatchNilAttributes(t *testing.T) {
	matcher := NewRuleMatcher()
	_, err := matcher.Match(nil, nil)
	if !errors.Is(err, ErrNilAttributes) {
		t.Errorf("expected ErrNilAttributes, got %v", err)
	}
}

func TestHTTPRuleSkipsL4Traffic(t *testing.T) {
	snap := buildSnapshot(t, []*rules.RouteRule{
		httpRule("http-any", nil, "web"),
		l4Rule("tcp-any", nil, "raw"),
	}, nil)

	matcher := NewRuleMatcher()

	// A connection without HTTP attributes must skip the HTTP rule even
	// though its condition is a wildcard.
	rule, err := matcher.Match(snap.Rules(), &Attributes{Protocol: "tcp"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if rule.Name != "tcp-any" {
		t.Errorf("expected L4 rule for non-HTTP traffic, got %q", rule.Name)
	}
}

func TestMatchHeaders(t *testing.T) {
	cond := &rules.HTTPMatchCondition{
		Headers: map[string]*rules.StringMatch{
			"cookie":    regex("^(.*?;)?(user=jason)(;.*)?$"),
			"x-channel": exact("beta"),
		},
	}
	snap := buildSnapshot(t, []*rules.RouteRule{httpRule("beta-users", cond, "v2")}, nil)
	matcher := NewRuleMatcher()

	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{
			name:    "both headers satisfied",
			headers: map[string]string{"cookie": "user=jason", "x-channel": "beta"},
			want:    true,
		},
		{
			name:    "header names matched case-insensitively",
			headers: map[string]string{"Cookie": "session=1;user=jason", "X-Channel": "beta"},
			want:    true,
		},
		{
			name:    "one required header absent",
			headers: map[string]string{"cookie": "user=jason"},
			want:    false,
		},
		{
			name:    "value fails the match",
			headers: map[string]string{"cookie": "user=shriram", "x-channel": "beta"},
			want:    false,
		},
		{
			name:    "extra request headers ignored",
			headers: map[string]string{"cookie": "user=jason", "x-channel": "beta", "accept": "*/*"},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := &Attributes{HTTP: &HTTPAttributes{Headers: tt.headers}}
			_, err := matcher.Match(snap.Rules(), attrs)
			matched := err == nil
			if matched != tt.want {
				t.Errorf("matched=%v, want %v (err=%v)", matched, tt.want, err)
			}
		})
	}
}

func TestMatchL4Predicates(t *testing.T) {
	cond := &rules.L4MatchCondition{
		SourceSubnets:    []string{"10.0.0.0/8", "192.168.1.0/24"},
		DestinationPorts: []int{8080, 9090},
		Protocols:        []string{"tcp"},
	}
	snap := buildSnapshot(t, []*rules.RouteRule{l4Rule("internal", cond, "backend")}, nil)
	matcher := NewRuleMatcher()

	tests := []struct {
		name  string
		attrs *Attributes
		want  bool
	}{
		{
			name:  "first subnet alternative",
			attrs: &Attributes{SourceIP: net.ParseIP("10.44.0.3"), DestinationPort: 8080, Protocol: "tcp"},
			want:  true,
		},
		{
			name:  "second subnet alternative",
			attrs: &Attributes{SourceIP: net.ParseIP("192.168.1.200"), DestinationPort: 9090, Protocol: "tcp"},
			want:  true,
		},
		{
			name:  "subnet miss",
			attrs: &Attributes{SourceIP: net.ParseIP("172.16.0.1"), DestinationPort: 8080, Protocol: "tcp"},
			want:  false,
		},
		{
			name:  "port miss fails despite subnet hit",
			attrs: &Attributes{SourceIP: net.ParseIP("10.0.0.1"), DestinationPort: 443, Protocol: "tcp"},
			want:  false,
		},
		{
			name:  "protocol miss fails despite subnet and port hits",
			attrs: &Attributes{SourceIP: net.ParseIP("10.0.0.1"), DestinationPort: 8080, Protocol: "udp"},
			want:  false,
		},
		{
			name:  "missing source ip cannot satisfy a subnet predicate",
			attrs: &Attributes{DestinationPort: 8080, Protocol: "tcp"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := matcher.Match(snap.Rules(), tt.attrs)
			matched := err == nil
			if matched != tt.want {
				t.Errorf("matched=%v, want %v (err=%v)", matched, tt.want, err)
			}
		})
	}
}

func TestMatchStringVariants(t *testing.T) {
	tests := []struct {
		name  string
		match *rules.StringMatch
		uri   string
		want  bool
	}{
		{"exact hit", exact("/v1/status"), "/v1/status", true},
		{"exact miss on superstring", exact("/v1/status"), "/v1/status/extra", false},
		{"prefix hit", prefix("/v1"), "/v1/anything", true},
		{"prefix miss", prefix("/v1"), "/v2/anything", false},
		{"regex anchored hit", regex("/v[0-9]+/.*"), "/v2/items", true},
		{"regex does not match substrings", regex("v[0-9]+"), "/v2/items", false},
	}

	matcher := NewRuleMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := buildSnapshot(t, []*rules.RouteRule{
				httpRule("r", &rules.HTTPMatchCondition{URI: tt.match}, "svc"),
			}, nil)
			_, err := matcher.Match(snap.Rules(), &Attributes{HTTP: &HTTPAttributes{URI: tt.uri}})
			matched := err == nil
			if matched != tt.want {
				t.Errorf("matched=%v, want %v", matched, tt.want)
			}
		})
	}
}
