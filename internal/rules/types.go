// Package rules defines the configuration model for the traffic director:
// route rules, match conditions, weighted cluster lists, fault injection
// specs and per-cluster resiliency policies.
//
// All entities in this package are built once when a configuration snapshot
// is assembled and are read-only afterwards. Validation and pre-compilation
// (regex patterns, CIDR blocks) happen at snapshot build time so that
// request-time evaluation never fails on malformed configuration.
package rules

import (
	"fmt"
	"net"
	"regexp"
	"sort"
	"strings"
)

// ClusterIdentifier uniquely names an upstream cluster as a service name
// plus an unordered set of tags. Two identifiers are equal iff the names
// match and the tag sets contain the same elements, regardless of order.
type ClusterIdentifier struct {
	Name string   `yaml:"name" json:"name"`
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Equal reports whether two identifiers name the same cluster.
func (c ClusterIdentifier) Equal(other ClusterIdentifier) bool {
	return c.Key() == other.Key()
}

// Key returns a canonical string form usable as a map key. Tags are
// sorted so that ordering differences do not produce distinct keys.
func (c ClusterIdentifier) Key() string {
	if len(c.Tags) == 0 {
		return c.Name
	}
	tags := make([]string, len(c.Tags))
	copy(tags, c.Tags)
	sort.Strings(tags)
	return c.Name + "|" + strings.Join(tags, ",")
}

func (c ClusterIdentifier) String() string {
	return c.Key()
}

// StringMatch is a tagged union over exactly one of exact, prefix or
// regex matching. Which variant is active is determined by which field
// is non-empty; setting more than one is a configuration error.
//
// Regex matching is anchored: the pattern must match the whole value.
// This is a deliberate, documented choice since the source schema leaves
// anchoring unspecified and partial matching makes rule behavior depend
// on substring placement.
type StringMatch struct {
	Exact  string `yaml:"exact,omitempty" json:"exact,omitempty"`
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Regex  string `yaml:"regex,omitempty" json:"regex,omitempty"`

	compiled *regexp.Regexp
}

// Compile validates the union shape and pre-compiles the regex variant.
// It must be called before Matches; snapshot building does this for
// every StringMatch reachable from a rule.
func (m *StringMatch) Compile() error {
	set := 0
	if m.Exact != "" {
		set++
	}
	if m.Prefix != "" {
		set++
	}
	if m.Regex != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("string match must set exactly one of exact/prefix/regex, got %d", set)
	}
	if m.Regex != "" {
		re, err := regexp.Compile(`\A(?:` + m.Regex + `)\z`)
		if err != nil {
			return fmt.Errorf("invalid regex %q: %w", m.Regex, err)
		}
		m.compiled = re
	}
	return nil
}

// Matches reports whether value satisfies the match. A nil StringMatch
// is a wildcard and matches everything.
func (m *StringMatch) Matches(value string) bool {
	if m == nil {
		return true
	}
	switch {
	case m.Exact != "":
		return value == m.Exact
	case m.Prefix != "":
		return strings.HasPrefix(value, m.Prefix)
	case m.compiled != nil:
		return m.compiled.MatchString(value)
	}
	return false
}

// L4MatchCondition holds the connection-level predicates. Every field is
// optional; an absent field is a wildcard. Within a repeated field the
// entries are alternatives (any listed subnet/port may match), across
// fields the predicates combine with AND.
type L4MatchCondition struct {
	SourceSubnets      []string `yaml:"source_subnets,omitempty" json:"source_subnets,omitempty"`
	SourcePorts        []int    `yaml:"source_ports,omitempty" json:"source_ports,omitempty"`
	DestinationSubnets []string `yaml:"destination_subnets,omitempty" json:"destination_subnets,omitempty"`
	DestinationPorts   []int    `yaml:"destination_ports,omitempty" json:"destination_ports,omitempty"`
	Protocols          []string `yaml:"protocols,omitempty" json:"protocols,omitempty"`

	sourceNets      []*net.IPNet
	destinationNets []*net.IPNet
}

// Compile parses the CIDR blocks so request-time matching never has to.
func (c *L4MatchCondition) Compile() error {
	var err error
	if c.sourceNets, err = parseSubnets(c.SourceSubnets); err != nil {
		return fmt.Errorf("source subnets: %w", err)
	}
	if c.destinationNets, err = parseSubnets(c.DestinationSubnets); err != nil {
		return fmt.Errorf("destination subnets: %w", err)
	}
	return nil
}

// SourceNets returns the parsed source CIDR blocks.
func (c *L4MatchCondition) SourceNets() []*net.IPNet { return c.sourceNets }

// DestinationNets returns the parsed destination CIDR blocks.
func (c *L4MatchCondition) DestinationNets() []*net.IPNet { return c.destinationNets }

func parseSubnets(subnets []string) ([]*net.IPNet, error) {
	if len(subnets) == 0 {
		return nil, nil
	}
	nets := make([]*net.IPNet, 0, len(subnets))
	for _, s := range subnets {
		_, block, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", s, err)
		}
		nets = append(nets, block)
	}
	return nets, nil
}

// HTTPMatchCondition is a superset of the L4 condition that additionally
// constrains request-level attributes. Header names are matched
// case-insensitively; header values according to their StringMatch.
type HTTPMatchCondition struct {
	L4MatchCondition `yaml:",inline"`

	Scheme    *StringMatch            `yaml:"scheme,omitempty" json:"scheme,omitempty"`
	Authority *StringMatch            `yaml:"authority,omitempty" json:"authority,omitempty"`
	URI       *StringMatch            `yaml:"uri,omitempty" json:"uri,omitempty"`
	Headers   map[string]*StringMatch `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Compile compiles the embedded L4 condition and every StringMatch.
func (c *HTTPMatchCondition) Compile() error {
	if err := c.L4MatchCondition.Compile(); err != nil {
		return err
	}
	fields := []struct {
		name  string
		match *StringMatch
	}{
		{"scheme", c.Scheme},
		{"authority", c.Authority},
		{"uri", c.URI},
	}
	for _, f := range fields {
		if f.match == nil {
			continue
		}
		if err := f.match.Compile(); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	for header, m := range c.Headers {
		if m == nil {
			continue
		}
		if err := m.Compile(); err != nil {
			return fmt.Errorf("header %q: %w", header, err)
		}
	}
	return nil
}

// WeightedCluster pairs an upstream cluster with its share of traffic.
// Weights under one rule must sum to exactly 100.
type WeightedCluster struct {
	Cluster ClusterIdentifier `yaml:"cluster" json:"cluster"`
	Weight  int               `yaml:"weight" json:"weight"`
}

// L4Rule routes raw connections. A nil Match matches every connection.
type L4Rule struct {
	Match *L4MatchCondition `yaml:"match,omitempty" json:"match,omitempty"`
	Route []WeightedCluster `yaml:"route" json:"route"`
	Fault *L4FaultInjection `yaml:"fault,omitempty" json:"fault,omitempty"`
}

// HTTPRule routes HTTP requests. A nil Match matches every request.
type HTTPRule struct {
	Match *HTTPMatchCondition `yaml:"match,omitempty" json:"match,omitempty"`
	Route []WeightedCluster   `yaml:"route" json:"route"`
	Fault *HTTPFaultInjection `yaml:"fault,omitempty" json:"fault,omitempty"`
}

// RouteRule is a tagged union over exactly one of an L4 rule or an HTTP
// rule. A rule defining both or neither is rejected at snapshot build.
type RouteRule struct {
	Name string    `yaml:"name" json:"name"`
	L4   *L4Rule   `yaml:"l4,omitempty" json:"l4,omitempty"`
	HTTP *HTTPRule `yaml:"http,omitempty" json:"http,omitempty"`
}

// IsHTTP reports whether the HTTP variant is active.
func (r *RouteRule) IsHTTP() bool { return r.HTTP != nil }

// Route returns the weighted cluster list of the active variant.
func (r *RouteRule) Route() []WeightedCluster {
	if r.HTTP != nil {
		return r.HTTP.Route
	}
	if r.L4 != nil {
		return r.L4.Route
	}
	return nil
}
