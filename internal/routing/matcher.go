package routing

import (
	"net"

	"traffic-director/internal/rules"
)

// RuleMatcher scans an ordered rule list and returns the first rule
// whose condition is fully satisfied by the attributes. First match
// wins; rule authors disambiguate overlapping rules via ordering, the
// matcher performs no conflict detection.
type RuleMatcher struct{}

// NewRuleMatcher creates a matcher. The matcher holds no state; one
// instance may be shared by any number of concurrent evaluations.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{}
}

// Match returns the first rule in declaration order that matches attrs,
// or ErrNoRoute when no rule does.
func (m *RuleMatcher) Match(ruleList []*rules.RouteRule, attrs *Attributes) (*rules.RouteRule, error) {
	if attrs == nil {
		return nil, ErrNilAttributes
	}
	for _, rule := range ruleList {
		if m.matches(rule, attrs) {
			return rule, nil
		}
	}
	return nil, ErrNoRoute
}

func (m *RuleMatcher) matches(rule *rules.RouteRule, attrs *Attributes) bool {
	switch {
	case rule.L4 != nil:
		if rule.L4.Match == nil {
			return true
		}
		return m.matchL4(rule.L4.Match, attrs)
	case rule.HTTP != nil:
		// HTTP rules only apply to units that carry HTTP attributes.
		if attrs.HTTP == nil {
			return false
		}
		if rule.HTTP.Match == nil {
			return true
		}
		return m.matchHTTP(rule.HTTP.Match, attrs)
	}
	return false
}

// matchL4 checks the connection-level predicates. An absent predicate
// is a wildcard; repeated entries within one field are alternatives,
// distinct fields combine with AND.
func (m *RuleMatcher) matchL4(cond *rules.L4MatchCondition, attrs *Attributes) bool {
	if !ipInAny(attrs.SourceIP, cond.SourceNets()) {
		return false
	}
	if !ipInAny(attrs.DestinationIP, cond.DestinationNets()) {
		return false
	}
	if !portInAny(attrs.SourcePort, cond.SourcePorts) {
		return false
	}
	if !portInAny(attrs.DestinationPort, cond.DestinationPorts) {
		return false
	}
	if !stringInAny(attrs.Protocol, cond.Protocols) {
		return false
	}
	return true
}

func (m *RuleMatcher) matchHTTP(cond *rules.HTTPMatchCondition, attrs *Attributes) bool {
	if !m.matchL4(&cond.L4MatchCondition, attrs) {
		return false
	}
	http := attrs.HTTP
	if !cond.Scheme.Matches(http.Scheme) {
		return false
	}
	if !cond.Authority.Matches(http.Authority) {
		return false
	}
	if !cond.URI.Matches(http.URI) {
		return false
	}
	// Every header the rule names must be present and satisfied; extra
	// request headers are ignored.
	for name, match := range cond.Headers {
		value, ok := attrs.Header(name)
		if !ok {
			return false
		}
		if !match.Matches(value) {
			return false
		}
	}
	return true
}

func ipInAny(ip net.IP, nets []*net.IPNet) bool {
	if len(nets) == 0 {
		return true
	}
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func portInAny(port int, ports []int) bool {
	if len(ports) == 0 {
		return true
	}
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}

func stringInAny(value string, values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
