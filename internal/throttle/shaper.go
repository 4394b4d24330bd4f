// Package throttle turns a throttle decision into enforceable byte-rate
// budgets for the data plane. The decision core only decides that a
// connection is throttled and with which parameters; this package gives
// the forwarder rate limiters and the start/stop bookkeeping.
package throttle

import (
	"time"

	"golang.org/x/time/rate"

	"traffic-director/internal/routing"
)

// Shaper enforces one connection's throttle decision. Construct one per
// throttled connection; the forwarder asks Active before each transfer
// and waits on the appropriate limiter while throttling applies.
type Shaper struct {
	decision routing.ThrottleDecision
	started  time.Time

	downstream *rate.Limiter
	upstream   *rate.Limiter
}

// NewShaper creates a shaper for the given decision, anchored at the
// connection's start time.
func NewShaper(decision routing.ThrottleDecision, started time.Time) *Shaper {
	return &Shaper{
		decision:   decision,
		started:    started,
		downstream: newLimiter(decision.DownstreamLimitBps),
		upstream:   newLimiter(decision.UpstreamLimitBps),
	}
}

// newLimiter builds a byte-per-second limiter. A zero limit means the
// direction is uncapped.
func newLimiter(limitBps int64) *rate.Limiter {
	if limitBps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	// Burst of one second's budget keeps short transfers smooth while
	// holding the long-run rate at the cap.
	return rate.NewLimiter(rate.Limit(limitBps), int(limitBps))
}

// Active reports whether throttling applies right now, given the
// current time and the total bytes transferred so far. Throttling
// begins once the start trigger fires (connection age or bytes
// transferred) and ends after the configured duration, if any.
func (s *Shaper) Active(now time.Time, bytesTransferred int64) bool {
	trigger := s.decision.After
	var startedAt time.Time

	switch {
	case trigger.Age > 0:
		startedAt = s.started.Add(trigger.Age)
		if now.Before(startedAt) {
			return false
		}
	case trigger.Bytes > 0:
		if bytesTransferred < trigger.Bytes {
			return false
		}
		// Byte-triggered throttling is bounded from the trigger point;
		// without a wall-clock anchor we bound from connection start.
		startedAt = s.started
	default:
		startedAt = s.started
	}

	if s.decision.Duration > 0 && now.After(startedAt.Add(s.decision.Duration)) {
		return false
	}
	return true
}

// Downstream returns the limiter for proxy-to-client transfer.
func (s *Shaper) Downstream() *rate.Limiter { return s.downstream }

// Upstream returns the limiter for proxy-to-backend transfer.
func (s *Shaper) Upstream() *rate.Limiter { return s.upstream }
