package rules

import "fmt"

// HTTPFaultInjection attaches delay and abort behavior to an HTTP rule.
// Delay and abort are gated by independent percentages; a request may be
// delayed, aborted, both or neither.
type HTTPFaultInjection struct {
	Delay *DelaySpec `yaml:"delay,omitempty" json:"delay,omitempty"`
	Abort *AbortSpec `yaml:"abort,omitempty" json:"abort,omitempty"`
}

// DelaySpec delays a percentage of matching requests. Exactly one of
// FixedDelaySeconds or ExponentialMeanSeconds must be positive; the
// former injects a constant delay, the latter samples from an
// exponential distribution with the given mean.
//
// When OverrideHeaderName is set and the request carries a well-formed
// value for that header (seconds, decimal fraction allowed) the header
// value replaces the computed delay entirely. Malformed header values
// fall back to the configured delay.
type DelaySpec struct {
	Percent                float64 `yaml:"percent" json:"percent"`
	FixedDelaySeconds      float64 `yaml:"fixed_delay_seconds,omitempty" json:"fixed_delay_seconds,omitempty"`
	ExponentialMeanSeconds float64 `yaml:"exponential_mean_seconds,omitempty" json:"exponential_mean_seconds,omitempty"`
	OverrideHeaderName     string  `yaml:"override_header_name,omitempty" json:"override_header_name,omitempty"`
}

func (d *DelaySpec) validate() error {
	if err := validatePercent(d.Percent); err != nil {
		return fmt.Errorf("delay: %w", err)
	}
	fixed := d.FixedDelaySeconds > 0
	exponential := d.ExponentialMeanSeconds > 0
	if fixed == exponential {
		return fmt.Errorf("delay must set exactly one of fixed_delay_seconds/exponential_mean_seconds")
	}
	return nil
}

// AbortSpec aborts a percentage of matching requests with an error
// signal. Exactly one of GRPCStatus, HTTP2Error or HTTPStatus must be
// set; the decision carries that signal verbatim for the forwarder to
// translate into a response.
type AbortSpec struct {
	Percent            float64 `yaml:"percent" json:"percent"`
	GRPCStatus         string  `yaml:"grpc_status,omitempty" json:"grpc_status,omitempty"`
	HTTP2Error         string  `yaml:"http2_error,omitempty" json:"http2_error,omitempty"`
	HTTPStatus         int     `yaml:"http_status,omitempty" json:"http_status,omitempty"`
	OverrideHeaderName string  `yaml:"override_header_name,omitempty" json:"override_header_name,omitempty"`
}

func (a *AbortSpec) validate() error {
	if err := validatePercent(a.Percent); err != nil {
		return fmt.Errorf("abort: %w", err)
	}
	set := 0
	if a.GRPCStatus != "" {
		set++
	}
	if a.HTTP2Error != "" {
		set++
	}
	if a.HTTPStatus != 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("abort must set exactly one of grpc_status/http2_error/http_status, got %d", set)
	}
	return nil
}

// L4FaultInjection attaches throttle and terminate behavior to an L4
// rule. Throttle is evaluated before terminate; each has its own
// percentage gate.
type L4FaultInjection struct {
	Throttle  *ThrottleSpec  `yaml:"throttle,omitempty" json:"throttle,omitempty"`
	Terminate *TerminateSpec `yaml:"terminate,omitempty" json:"terminate,omitempty"`
}

// ThrottleSpec caps the bit rate of a percentage of matching
// connections. At most one start trigger may be set: either the
// connection has been open for ThrottleAfterSeconds or it has
// transferred ThrottleAfterBytes. Leaving both unset is valid and
// means throttling starts with the first byte; this is a deliberate,
// documented reading since the source schema marks both trigger
// fields optional. DurationSeconds bounds how long the caps apply;
// zero means for the lifetime of the connection.
type ThrottleSpec struct {
	Percent              float64 `yaml:"percent" json:"percent"`
	DownstreamLimitBps   int64   `yaml:"downstream_limit_bps,omitempty" json:"downstream_limit_bps,omitempty"`
	UpstreamLimitBps     int64   `yaml:"upstream_limit_bps,omitempty" json:"upstream_limit_bps,omitempty"`
	ThrottleAfterSeconds float64 `yaml:"throttle_after_seconds,omitempty" json:"throttle_after_seconds,omitempty"`
	ThrottleAfterBytes   int64   `yaml:"throttle_after_bytes,omitempty" json:"throttle_after_bytes,omitempty"`
	DurationSeconds      float64 `yaml:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
}

func (t *ThrottleSpec) validate() error {
	if err := validatePercent(t.Percent); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	afterSeconds := t.ThrottleAfterSeconds > 0
	afterBytes := t.ThrottleAfterBytes > 0
	if afterSeconds && afterBytes {
		return fmt.Errorf("throttle must set at most one of throttle_after_seconds/throttle_after_bytes")
	}
	if t.DownstreamLimitBps < 0 || t.UpstreamLimitBps < 0 {
		return fmt.Errorf("throttle limits must be non-negative")
	}
	return nil
}

// TerminateSpec force-closes a percentage of matching connections after
// DelaySeconds; zero means immediately.
type TerminateSpec struct {
	Percent      float64 `yaml:"percent" json:"percent"`
	DelaySeconds float64 `yaml:"delay_seconds,omitempty" json:"delay_seconds,omitempty"`
}

func (t *TerminateSpec) validate() error {
	if err := validatePercent(t.Percent); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	if t.DelaySeconds < 0 {
		return fmt.Errorf("terminate delay must be non-negative")
	}
	return nil
}

func validatePercent(p float64) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("percent must be within [0,100], got %v", p)
	}
	return nil
}
