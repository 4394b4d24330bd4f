package routing

import (
	"fmt"
	"strconv"
	"time"

	apperrors "traffic-director/internal/common/errors"
	"traffic-director/internal/rules"
)

// OverrideWarning records a header-based override that failed to parse.
// Overrides are parsed defensively: a malformed value is treated as
// "override absent" and the rule's configured value is used instead.
// The engine logs and counts these; they are never fatal.
type OverrideWarning struct {
	Header string
	Value  string
	Err    error
}

// FaultInjector evaluates the fault spec attached to a matched rule.
// HTTP delay and abort are gated by independent percentage draws; L4
// throttle is evaluated before terminate. The injector holds no state.
type FaultInjector struct{}

// NewFaultInjector creates an injector.
func NewFaultInjector() *FaultInjector {
	return &FaultInjector{}
}

// InjectHTTP evaluates an HTTP rule's delay and abort specs. Each gate
// draws independently, so a request may be delayed, aborted, both or
// neither. A nil fault spec yields an empty decision.
func (f *FaultInjector) InjectHTTP(fault *rules.HTTPFaultInjection, attrs *Attributes, src Source) (FaultDecision, []OverrideWarning) {
	var decision FaultDecision
	var warnings []OverrideWarning
	if fault == nil {
		return decision, nil
	}

	if spec := fault.Delay; spec != nil && gate(spec.Percent, src) {
		delay, warn := f.delayFor(spec, attrs, src)
		decision.Delay = &delay
		if warn != nil {
			warnings = append(warnings, *warn)
		}
	}

	if spec := fault.Abort; spec != nil && gate(spec.Percent, src) {
		signal, warn := f.abortFor(spec, attrs)
		decision.Abort = &signal
		if warn != nil {
			warnings = append(warnings, *warn)
		}
	}

	return decision, warnings
}

// InjectL4 evaluates an L4 rule's throttle and terminate specs, in that
// order. The gates are still independent; only the effect order is
// fixed.
func (f *FaultInjector) InjectL4(fault *rules.L4FaultInjection, src Source) FaultDecision {
	var decision FaultDecision
	if fault == nil {
		return decision
	}

	if spec := fault.Throttle; spec != nil && gate(spec.Percent, src) {
		decision.Throttle = &ThrottleDecision{
			DownstreamLimitBps: spec.DownstreamLimitBps,
			UpstreamLimitBps:   spec.UpstreamLimitBps,
			After: StartTrigger{
				Age:   secondsToDuration(spec.ThrottleAfterSeconds),
				Bytes: spec.ThrottleAfterBytes,
			},
			Duration: secondsToDuration(spec.DurationSeconds),
		}
	}

	if spec := fault.Terminate; spec != nil && gate(spec.Percent, src) {
		decision.Terminate = &TerminateDecision{
			After: secondsToDuration(spec.DelaySeconds),
		}
	}

	return decision
}

// delayFor computes the injected delay: the override header when
// present and well-formed, otherwise the configured fixed value or an
// exponential sample around the configured mean.
func (f *FaultInjector) delayFor(spec *rules.DelaySpec, attrs *Attributes, src Source) (time.Duration, *OverrideWarning) {
	var warn *OverrideWarning
	if spec.OverrideHeaderName != "" {
		if raw, ok := attrs.Header(spec.OverrideHeaderName); ok {
			seconds, err := strconv.ParseFloat(raw, 64)
			if err == nil && seconds >= 0 {
				return secondsToDuration(seconds), nil
			}
			if err == nil {
				err = fmt.Errorf("delay must be non-negative, got %v", seconds)
			}
			warn = &OverrideWarning{
				Header: spec.OverrideHeaderName,
				Value:  raw,
				Err:    apperrors.OverrideParseError("malformed delay override", err),
			}
		}
	}

	if spec.FixedDelaySeconds > 0 {
		return secondsToDuration(spec.FixedDelaySeconds), warn
	}
	return secondsToDuration(spec.ExponentialMeanSeconds * src.ExpFloat64()), warn
}

// abortFor resolves the abort signal, honoring the override header for
// the variant the spec configures. Only the configured variant is
// overridable; the signal shape never changes per request.
func (f *FaultInjector) abortFor(spec *rules.AbortSpec, attrs *Attributes) (ErrorSignal, *OverrideWarning) {
	signal := ErrorSignal{
		GRPCStatus: spec.GRPCStatus,
		HTTP2Error: spec.HTTP2Error,
		HTTPStatus: spec.HTTPStatus,
	}

	if spec.OverrideHeaderName == "" {
		return signal, nil
	}
	raw, ok := attrs.Header(spec.OverrideHeaderName)
	if !ok {
		return signal, nil
	}

	switch {
	case spec.HTTPStatus != 0:
		code, err := strconv.Atoi(raw)
		if err != nil || code < 100 || code > 599 {
			if err == nil {
				err = fmt.Errorf("status %d out of range", code)
			}
			return signal, abortWarning(spec.OverrideHeaderName, raw, err)
		}
		signal.HTTPStatus = code
	case spec.GRPCStatus != "":
		if raw == "" {
			return signal, abortWarning(spec.OverrideHeaderName, raw, fmt.Errorf("empty grpc status"))
		}
		signal.GRPCStatus = raw
	case spec.HTTP2Error != "":
		if raw == "" {
			return signal, abortWarning(spec.OverrideHeaderName, raw, fmt.Errorf("empty http2 error"))
		}
		signal.HTTP2Error = raw
	}
	return signal, nil
}

func abortWarning(header, value string, err error) *OverrideWarning {
	return &OverrideWarning{
		Header: header,
		Value:  value,
		Err:    apperrors.OverrideParseError("malformed abort override", err),
	}
}

// gate draws a uniform float in [0,100) and applies the effect iff the
// draw falls below the configured percent.
func gate(percent float64, src Source) bool {
	if percent <= 0 {
		return false
	}
	return src.Float64()*100 < percent
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
