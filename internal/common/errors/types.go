// Package errors defines the structured error taxonomy of the traffic
// director. Configuration errors are fatal to a reload (the offending
// snapshot is rejected, the previous one stays active); no-route is an
// expected per-evaluation outcome; override parse failures are
// recovered locally and only logged.
package errors

import (
	"fmt"
	"strings"
)

// ErrorType classifies an error for handling and reporting.
type ErrorType string

const (
	// ErrTypeConfig marks reload-time configuration errors: malformed
	// tagged unions, weight sums, conflicting rule definitions.
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNoRoute marks the expected no-rule-matched outcome.
	ErrTypeNoRoute ErrorType = "no_route"
	// ErrTypeOverrideParse marks recovered header-override parse failures.
	ErrTypeOverrideParse ErrorType = "override_parse"
	// ErrTypePassthrough marks opaque custom policies the core forwards
	// without interpreting.
	ErrTypePassthrough ErrorType = "passthrough"
	// ErrTypeValidation marks invalid caller input at the API boundary.
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeAuth marks authentication failures on the admin API.
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeInternal marks unexpected internal failures.
	ErrTypeInternal ErrorType = "internal"
)

// AppError is a structured application error with type, optional cause
// and free-form context.
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying cause.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithContext adds a context key to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ConfigError creates a configuration error.
func ConfigError(msg string) *AppError {
	return &AppError{Type: ErrTypeConfig, Message: msg}
}

// NoRouteError creates a no-route error.
func NoRouteError(msg string) *AppError {
	return &AppError{Type: ErrTypeNoRoute, Message: msg}
}

// OverrideParseError creates a recovered override-parse error.
func OverrideParseError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeOverrideParse, Message: msg, Cause: cause}
}

// ValidationError creates a validation error.
func ValidationError(msg string) *AppError {
	return &AppError{Type: ErrTypeValidation, Message: msg}
}

// AuthError creates an authentication error.
func AuthError(msg string) *AppError {
	return &AppError{Type: ErrTypeAuth, Message: msg}
}

// InternalError creates an internal error with a cause.
func InternalError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeInternal, Message: msg, Cause: cause}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}
