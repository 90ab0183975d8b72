// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Schemaf wraps ErrSchemaInvalid with a formatted cause.
func Schemaf(format string, args ...any) *Error {
	return WrapError(ErrSchemaInvalid, fmt.Errorf(format, args...))
}

// Configf wraps ErrConfigInvalid with a formatted cause.
func Configf(format string, args ...any) *Error {
	return WrapError(ErrConfigInvalid, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Data errors
	ErrSymbolNotFound = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrSchemaInvalid  = &Error{Code: "SCHEMA_INVALID", Message: "price series schema invalid"}

	// Collector errors
	ErrCollectorFailed = &Error{Code: "COLLECTOR_FAILED", Message: "collector failed"}

	// Strategy errors
	ErrUnknownStrategy = &Error{Code: "UNKNOWN_STRATEGY", Message: "unknown strategy"}
	ErrStrategyFailed  = &Error{Code: "STRATEGY_FAILED", Message: "strategy run failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Job errors
	ErrJobNotFound = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}
	ErrRunNotFound = &Error{Code: "RUN_NOT_FOUND", Message: "run not found"}

	// LLM errors
	ErrLLMFailed = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
)
