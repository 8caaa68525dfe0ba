package core

import (
	"fmt"
)

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone    ErrorCategory = iota // No error
	ErrCategoryParse                        // Recognition string could not be parsed
	ErrCategoryFrame                        // Frame boundary could not be crossed
	ErrCategoryLookup                       // Window or component not found, stale cache
	ErrCategoryTimeout                      // Operation timed out
	ErrCategorySession                      // Browser session call failed
	ErrCategoryConfig                       // Invalid configuration or app map
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryParse:
		return "parse"
	case ErrCategoryFrame:
		return "frame"
	case ErrCategoryLookup:
		return "lookup"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategorySession:
		return "session"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: object_not_found, frame_unreachable, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
// Lets errors.Is(err, ErrObjectNotFound) match copies made by WithCause/WithMessage.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Parse errors are surfaced immediately and never retried.
	ErrMalformedRecognition = &ExecutionError{
		Category: ErrCategoryParse,
		Code:     "malformed_recognition_string",
		Message:  "malformed recognition string",
	}

	// A frame without src has no reachable content.
	ErrFrameUnreachable = &ExecutionError{
		Category: ErrCategoryFrame,
		Code:     "frame_unreachable",
		Message:  "frame has no source",
	}

	// Lookup errors
	ErrObjectNotFound = &ExecutionError{
		Category: ErrCategoryLookup,
		Code:     "object_not_found",
		Message:  "object not found",
	}
	ErrStaleCacheEntry = &ExecutionError{
		Category: ErrCategoryLookup,
		Code:     "stale_cache_entry",
		Message:  "cached locator is no longer live",
	}

	// Timeout errors
	ErrWindowSwitchTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "window_switch_timeout",
		Message:  "window switch did not return in time",
	}

	// Session errors
	ErrSessionUnavailable = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "session_unavailable",
		Message:  "browser session call failed",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
