package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryLookup,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryLookup,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrObjectNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrWindowSwitchTimeout
	newErr := original.WithMessage("switch to win-2 hung")

	if newErr.Message != "switch to win-2 hung" {
		t.Errorf("Message = %q, want 'switch to win-2 hung'", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message == "switch to win-2 hung" {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := &ExecutionError{
		Code:    "test",
		Message: "test",
		Details: map[string]interface{}{"existing": "value"},
	}

	newErr := original.WithDetails(map[string]interface{}{
		"window":  "Login",
		"timeout": 5,
	})

	if newErr.Details["window"] != "Login" {
		t.Error("WithDetails() did not add new details")
	}
	if newErr.Details["existing"] != "value" {
		t.Error("WithDetails() did not preserve existing details")
	}
	if _, ok := original.Details["window"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		category ErrorCategory
		code     string
	}{
		{ErrMalformedRecognition, ErrCategoryParse, "malformed_recognition_string"},
		{ErrFrameUnreachable, ErrCategoryFrame, "frame_unreachable"},
		{ErrObjectNotFound, ErrCategoryLookup, "object_not_found"},
		{ErrStaleCacheEntry, ErrCategoryLookup, "stale_cache_entry"},
		{ErrWindowSwitchTimeout, ErrCategoryTimeout, "window_switch_timeout"},
		{ErrSessionUnavailable, ErrCategorySession, "session_unavailable"},
		{ErrInvalidConfig, ErrCategoryConfig, "invalid_config"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestErrorCategoryString(t *testing.T) {
	tests := map[ErrorCategory]string{
		ErrCategoryNone:    "none",
		ErrCategoryParse:   "parse",
		ErrCategoryFrame:   "frame",
		ErrCategoryLookup:  "lookup",
		ErrCategoryTimeout: "timeout",
		ErrCategorySession: "session",
		ErrCategoryConfig:  "config",
		ErrorCategory(99):  "unknown",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", int(c), got, want)
		}
	}
}

func TestNewExecutionError(t *testing.T) {
	err := NewExecutionError(ErrCategorySession, "custom_error", "custom message")

	if err.Category != ErrCategorySession {
		t.Errorf("Category = %s, want %s", err.Category, ErrCategorySession)
	}
	if err.Code != "custom_error" {
		t.Errorf("Code = %s, want 'custom_error'", err.Code)
	}
	if err.Message != "custom message" {
		t.Errorf("Message = %s, want 'custom message'", err.Message)
	}
}

func TestExecutionError_ErrorsIs(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrObjectNotFound.WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the cause")
	}
	if !errors.Is(err, ErrObjectNotFound) {
		t.Error("errors.Is() should match by code")
	}
	if errors.Is(err, ErrFrameUnreachable) {
		t.Error("errors.Is() matched a different code")
	}

	wrapped := fmt.Errorf("resolve Login.Submit: %w", err.WithMessage("Login.Submit not found"))
	if !errors.Is(wrapped, ErrObjectNotFound) {
		t.Error("errors.Is() should see through fmt wrapping")
	}
}
