package models

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
)

// ErrorType categorizes activity errors for retry and loop-control decisions.
type ErrorType int

const (
	ErrorTypeTransient       ErrorType = iota // network, timeout, 5xx: engine retries
	ErrorTypeContextOverflow                  // context window exceeded
	ErrorTypeAPILimit                         // rate limit: retried with backoff
	ErrorTypeToolFailure                      // tool infrastructure failed
	ErrorTypeFatal                            // unrecoverable client error
)

// String returns the stable name used as the ApplicationError type at the
// activity boundary. The workflow matches on these names, so they must not
// change.
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypeContextOverflow:
		return "ContextOverflow"
	case ErrorTypeAPILimit:
		return "APILimit"
	case ErrorTypeToolFailure:
		return "ToolFailure"
	case ErrorTypeFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// ActivityError carries a categorized failure from activity-side code
// (model clients, tool handlers) up to the activity boundary.
type ActivityError struct {
	Type      ErrorType `json:"type"`
	Retryable bool      `json:"retryable"`
	Message   string    `json:"message"`
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewTransientError creates a retryable transient error.
func NewTransientError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeTransient, Retryable: true, Message: message}
}

// NewContextOverflowError creates a non-retryable context overflow error.
func NewContextOverflowError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeContextOverflow, Retryable: false, Message: message}
}

// NewAPILimitError creates a retryable rate limit error.
func NewAPILimitError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeAPILimit, Retryable: true, Message: message}
}

// NewToolFailureError creates a non-retryable tool infrastructure error.
func NewToolFailureError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeToolFailure, Retryable: false, Message: message}
}

// NewFatalError creates a non-retryable fatal error.
func NewFatalError(message string) *ActivityError {
	return &ActivityError{Type: ErrorTypeFatal, Retryable: false, Message: message}
}

// WrapActivityError converts an ActivityError into a Temporal application
// error whose type is the ErrorType name. Retryability is decided here, not
// by string matching in the workflow: non-retryable errors fail the activity
// immediately regardless of the retry policy.
func WrapActivityError(err *ActivityError) error {
	if err.Retryable {
		return temporal.NewApplicationError(err.Message, err.Type.String())
	}
	return temporal.NewNonRetryableApplicationError(err.Message, err.Type.String(), nil)
}
