package operations

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
	ErrorTypePublish      ErrorType = "publish"
	ErrorTypeInvalidState ErrorType = "invalid_state"
)

// ErrRunInProgress is returned when a run is requested while another one is executing.
var ErrRunInProgress = &OperationError{
	Type:    ErrorTypeInvalidState,
	Message: "a run is already in progress",
}

// OperationError represents a step-specific error
type OperationError struct {
	Type      ErrorType `json:"type"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(step, message string) *OperationError {
	return &OperationError{Type: ErrorTypeValidation, Step: step, Message: message}
}

// NewExecutionError creates a new execution error
func NewExecutionError(step string, cause error, retryable bool) *OperationError {
	return &OperationError{
		Type:      ErrorTypeExecution,
		Step:      step,
		Message:   "step execution failed",
		Cause:     cause,
		Retryable: retryable,
	}
}

// NewFatalError creates a new fatal error
func NewFatalError(step, message string, cause error) *OperationError {
	return &OperationError{Type: ErrorTypeFatal, Step: step, Message: message, Cause: cause}
}

// NewPublishError records a failed publisher delivery.
func NewPublishError(cause error) *OperationError {
	return &OperationError{Type: ErrorTypePublish, Step: StepPublish, Message: "publisher failed", Cause: cause, Retryable: true}
}

// WrapError classifies err for step. Context cancellation and deadline errors get their
// own types; existing OperationErrors are returned as is.
func WrapError(err error, step string) *OperationError {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &OperationError{Type: ErrorTypeCancellation, Step: step, Message: "operation was cancelled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &OperationError{Type: ErrorTypeTimeout, Step: step, Message: "step exceeded its deadline", Cause: err, Retryable: true}
	}
	return NewExecutionError(step, err, false)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	return false
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}
