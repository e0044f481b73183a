package index

import (
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindInstrumentUnavailable ErrorKind = "instrument_unavailable"
	KindNoDataAtAll           ErrorKind = "no_data_at_all"
	KindInvalidBaseline       ErrorKind = "invalid_baseline"
	KindInsufficientCoverage  ErrorKind = "insufficient_coverage"
)

// Error is a pipeline error tied to an optional instrument.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Symbol  string    `json:"symbol,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Sentinels for errors.Is; matching is by kind only.
var (
	ErrInstrumentUnavailable = &Error{Kind: KindInstrumentUnavailable, Message: "instrument unavailable"}
	ErrNoDataAtAll           = &Error{Kind: KindNoDataAtAll, Message: "no instrument produced usable data"}
	ErrInvalidBaseline       = &Error{Kind: KindInvalidBaseline, Message: "invalid baseline"}
	ErrInsufficientCoverage  = &Error{Kind: KindInsufficientCoverage, Message: "insufficient coverage"}
)

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown index error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Symbol != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Kind, e.Symbol, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Recoverable reports whether the run can continue past this error.
func (e *Error) Recoverable() bool {
	return e != nil && e.Kind != KindNoDataAtAll
}

// NewUnavailableError reports an instrument that produced no usable series.
func NewUnavailableError(symbol, message string, cause error) *Error {
	return &Error{Kind: KindInstrumentUnavailable, Symbol: symbol, Message: message, Cause: cause}
}

// NewInvalidBaselineError reports an instrument whose baseline could not be resolved.
func NewInvalidBaselineError(symbol, message string) *Error {
	return &Error{Kind: KindInvalidBaseline, Symbol: symbol, Message: message}
}

// NewInsufficientCoverageError reports aggregate timestamps that fell below the coverage
// threshold and were forward-filled.
func NewInsufficientCoverageError(unresolved, total, threshold int) *Error {
	return &Error{
		Kind:    KindInsufficientCoverage,
		Message: fmt.Sprintf("%d of %d timestamps had fewer than %d contributors", unresolved, total, threshold),
	}
}

// NewNoDataError reports a run in which no instrument contributed.
func NewNoDataError(attempted int) *Error {
	return &Error{
		Kind:    KindNoDataAtAll,
		Message: fmt.Sprintf("none of %d instruments produced usable data", attempted),
	}
}
