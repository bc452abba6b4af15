package repositories

import (
	"fmt"
	"strings"
)

// CounterErrorCode enumerates failure reasons for counter operations.
type CounterErrorCode string

const (
	// CounterErrorUnknown represents an unspecified failure.
	CounterErrorUnknown CounterErrorCode = "counter_unknown"
	// CounterErrorInvalidInput indicates the caller supplied invalid arguments.
	CounterErrorInvalidInput CounterErrorCode = "counter_invalid_input"
	// CounterErrorExhausted indicates the counter reached its configured max value.
	CounterErrorExhausted CounterErrorCode = "counter_exhausted"
)

// CounterError wraps counter-specific failures with machine readable codes.
type CounterError struct {
	Op      string
	Code    CounterErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCounterError constructs a typed counter error.
func NewCounterError(code CounterErrorCode, message string, err error) *CounterError {
	if message == "" {
		message = string(code)
	}
	return &CounterError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AdvanceCounter applies one increment to a stored counter state. Backends without
// server-side scripting share it so step and max semantics stay identical.
func AdvanceCounter(id string, current, storedStep int64, maxValue *int64, step int64) (next, usedStep int64, err error) {
	increment := step
	if increment <= 0 {
		increment = storedStep
	}
	if increment <= 0 {
		increment = 1
	}
	next = current + increment
	if maxValue != nil && next > *maxValue {
		return 0, 0, NewCounterError(CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, *maxValue), nil)
	}
	return next, increment, nil
}

// NormalizeCounterID trims the id and rejects empty ids or negative steps.
func NormalizeCounterID(counterID string, step int64) (string, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return "", NewCounterError(CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step < 0 {
		return "", NewCounterError(CounterErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}
	return id, nil
}
