package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order, menu item or modifier does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or constraint-violating input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a *ValidationError with a formatted message.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a status change outside the state machine.
type InvalidTransitionError struct {
	Current   OrderStatus
	Requested OrderStatus
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s: %s", e.Current, e.Requested, e.Reason)
}

// AmountMismatchError reports a tendered payment that differs from the order total.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Tendered decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %s does not match order total %s",
		e.Tendered.StringFixed(2), e.Expected.StringFixed(2))
}

// RepositoryError wraps a storage or connectivity failure. The caller may retry
// after re-reading order state.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Retryable is always true; the write may or may not have been applied.
func (e *RepositoryError) Retryable() bool {
	return true
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsInvalidTransition reports whether err is, or wraps, an *InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsAmountMismatch reports whether err is, or wraps, an *AmountMismatchError.
func IsAmountMismatch(err error) bool {
	var target *AmountMismatchError
	return errors.As(err, &target)
}
