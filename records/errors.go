/*
errors.go - Centralized error types for the back office

ERROR CATEGORIES:
  1. Storage faults - decode failures, version conflicts, backend errors
  2. Validation faults - malformed input, duplicate SKU or username
  3. Logical impossibilities - editing a paid record, illegal status
     transitions, unknown ids

Handlers map these to HTTP statuses through IsClientError, IsNotFound and
IsConflict. Nothing here is fatal to the process.
*/
package records

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned when input or a stored record fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a unique field (SKU, username) is taken.
	ErrConflict = errors.New("conflicts with an existing record")

	// ErrRecordPaid is returned when a Paid salary record would be edited.
	ErrRecordPaid = errors.New("salary record is already paid")

	// ErrInvalidTransition is returned for any payment transition other than
	// Pending -> Processing -> Paid.
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrPaymentMethodRequired is returned when paying a record with no method.
	ErrPaymentMethodRequired = errors.New("payment method required")

	// ErrInsufficientStock is returned when a sale exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrentModification is returned when a collection changed between
	// read and write.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrCorruptCollection is returned when a stored collection cannot be decoded.
	ErrCorruptCollection = errors.New("corrupt collection")

	// ErrUnknownUser is returned when no account of the requested role exists.
	ErrUnknownUser = errors.New("no account found with that username")

	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = errors.New("incorrect password")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransitionError describes a rejected payment status change.
type TransitionError struct {
	ID   string
	From SalaryStatus
	To   SalaryStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("salary %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientStockError reports the first line of a sale that cannot be filled.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// FieldError is one failed field of a validated value.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field failures. It unwraps to ErrValidation.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or
// a request the current record state does not allow.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrRecordPaid) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPaymentMethodRequired) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for uniqueness and version conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrConcurrentModification)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
