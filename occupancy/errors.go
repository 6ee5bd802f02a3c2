/*
errors.go - Centralized error types for the occupancy domain

PURPOSE:
  All error types in one place for consistency and discoverability.
  The settlement saga and the stores wrap these with additional context.

ERROR CATEGORIES:
  1. Lifecycle errors - Illegal booking transitions
  2. Settlement errors - Partial settlements, lost races, failed notifications
  3. Store errors - Missing records, stale writes, duplicate keys
  4. Validation errors - Malformed input

USAGE:
  if errors.Is(err, occupancy.ErrInvalidTransition) {
      var te *occupancy.InvalidTransitionError
      errors.As(err, &te) // te.From, te.To
  }

SEE ALSO:
  - lifecycle.go: Returns InvalidTransitionError
  - settlement/saga.go: Returns PartialSettlementError
*/
package occupancy

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when a requested status change is not an edge
	// of the booking lifecycle.
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrConcurrentSettlementLoss is returned to the settlement that lost the
	// conditional status write to another settlement of the same booking.
	// Callers treat it as success-equivalent.
	ErrConcurrentSettlementLoss = fmt.Errorf("%w: booking already settled concurrently", ErrInvalidTransition)

	// ErrPartialSettlement is returned when a write after the status commit failed.
	ErrPartialSettlement = errors.New("partial settlement")

	// ErrNotificationFailed marks a failed best-effort notification. Logged, never raised.
	ErrNotificationFailed = errors.New("notification failed")

	// ErrUnknownOutcome is returned when a write timed out and may or may not have applied.
	ErrUnknownOutcome = errors.New("write outcome unknown")

	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrStaleStatus is returned by a conditional status write when the stored
	// status no longer matches the expected one.
	ErrStaleStatus = errors.New("booking status changed concurrently")

	// ErrDuplicateIdempotencyKey is returned when a payment or expense with the
	// same idempotency key already exists. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidStay   = errors.New("invalid stay: check-out before check-in")

	// ErrRefundMissing is returned by the complete-expense action when the booking
	// has no checkout refund to pass through.
	ErrRefundMissing = errors.New("no checkout refund recorded for booking")

	// ErrRefundKeyConflict is returned when the checkout refund key is held by a
	// payment the settlement did not write.
	ErrRefundKeyConflict = errors.New("checkout refund key held by another payment")

	// ErrReservedKey is returned when a manual write uses a settlement key.
	ErrReservedKey = errors.New("idempotency key is reserved for checkout settlement")

	// ErrDuplicateBooking is returned when a booking ID already exists.
	ErrDuplicateBooking = errors.New("booking already exists")

	// ErrNothingToResume is returned when a settlement has no outstanding steps.
	ErrNothingToResume = errors.New("settlement has no outstanding steps")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError names the current and requested statuses.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PartialSettlementError describes a settlement that committed the checkout but
// failed a later write.
type PartialSettlementError struct {
	BookingID BookingID
	Completed []SettlementStep
	Failed    SettlementStep
	Unknown   bool
	Err       error
}

func (e *PartialSettlementError) Error() string {
	done := make([]string, len(e.Completed))
	for i, s := range e.Completed {
		done[i] = string(s)
	}
	outcome := "failed"
	if e.Unknown {
		outcome = "outcome unknown"
	}
	return fmt.Sprintf("partial settlement of booking %s: completed [%s], %s %s: %v",
		e.BookingID, strings.Join(done, ", "), e.Failed, outcome, e.Err)
}

func (e *PartialSettlementError) Unwrap() []error {
	return []error{ErrPartialSettlement, e.Err}
}

// ValidationError provides details about malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidStay) ||
		errors.Is(err, ErrReservedKey) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsConflict returns true if the error reflects the booking's current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrStaleStatus) ||
		errors.Is(err, ErrRefundMissing) ||
		errors.Is(err, ErrRefundKeyConflict) ||
		errors.Is(err, ErrDuplicateBooking) ||
		errors.Is(err, ErrNothingToResume)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrExpenseNotFound)
}

// IsSuccessEquivalent returns true for errors the caller may treat as the
// operation having already happened.
func IsSuccessEquivalent(err error) bool {
	return errors.Is(err, ErrConcurrentSettlementLoss) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}
