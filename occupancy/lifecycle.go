/*
lifecycle.go - Booking state machine

PURPOSE:
  Owns the legal edges of a booking's lifecycle. Every status change in the
  system, from the API and from the settlement saga, goes through
  RequestTransition. The UI asks NextStatuses instead of hard-coding rules.

LIFECYCLE:
  ┌─────────┐    ┌───────────┐    ┌────────────┐    ┌─────────────┐
  │ PENDING │──▶ │ CONFIRMED │──▶ │ CHECKED_IN │──▶ │ CHECKED_OUT │
  └─────────┘    └───────────┘    └────────────┘    └─────────────┘
       │               │                │
       └───────────────┴────────────────┴──────▶ CANCELLED

  CHECKED_OUT and CANCELLED are terminal.

PURITY:
  RequestTransition never persists and never reads the clock. The caller
  passes "at" and writes the returned snapshot with a conditional store write.

SEE ALSO:
  - store.go: BookingStore.TransitionStatus (conditional write)
  - settlement/saga.go: Uses RequestTransition for checkout
*/
package occupancy

import "time"

// =============================================================================
// TRANSITION TABLE
// =============================================================================

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:  {StatusCheckedOut, StatusCancelled},
	StatusCheckedOut: nil,
	StatusCancelled:  nil,
}

// ValidStatus reports whether s is one of the known booking statuses.
func ValidStatus(s BookingStatus) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable in one step from s.
func NextStatuses(s BookingStatus) []BookingStatus {
	next := transitions[s]
	out := make([]BookingStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s BookingStatus) bool {
	return ValidStatus(s) && len(transitions[s]) == 0
}

// =============================================================================
// REQUEST TRANSITION
// =============================================================================

// RequestTransition validates booking.Status -> target and returns the updated
// snapshot. The input booking is not modified.
func RequestTransition(booking Booking, target BookingStatus, at time.Time) (Booking, error) {
	if !CanTransition(booking.Status, target) {
		return Booking{}, &InvalidTransitionError{From: booking.Status, To: target}
	}

	next := booking
	next.Status = target
	next.UpdatedAt = at
	if target == StatusCheckedOut && booking.CheckOutDate == nil {
		out := at
		next.CheckOutDate = &out
	}
	return next, nil
}

// ValidateHistory reports whether path is a status history a booking could
// have had: it starts at PENDING and every consecutive pair is an edge.
func ValidateHistory(path []BookingStatus) bool {
	if len(path) == 0 || path[0] != StatusPending {
		return false
	}
	for i := 1; i < len(path); i++ {
		if !CanTransition(path[i-1], path[i]) {
			return false
		}
	}
	return true
}
