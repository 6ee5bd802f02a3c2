package settlement

import (
	"github.com/warp/occupancy-engine/occupancy"
)

// =============================================================================
// RESULT - Tagged outcome of a settlement
// =============================================================================

type Outcome string

const (
	OutcomeSettled  Outcome = "settled"
	OutcomePartial  Outcome = "partial"
	OutcomeRejected Outcome = "rejected"
)

// Result carries exactly one of Settled, Partial or Rejected, selected by Outcome.
type Result struct {
	Outcome  Outcome
	Settled  *Settled
	Partial  *Partial
	Rejected *Rejected
}

// Settled means every requested write is in place.
type Settled struct {
	Booking        occupancy.Booking
	RefundPayment  *occupancy.Payment
	Expense        *occupancy.Expense
	Reconciliation *occupancy.Reconciliation

	// AlreadySettled is set when this call found the work already done.
	AlreadySettled bool

	// ConcurrentLoss is set when another settlement of the same booking won
	// the status commit while this one was in flight.
	ConcurrentLoss bool
}

// Partial means the checkout committed but a later write failed or timed out.
// Remaining steps are left for an operator.
type Partial struct {
	Booking        occupancy.Booking
	CompletedSteps []occupancy.SettlementStep
	FailedStep     occupancy.SettlementStep
	Unknown        bool
	Err            error
	RefundPayment  *occupancy.Payment
}

// Rejected means no write was made.
type Rejected struct {
	Reason error
}

// Err returns nil for a settled result and the error describing any other outcome.
func (r *Result) Err() error {
	switch r.Outcome {
	case OutcomePartial:
		return &occupancy.PartialSettlementError{
			BookingID: r.Partial.Booking.ID,
			Completed: r.Partial.CompletedSteps,
			Failed:    r.Partial.FailedStep,
			Unknown:   r.Partial.Unknown,
			Err:       r.Partial.Err,
		}
	case OutcomeRejected:
		return r.Rejected.Reason
	}
	return nil
}

func settledResult(s *Settled) *Result {
	return &Result{Outcome: OutcomeSettled, Settled: s}
}

func partialResult(p *Partial) *Result {
	return &Result{Outcome: OutcomePartial, Partial: p}
}

func rejectedResult(reason error) *Result {
	return &Result{Outcome: OutcomeRejected, Rejected: &Rejected{Reason: reason}}
}
