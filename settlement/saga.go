/*
Package settlement runs the checkout settlement of a booking.

PURPOSE:
  Checking a resident out touches three records that live behind separate
  writes: the booking status, the security-deposit refund payment and the
  expense entry that passes the refund through the books. There is no
  transaction spanning them. The Saga orders the writes, records which ones
  completed, and reports a tagged Result instead of a single opaque error.

SETTLEMENT FLOW:
  ┌──────────┐   ┌───────────────┐   ┌────────────────┐   ┌─────────────┐   ┌────────┐
  │ validate │──▶│ commit status │──▶│ refund payment │──▶│ refund      │──▶│ notify │
  │ (no I/O) │   │ CHECKED_IN →  │   │ (if requested  │   │ expense     │   │ (best  │
  │          │   │ CHECKED_OUT   │   │  and deposit>0)│   │             │   │ effort)│
  └──────────┘   └───────────────┘   └────────────────┘   └─────────────┘   └────────┘
       │                │                    │                   │
   Rejected      error / Partial          Partial             Partial

  The status commit is the step of record. It is a conditional write, so two
  concurrent settlements of one booking cannot both pass it. Once it is
  acknowledged the caller's cancellation no longer applies to the refund
  writes; only the notification observes the caller's context.

IDEMPOTENCY:
  The refund payment and the expense carry keys derived from the booking ID
  (occupancy.RefundKey, occupancy.RefundExpenseKey). Settling a booking that is
  already CHECKED_OUT writes nothing and reports what is there. A step is
  always looked up before it is written, so a refund whose acknowledgement was
  lost is found instead of duplicated.

TIMEOUTS:
  Every write runs under Config.StepTimeout. A write that times out has an
  unknown outcome and is reported as Partial with Unknown set.

SEE ALSO:
  - occupancy/lifecycle.go: RequestTransition
  - occupancy/store.go: Conditional status write, idempotency keys
  - result.go: Settled, Partial, Rejected
*/
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/warp/occupancy-engine/occupancy"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

type Config struct {
	StepTimeout   time.Duration
	NotifyTimeout time.Duration

	// Recipients receive checkout notifications.
	Recipients []string
}

func DefaultConfig() Config {
	return Config{
		StepTimeout:   5 * time.Second,
		NotifyTimeout: 10 * time.Second,
	}
}

// OutcomeCache remembers complete settlements so replays skip the store.
type OutcomeCache interface {
	// Load returns (nil, nil) on a miss.
	Load(ctx context.Context, id occupancy.BookingID) (*Settled, error)
	Store(ctx context.Context, id occupancy.BookingID, s Settled) error
	Invalidate(ctx context.Context, id occupancy.BookingID) error
}

// =============================================================================
// SAGA
// =============================================================================

type Saga struct {
	Store    occupancy.Store
	Notifier occupancy.Notifier
	Config   Config

	// Optional.
	Cache  OutcomeCache
	Logger *slog.Logger
	Clock  func() time.Time
}

func NewSaga(store occupancy.Store, notifier occupancy.Notifier, cfg Config) *Saga {
	def := DefaultConfig()
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = def.StepTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = def.NotifyTimeout
	}
	return &Saga{Store: store, Notifier: notifier, Config: cfg}
}

type Request struct {
	BookingID      occupancy.BookingID
	RefundSecurity bool
	OperatorID     occupancy.OperatorID
}

// Settle checks the booking out and, when requested, refunds the security deposit.
//
// A non-nil error is returned only when nothing was written and the call is
// safe to retry. Every other outcome is described by the Result.
func (s *Saga) Settle(ctx context.Context, req Request) (*Result, error) {
	log := s.logger().With("booking_id", req.BookingID, "operator_id", req.OperatorID)

	if cached := s.cached(ctx, req.BookingID, log); cached != nil {
		log.Debug("settlement replayed from cache")
		return settledResult(cached), nil
	}

	// 1. Validate
	booking, err := s.loadBooking(ctx, req.BookingID)
	if err != nil {
		if occupancy.IsNotFound(err) {
			return rejectedResult(err), nil
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking.Status == occupancy.StatusCheckedOut {
		log.Info("booking already checked out, reporting existing outcome")
		return s.existingOutcome(ctx, *booking, false)
	}

	next, err := occupancy.RequestTransition(*booking, occupancy.StatusCheckedOut, s.now())
	if err != nil {
		log.Info("checkout rejected", "status", booking.Status)
		return rejectedResult(err), nil
	}

	// 2. Commit status
	err = s.write(ctx, func(ctx context.Context) error {
		return s.Store.TransitionStatus(ctx, next, booking.Status)
	})
	switch {
	case err == nil:
	case errors.Is(err, occupancy.ErrStaleStatus):
		return s.afterLostCommit(ctx, req, log)
	case isUnknownOutcome(err):
		p := &Partial{
			Booking:    *booking,
			FailedStep: occupancy.StepStatus,
			Unknown:    true,
			Err:        fmt.Errorf("%w: %w", occupancy.ErrUnknownOutcome, err),
		}
		log.Error("checkout status write outcome unknown", "error", err)
		s.journalPartial(context.WithoutCancel(ctx), req, p)
		return partialResult(p), nil
	default:
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	log.Debug("checkout committed")

	// Past the step of record: finish regardless of the caller.
	detached := context.WithoutCancel(ctx)
	completed := []occupancy.SettlementStep{occupancy.StepStatus}
	settled := &Settled{Booking: next}

	// 3. Conditional refund
	if req.RefundSecurity && next.SecurityDeposit.IsPositive() {
		refund, err := s.ensureRefund(detached, next, req.OperatorID)
		if err != nil {
			return s.partial(ctx, req, log, next, completed, occupancy.StepRefundPayment, nil, err), nil
		}
		completed = append(completed, occupancy.StepRefundPayment)
		settled.RefundPayment = refund
		log.Debug("refund payment recorded", "payment_id", refund.ID)

		expense, err := s.ensureExpense(detached, next, req.OperatorID)
		if err != nil {
			return s.partial(ctx, req, log, next, completed, occupancy.StepRefundExpense, refund, err), nil
		}
		settled.Expense = expense
		log.Debug("refund expense recorded", "expense_id", expense.ID)
	}

	settled.Reconciliation = s.reconcile(detached, next, log)
	s.finish(detached, req.OperatorID, req.RefundSecurity, settled, log)

	// 4. Notify
	s.notify(ctx, checkoutNotification(s.Config.Recipients, settled.Booking, settled.RefundPayment, nil), log)
	log.Info("booking settled", "refunded", settled.RefundPayment != nil)
	return settledResult(settled), nil
}

// CompleteExpense records the refund expense for a checked-out booking whose
// refund payment exists. It never writes a refund payment.
func (s *Saga) CompleteExpense(ctx context.Context, bookingID occupancy.BookingID, operatorID occupancy.OperatorID) (*Result, error) {
	log := s.logger().With("booking_id", bookingID, "operator_id", operatorID)

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		if occupancy.IsNotFound(err) {
			return rejectedResult(err), nil
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking.Status != occupancy.StatusCheckedOut {
		return rejectedResult(&occupancy.InvalidTransitionError{From: booking.Status, To: occupancy.StatusCheckedOut}), nil
	}

	st, err := s.inspect(ctx, *booking)
	if err != nil {
		return nil, err
	}
	if st.refund == nil {
		return rejectedResult(fmt.Errorf("complete expense for booking %s: %w", bookingID, occupancy.ErrRefundMissing)), nil
	}
	if st.expense != nil {
		return settledResult(&Settled{
			Booking:        *booking,
			RefundPayment:  st.refund,
			Expense:        st.expense,
			AlreadySettled: true,
		}), nil
	}

	detached := context.WithoutCancel(ctx)
	req := Request{BookingID: bookingID, RefundSecurity: true, OperatorID: operatorID}
	completed := []occupancy.SettlementStep{occupancy.StepStatus, occupancy.StepRefundPayment}
	expense, err := s.ensureExpense(detached, *booking, operatorID)
	if err != nil {
		return s.partial(ctx, req, log, *booking, completed, occupancy.StepRefundExpense, st.refund, err), nil
	}

	settled := &Settled{Booking: *booking, RefundPayment: st.refund, Expense: expense}
	settled.Reconciliation = s.reconcile(detached, *booking, log)
	s.finish(detached, operatorID, true, settled, log)
	log.Info("refund expense completed", "expense_id", expense.ID)
	return settledResult(settled), nil
}

// Resume finishes whatever a recorded settlement left outstanding. Each step
// is looked up before it is written.
func (s *Saga) Resume(ctx context.Context, bookingID occupancy.BookingID, operatorID occupancy.OperatorID) (*Result, error) {
	log := s.logger().With("booking_id", bookingID, "operator_id", operatorID)

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		if occupancy.IsNotFound(err) {
			return rejectedResult(err), nil
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}

	rec, err := s.getRecord(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return rejectedResult(fmt.Errorf("resume booking %s: %w", bookingID, occupancy.ErrNothingToResume)), nil
	}

	// The status write itself timed out and did not apply: settle again.
	if booking.Status == occupancy.StatusCheckedIn && rec.FailedStep == occupancy.StepStatus {
		log.Info("resuming settlement from status commit")
		return s.Settle(ctx, Request{BookingID: bookingID, RefundSecurity: rec.RefundRequested, OperatorID: operatorID})
	}
	if booking.Status != occupancy.StatusCheckedOut {
		return rejectedResult(&occupancy.InvalidTransitionError{From: booking.Status, To: occupancy.StatusCheckedOut}), nil
	}

	st, err := s.inspect(ctx, *booking)
	if err != nil {
		return nil, err
	}
	refundWanted := (rec.RefundRequested || st.refund != nil) && booking.SecurityDeposit.IsPositive()

	detached := context.WithoutCancel(ctx)
	req := Request{BookingID: bookingID, RefundSecurity: refundWanted, OperatorID: operatorID}
	completed := []occupancy.SettlementStep{occupancy.StepStatus}
	settled := &Settled{Booking: *booking, RefundPayment: st.refund, Expense: st.expense}

	if refundWanted {
		if settled.RefundPayment == nil {
			refund, err := s.ensureRefund(detached, *booking, operatorID)
			if err != nil {
				return s.partial(ctx, req, log, *booking, completed, occupancy.StepRefundPayment, nil, err), nil
			}
			settled.RefundPayment = refund
		}
		completed = append(completed, occupancy.StepRefundPayment)

		if settled.Expense == nil {
			expense, err := s.ensureExpense(detached, *booking, operatorID)
			if err != nil {
				return s.partial(ctx, req, log, *booking, completed, occupancy.StepRefundExpense, settled.RefundPayment, err), nil
			}
			settled.Expense = expense
		}
	}

	settled.AlreadySettled = rec.State == occupancy.SettlementSettled
	settled.Reconciliation = s.reconcile(detached, *booking, log)
	s.finish(detached, operatorID, refundWanted, settled, log)
	log.Info("settlement resumed to completion")
	return settledResult(settled), nil
}

// =============================================================================
// EXISTING OUTCOMES
// =============================================================================

type snapshot struct {
	refund  *occupancy.Payment
	expense *occupancy.Expense
	record  *occupancy.SettlementRecord
}

func (s *Saga) inspect(ctx context.Context, booking occupancy.Booking) (snapshot, error) {
	var st snapshot
	var err error
	if st.refund, err = s.findRefund(ctx, booking.ID); err != nil {
		return st, fmt.Errorf("look up refund: %w", err)
	}
	err = s.write(ctx, func(ctx context.Context) error {
		var ferr error
		st.expense, ferr = s.Store.FindExpenseByKey(ctx, occupancy.RefundExpenseKey(booking.ID))
		return ferr
	})
	if err != nil {
		return st, fmt.Errorf("look up refund expense: %w", err)
	}
	if st.record, err = s.getRecord(ctx, booking.ID); err != nil {
		return st, err
	}
	return st, nil
}

// existingOutcome reports a checked-out booking without writing anything.
func (s *Saga) existingOutcome(ctx context.Context, booking occupancy.Booking, concurrentLoss bool) (*Result, error) {
	st, err := s.inspect(ctx, booking)
	if err != nil {
		return nil, err
	}

	// Only a journalled partial is reported as such. A settlement still in
	// flight has no record yet and reads as settled.
	journalledPartial := st.record != nil && st.record.State == occupancy.SettlementPartial
	refundWanted := st.refund != nil || (st.record != nil && st.record.RefundRequested)
	incomplete := refundWanted && booking.SecurityDeposit.IsPositive() && (st.refund == nil || st.expense == nil)
	if incomplete && journalledPartial && !concurrentLoss {
		p := &Partial{
			Booking:        booking,
			CompletedSteps: []occupancy.SettlementStep{occupancy.StepStatus},
			FailedStep:     occupancy.StepRefundPayment,
			RefundPayment:  st.refund,
			Err:            occupancy.ErrPartialSettlement,
		}
		if st.refund != nil {
			p.CompletedSteps = append(p.CompletedSteps, occupancy.StepRefundPayment)
			p.FailedStep = occupancy.StepRefundExpense
		}
		if st.record.FailedStep == p.FailedStep {
			p.Unknown = st.record.Unknown
			if st.record.Error != "" {
				p.Err = fmt.Errorf("%w: %s", occupancy.ErrPartialSettlement, st.record.Error)
			}
		}
		return partialResult(p), nil
	}

	settled := &Settled{
		Booking:        booking,
		RefundPayment:  st.refund,
		Expense:        st.expense,
		AlreadySettled: true,
		ConcurrentLoss: concurrentLoss,
	}
	settled.Reconciliation = s.reconcile(ctx, booking, s.logger())
	return settledResult(settled), nil
}

// afterLostCommit handles a conditional status write that found the booking
// no longer CHECKED_IN.
func (s *Saga) afterLostCommit(ctx context.Context, req Request, log *slog.Logger) (*Result, error) {
	current, err := s.loadBooking(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("reload booking after lost commit: %w", err)
	}
	if current.Status == occupancy.StatusCheckedOut {
		log.Info("lost checkout race, treating as settled", "error", occupancy.ErrConcurrentSettlementLoss)
		return s.existingOutcome(ctx, *current, true)
	}
	log.Info("booking changed during checkout", "status", current.Status)
	return rejectedResult(&occupancy.InvalidTransitionError{From: current.Status, To: occupancy.StatusCheckedOut}), nil
}

// =============================================================================
// STEPS
// =============================================================================

func (s *Saga) ensureRefund(ctx context.Context, booking occupancy.Booking, operatorID occupancy.OperatorID) (*occupancy.Payment, error) {
	existing, err := s.findRefund(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	refund := occupancy.Payment{
		ID:             occupancy.NewPaymentID(),
		BookingID:      booking.ID,
		ResidentID:     booking.ResidentID,
		Amount:         booking.SecurityDeposit,
		Type:           occupancy.PaymentRefund,
		Status:         occupancy.PaymentPaid,
		Method:         "auto",
		PaidAt:         &now,
		Notes:          occupancy.AutoCheckoutRefundNote,
		Source:         occupancy.SourceAutoCheckoutRefund,
		IdempotencyKey: occupancy.RefundKey(booking.ID),
		CreatedBy:      operatorID,
		CreatedAt:      now,
	}
	err = s.write(ctx, func(ctx context.Context) error {
		return s.Store.CreatePayment(ctx, refund)
	})
	if errors.Is(err, occupancy.ErrDuplicateIdempotencyKey) {
		return s.findRefund(ctx, booking.ID)
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (s *Saga) ensureExpense(ctx context.Context, booking occupancy.Booking, operatorID occupancy.OperatorID) (*occupancy.Expense, error) {
	key := occupancy.RefundExpenseKey(booking.ID)
	var found *occupancy.Expense
	err := s.write(ctx, func(ctx context.Context) error {
		var ferr error
		found, ferr = s.Store.FindExpenseByKey(ctx, key)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	now := s.now()
	expense := occupancy.Expense{
		ID:         occupancy.NewExpenseID(),
		FacilityID: booking.FacilityID,
		Title:      "Security deposit refund",
		Description: fmt.Sprintf("Security deposit refund for resident %s, room %s (booking %s)",
			booking.ResidentID, booking.RoomID, booking.ID),
		Amount:         booking.SecurityDeposit,
		Category:       occupancy.ExpenseDepositRefund,
		Status:         occupancy.ExpensePaid,
		SubmittedBy:    operatorID,
		Date:           now,
		IdempotencyKey: key,
		CreatedAt:      now,
	}
	err = s.write(ctx, func(ctx context.Context) error {
		return s.Store.CreateExpense(ctx, expense)
	})
	if errors.Is(err, occupancy.ErrDuplicateIdempotencyKey) {
		err = s.write(ctx, func(ctx context.Context) error {
			var ferr error
			found, ferr = s.Store.FindExpenseByKey(ctx, key)
			return ferr
		})
		return found, err
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// findRefund looks the checkout refund up by key, then falls back to the
// booking's payments for refunds recorded without a key. A key held by any
// other payment is a conflict, never a refund.
func (s *Saga) findRefund(ctx context.Context, id occupancy.BookingID) (*occupancy.Payment, error) {
	var found *occupancy.Payment
	err := s.write(ctx, func(ctx context.Context) error {
		key := occupancy.RefundKey(id)
		p, err := s.Store.FindPaymentByKey(ctx, key)
		if err != nil {
			return err
		}
		if p != nil {
			if p.BookingID != id || !p.IsAutoCheckoutRefund() {
				return fmt.Errorf("payment %s (%s, source %q) holds %s: %w",
					p.ID, p.Type, p.Source, key, occupancy.ErrRefundKeyConflict)
			}
			found = p
			return nil
		}
		payments, err := s.Store.ListPayments(ctx, id)
		if err != nil {
			return err
		}
		for i := range payments {
			p := payments[i]
			if isLegacyCheckoutRefund(p) {
				found = &p
				return nil
			}
		}
		return nil
	})
	return found, err
}

// isLegacyCheckoutRefund matches refunds written at checkout before keys and
// sources existed. Manual entries never match, whatever their notes say.
func isLegacyCheckoutRefund(p occupancy.Payment) bool {
	if p.IsAutoCheckoutRefund() {
		return true
	}
	return p.Type == occupancy.PaymentRefund &&
		p.Source != occupancy.SourceManual &&
		strings.Contains(p.Notes, occupancy.AutoCheckoutRefundNote)
}

func (s *Saga) partial(
	ctx context.Context,
	req Request,
	log *slog.Logger,
	booking occupancy.Booking,
	completed []occupancy.SettlementStep,
	failed occupancy.SettlementStep,
	refund *occupancy.Payment,
	err error,
) *Result {
	p := &Partial{
		Booking:        booking,
		CompletedSteps: completed,
		FailedStep:     failed,
		RefundPayment:  refund,
		Err:            err,
	}
	if isUnknownOutcome(err) {
		p.Unknown = true
		p.Err = fmt.Errorf("%w: %w", occupancy.ErrUnknownOutcome, err)
	}
	log.Error("partial settlement, operator follow-up required",
		"completed", completed, "failed_step", failed, "unknown", p.Unknown, "error", err)

	s.journalPartial(context.WithoutCancel(ctx), req, p)
	s.notify(ctx, checkoutNotification(s.Config.Recipients, booking, refund, p), log)
	return partialResult(p)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Saga) write(ctx context.Context, fn func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(ctx, s.Config.StepTimeout)
	defer cancel()
	return fn(wctx)
}

func (s *Saga) loadBooking(ctx context.Context, id occupancy.BookingID) (*occupancy.Booking, error) {
	var b *occupancy.Booking
	err := s.write(ctx, func(ctx context.Context) error {
		var gerr error
		b, gerr = s.Store.GetBooking(ctx, id)
		return gerr
	})
	return b, err
}

func (s *Saga) getRecord(ctx context.Context, id occupancy.BookingID) (*occupancy.SettlementRecord, error) {
	var rec *occupancy.SettlementRecord
	err := s.write(ctx, func(ctx context.Context) error {
		var gerr error
		rec, gerr = s.Store.GetSettlement(ctx, id)
		return gerr
	})
	if err != nil {
		return nil, fmt.Errorf("load settlement record: %w", err)
	}
	return rec, nil
}

func (s *Saga) reconcile(ctx context.Context, booking occupancy.Booking, log *slog.Logger) *occupancy.Reconciliation {
	var payments []occupancy.Payment
	err := s.write(ctx, func(ctx context.Context) error {
		var lerr error
		payments, lerr = s.Store.ListPayments(ctx, booking.ID)
		return lerr
	})
	if err != nil {
		log.Warn("reconciliation unavailable", "error", err)
		return nil
	}
	r := occupancy.Reconcile(booking, payments)
	return &r
}

// finish journals and caches a complete settlement. Both are best-effort.
func (s *Saga) finish(ctx context.Context, operatorID occupancy.OperatorID, refundRequested bool, settled *Settled, log *slog.Logger) {
	completed := []occupancy.SettlementStep{occupancy.StepStatus}
	if settled.RefundPayment != nil {
		completed = append(completed, occupancy.StepRefundPayment)
	}
	if settled.Expense != nil {
		completed = append(completed, occupancy.StepRefundExpense)
	}
	rec := occupancy.SettlementRecord{
		BookingID:       settled.Booking.ID,
		OperatorID:      operatorID,
		RefundRequested: refundRequested,
		State:           occupancy.SettlementSettled,
		Completed:       completed,
		UpdatedAt:       s.now(),
	}
	if err := s.write(ctx, func(ctx context.Context) error { return s.Store.SaveSettlement(ctx, rec) }); err != nil {
		log.Warn("settlement journal write failed", "error", err)
	}

	if s.Cache != nil {
		if err := s.Cache.Store(ctx, settled.Booking.ID, *settled); err != nil {
			log.Warn("settlement cache write failed", "error", err)
		}
	}
}

func (s *Saga) journalPartial(ctx context.Context, req Request, p *Partial) {
	rec := occupancy.SettlementRecord{
		BookingID:       p.Booking.ID,
		OperatorID:      req.OperatorID,
		RefundRequested: req.RefundSecurity,
		State:           occupancy.SettlementPartial,
		Completed:       p.CompletedSteps,
		FailedStep:      p.FailedStep,
		Unknown:         p.Unknown,
		UpdatedAt:       s.now(),
	}
	if p.Err != nil {
		rec.Error = p.Err.Error()
	}
	if err := s.write(ctx, func(ctx context.Context) error { return s.Store.SaveSettlement(ctx, rec) }); err != nil {
		s.logger().Warn("settlement journal write failed", "booking_id", p.Booking.ID, "error", err)
	}
}

func (s *Saga) cached(ctx context.Context, id occupancy.BookingID, log *slog.Logger) *Settled {
	if s.Cache == nil {
		return nil
	}
	hit, err := s.Cache.Load(ctx, id)
	if err != nil {
		log.Warn("settlement cache read failed", "error", err)
		return nil
	}
	if hit == nil {
		return nil
	}
	hit.AlreadySettled = true
	hit.ConcurrentLoss = false
	return hit
}

// Forget drops the cached outcome of a booking whose payments changed, so the
// next replay carries a fresh reconciliation. Failures are logged.
func (s *Saga) Forget(ctx context.Context, id occupancy.BookingID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, id); err != nil {
		s.logger().Warn("settlement cache invalidation failed", "booking_id", id, "error", err)
	}
}

func (s *Saga) notify(ctx context.Context, n occupancy.Notification, log *slog.Logger) {
	if s.Notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, s.Config.NotifyTimeout)
	defer cancel()
	if err := s.Notifier.Notify(nctx, n); err != nil {
		log.Warn("checkout notification not delivered", "error", fmt.Errorf("%w: %w", occupancy.ErrNotificationFailed, err))
	}
}

func (s *Saga) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Saga) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func isUnknownOutcome(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, occupancy.ErrUnknownOutcome)
}
