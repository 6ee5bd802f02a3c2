/*
store.go - Persistence interfaces for bookings, payments, expenses and settlements

PURPOSE:
  Defines the boundary between the domain logic and the database.
  Implementations live in:
  - occupancy/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL

CONDITIONAL STATUS WRITE:
  BookingStore.TransitionStatus is the only way a booking's status changes.
  It writes only if the stored status still equals "from", otherwise it
  returns ErrStaleStatus. This is what makes two concurrent checkouts of the
  same booking safe: exactly one of them wins.

IDEMPOTENCY:
  Payments and expenses carry an optional idempotency key. A second write with
  the same key is rejected with ErrDuplicateIdempotencyKey. The settlement saga
  derives its keys from the booking ID so a retry can never double-refund.

NO DELETES:
  Bookings, payments and expenses are never deleted.

SEE ALSO:
  - settlement/saga.go: Main consumer
*/
package occupancy

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// BOOKINGS
// =============================================================================

type BookingFilter struct {
	Status     *BookingStatus
	ResidentID *ResidentID
	FacilityID *FacilityID
}

type BookingStore interface {
	CreateBooking(ctx context.Context, b Booking) error

	// GetBooking returns ErrBookingNotFound when id is unknown.
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)

	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)

	// TransitionStatus writes next.Status, next.UpdatedAt and next.CheckOutDate
	// only if the stored status equals from. Returns ErrStaleStatus otherwise.
	TransitionStatus(ctx context.Context, next Booking, from BookingStatus) error
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentStore interface {
	// CreatePayment returns ErrDuplicateIdempotencyKey if the key exists.
	CreatePayment(ctx context.Context, p Payment) error

	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)

	// ListPayments returns the booking's payments, oldest first.
	ListPayments(ctx context.Context, bookingID BookingID) ([]Payment, error)

	// FindPaymentByKey returns (nil, nil) when no payment carries the key.
	FindPaymentByKey(ctx context.Context, idempotencyKey string) (*Payment, error)

	UpdatePaymentStatus(ctx context.Context, id PaymentID, status PaymentStatus, paidAt *time.Time) error
}

// =============================================================================
// EXPENSES
// =============================================================================

type ExpenseFilter struct {
	FacilityID *FacilityID
	Category   *ExpenseCategory
}

type ExpenseStore interface {
	// CreateExpense returns ErrDuplicateIdempotencyKey if the key exists.
	CreateExpense(ctx context.Context, e Expense) error

	// FindExpenseByKey returns (nil, nil) when no expense carries the key.
	FindExpenseByKey(ctx context.Context, idempotencyKey string) (*Expense, error)

	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
}

// =============================================================================
// SETTLEMENT JOURNAL
// =============================================================================

// SettlementStep names one write of the checkout settlement.
type SettlementStep string

const (
	StepStatus        SettlementStep = "status"
	StepRefundPayment SettlementStep = "refund_payment"
	StepRefundExpense SettlementStep = "refund_expense"
)

type SettlementState string

const (
	SettlementSettled SettlementState = "settled"
	SettlementPartial SettlementState = "partial"
)

// SettlementRecord is the journal entry an operator works from when a
// settlement needs follow-up.
type SettlementRecord struct {
	BookingID       BookingID
	OperatorID      OperatorID
	RefundRequested bool
	State           SettlementState
	Completed       []SettlementStep
	FailedStep      SettlementStep
	Unknown         bool
	Error           string
	UpdatedAt       time.Time
}

// SettlementLog persists one record per booking. Saving replaces the previous record.
type SettlementLog interface {
	SaveSettlement(ctx context.Context, rec SettlementRecord) error

	// GetSettlement returns (nil, nil) when the booking has no record.
	GetSettlement(ctx context.Context, bookingID BookingID) (*SettlementRecord, error)

	// ListSettlements returns records in the given state, or all when state is empty.
	ListSettlements(ctx context.Context, state SettlementState) ([]SettlementRecord, error)
}

// =============================================================================
// COMBINED STORE
// =============================================================================

// Store is everything the saga and the API need.
type Store interface {
	BookingStore
	PaymentStore
	ExpenseStore
	SettlementLog
}

// =============================================================================
// NOTIFIER
// =============================================================================

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// =============================================================================
// IDEMPOTENCY KEYS
// =============================================================================

// ReservedKeyPrefix starts every idempotency key the settlement writes.
// Manually recorded payments may not use it.
const ReservedKeyPrefix = "checkout-"

// IsReservedKey reports whether key belongs to the settlement's key space.
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, ReservedKeyPrefix)
}

// RefundKey is the idempotency key of the checkout refund payment for a booking.
func RefundKey(id BookingID) string {
	return fmt.Sprintf("%srefund:%s", ReservedKeyPrefix, id)
}

// RefundExpenseKey is the idempotency key of the checkout refund expense for a booking.
func RefundExpenseKey(id BookingID) string {
	return fmt.Sprintf("%sexpense:%s", ReservedKeyPrefix, id)
}
