/*
Package occupancy provides the core booking and settlement domain.

PURPOSE:
  This package contains the types and pure algorithms behind a resident's
  stay: the booking lifecycle, the payments collected against it, and the
  expense entries an operator records. Everything here is storage-agnostic;
  persistence goes through the interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An exact decimal amount (never float64)
  - Booking: One resident's occupancy of one room
  - Payment: One financial movement tied to a booking
  - Expense: An operational outlay recorded by an operator
  - Typed IDs: BookingID, PaymentID, ExpenseID cannot be mixed up

DESIGN PRINCIPLES:
  1. Precision: Money wraps decimal.Decimal
  2. Type Safety: Strong typing for IDs and enumerations
  3. Structured origin: Payment.Source replaces free-text markers

USAGE:
  booking := occupancy.Booking{
      ID:              occupancy.NewBookingID(),
      ResidentID:      "res-42",
      RoomID:          "room-7",
      Status:          occupancy.StatusPending,
      MonthlyAmount:   occupancy.NewMoney(10000),
      SecurityDeposit: occupancy.NewMoney(5000),
  }

SEE ALSO:
  - lifecycle.go: Booking state machine
  - ledger.go: Reconciliation of payments against a booking
  - store.go: Persistence interfaces
*/
package occupancy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact decimal amount
// =============================================================================

type Money struct {
	decimal.Decimal
}

func NewMoney(value int64) Money {
	return Money{decimal.NewFromInt(value)}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// ParseMoney parses a decimal string such as "5000" or "1250.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Money{d}, nil
}

func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(b Money) Money  { return Money{m.Decimal.Add(b.Decimal)} }
func (m Money) Sub(b Money) Money  { return Money{m.Decimal.Sub(b.Decimal)} }
func (m Money) Abs() Money         { return Money{m.Decimal.Abs()} }
func (m Money) Neg() Money         { return Money{m.Decimal.Neg()} }
func (m Money) Equal(b Money) bool { return m.Decimal.Equal(b.Decimal) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BookingID string
type PaymentID string
type ExpenseID string
type ResidentID string
type RoomID string
type FacilityID string
type OperatorID string

func NewBookingID() BookingID { return BookingID(uuid.NewString()) }
func NewPaymentID() PaymentID { return PaymentID(uuid.NewString()) }
func NewExpenseID() ExpenseID { return ExpenseID(uuid.NewString()) }

// =============================================================================
// BOOKING
// =============================================================================

type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusCheckedIn  BookingStatus = "CHECKED_IN"
	StatusCheckedOut BookingStatus = "CHECKED_OUT"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// Booking is one resident's occupancy of one room.
// SecurityDeposit is fixed when the booking is created.
type Booking struct {
	ID         BookingID
	ResidentID ResidentID
	RoomID     RoomID
	FacilityID FacilityID
	Status     BookingStatus

	CheckInDate  time.Time
	CheckOutDate *time.Time

	MonthlyAmount   Money
	SecurityDeposit Money

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stay returns the booking's occupancy period.
func (b Booking) Stay() Stay {
	return Stay{CheckIn: b.CheckInDate, CheckOut: b.CheckOutDate}
}

// Validate checks the fields a new booking must carry.
func (b Booking) Validate() error {
	if b.ResidentID == "" || b.RoomID == "" {
		return &ValidationError{Field: "resident_id/room_id", Message: "resident and room are required"}
	}
	if b.MonthlyAmount.IsNegative() {
		return &ValidationError{Field: "monthly_amount", Message: "must not be negative"}
	}
	if b.SecurityDeposit.IsNegative() {
		return &ValidationError{Field: "security_deposit", Message: "must not be negative"}
	}
	return b.Stay().Validate()
}

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentType string

const (
	PaymentRent            PaymentType = "rent"
	PaymentSecurityDeposit PaymentType = "security_deposit"
	PaymentRefund          PaymentType = "refund"
	PaymentOther           PaymentType = "other"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// PaymentSource records where a payment came from.
type PaymentSource string

const (
	SourceManual             PaymentSource = "manual"
	SourceInvoice            PaymentSource = "invoice"
	SourceAutoCheckoutRefund PaymentSource = "auto_checkout_refund"
)

// AutoCheckoutRefundNote is the human-readable note on refunds created at checkout.
const AutoCheckoutRefundNote = "AUTO_CHECKOUT_REFUND"

type Payment struct {
	ID         PaymentID
	BookingID  BookingID
	ResidentID ResidentID

	// Amount may be negative for refunds recorded before the refund type existed.
	Amount Money
	Type   PaymentType
	Status PaymentStatus
	Method string
	PaidAt *time.Time
	Notes  string

	Source         PaymentSource
	IdempotencyKey string

	CreatedBy OperatorID
	CreatedAt time.Time
}

// IsAutoCheckoutRefund reports whether the payment was written by the checkout settlement.
func (p Payment) IsAutoCheckoutRefund() bool {
	return p.Type == PaymentRefund && p.Source == SourceAutoCheckoutRefund
}

func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentRent, PaymentSecurityDeposit, PaymentRefund, PaymentOther:
		return true
	}
	return false
}

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentPartial, PaymentOverdue:
		return true
	}
	return false
}

// =============================================================================
// EXPENSE
// =============================================================================

type ExpenseCategory string

const (
	ExpenseMaintenance ExpenseCategory = "maintenance"
	ExpenseUtilities   ExpenseCategory = "utilities"
	ExpenseSupplies    ExpenseCategory = "supplies"
	ExpenseSalary      ExpenseCategory = "salary"
	ExpenseOther       ExpenseCategory = "other"

	// ExpenseDepositRefund is reserved for refund pass-through entries written at checkout.
	ExpenseDepositRefund ExpenseCategory = "deposit_refund"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "PENDING"
	ExpenseApproved ExpenseStatus = "APPROVED"
	ExpenseRejected ExpenseStatus = "REJECTED"
	ExpensePaid     ExpenseStatus = "PAID"
)

type Expense struct {
	ID          ExpenseID
	FacilityID  FacilityID
	Title       string
	Description string
	Amount      Money
	Category    ExpenseCategory
	Status      ExpenseStatus
	SubmittedBy OperatorID
	Date        time.Time

	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// NOTIFICATION
// =============================================================================

// Notification is a message for interested parties. Delivery is best-effort.
type Notification struct {
	Recipients []string
	Subject    string
	Body       string

	// BookingID lets event-based gateways key their messages.
	BookingID BookingID
	Event     string
}
