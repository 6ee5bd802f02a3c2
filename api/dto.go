/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Money is always a
  decimal string ("5000.00") so clients never see float rounding.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  decodeAndValidate, which reports failures by JSON field name.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/settlement"
)

const dateLayout = "2006-01-02"

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID              string   `json:"id"`
	ResidentID      string   `json:"resident_id"`
	RoomID          string   `json:"room_id"`
	FacilityID      string   `json:"facility_id,omitempty"`
	Status          string   `json:"status"`
	CheckInDate     string   `json:"check_in_date"`
	CheckOutDate    *string  `json:"check_out_date,omitempty"`
	MonthlyAmount   string   `json:"monthly_amount"`
	SecurityDeposit string   `json:"security_deposit"`
	NextStatuses    []string `json:"next_statuses"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

// CreateBookingRequest is the request to create a booking. New bookings
// start PENDING.
type CreateBookingRequest struct {
	ResidentID      string `json:"resident_id" validate:"required,max=64"`
	RoomID          string `json:"room_id" validate:"required,max=64"`
	FacilityID      string `json:"facility_id" validate:"max=64"`
	CheckInDate     string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate    string `json:"check_out_date" validate:"omitempty,datetime=2006-01-02"`
	MonthlyAmount   string `json:"monthly_amount" validate:"required,numeric"`
	SecurityDeposit string `json:"security_deposit" validate:"omitempty,numeric"`
}

// TransitionRequest moves a booking to Status. CHECKED_OUT is only reachable
// through the checkout endpoint.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED CHECKED_IN CHECKED_OUT CANCELLED"`
}

// TransitionsDTO lists where a booking can go next.
type TransitionsDTO struct {
	BookingID string   `json:"booking_id"`
	Status    string   `json:"status"`
	Next      []string `json:"next"`
	Terminal  bool     `json:"terminal"`
}

// =============================================================================
// PAYMENTS & LEDGER
// =============================================================================

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID             string `json:"id"`
	BookingID      string `json:"booking_id"`
	ResidentID     string `json:"resident_id,omitempty"`
	Amount         string `json:"amount"`
	Type           string `json:"payment_type"`
	Status         string `json:"status"`
	Method         string `json:"method,omitempty"`
	PaidAt         string `json:"paid_at,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Source         string `json:"source"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// RecordPaymentRequest records a payment against a booking. Status defaults
// to PAID. Keys starting with "checkout-" belong to the settlement.
type RecordPaymentRequest struct {
	Amount         string `json:"amount" validate:"required,numeric"`
	Type           string `json:"payment_type" validate:"required,oneof=rent security_deposit refund other"`
	Status         string `json:"status" validate:"omitempty,oneof=PENDING PAID PARTIAL OVERDUE"`
	Method         string `json:"method" validate:"max=32"`
	PaidAt         string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Notes          string `json:"notes" validate:"max=500"`
	IdempotencyKey string `json:"idempotency_key" validate:"max=128,unreserved_key"`
}

// UpdatePaymentStatusRequest changes a payment's status. A PAID status
// without paid_at is stamped with the current time.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING PAID PARTIAL OVERDUE"`
	PaidAt string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

// ReconciliationDTO is the derived ledger of a booking.
type ReconciliationDTO struct {
	BookingID       string `json:"booking_id"`
	TotalPayable    string `json:"total_payable"`
	TotalPaid       string `json:"total_paid"`
	Balance         string `json:"balance"`
	ProgressPercent int64  `json:"progress_percent"`
	Overpaid        bool   `json:"overpaid"`
}

// LedgerDTO is the response of GET /bookings/{id}/ledger.
type LedgerDTO struct {
	Booking        BookingDTO        `json:"booking"`
	Payments       []PaymentDTO      `json:"payments"`
	Reconciliation ReconciliationDTO `json:"reconciliation"`
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseDTO represents an expense in API responses.
type ExpenseDTO struct {
	ID             string `json:"id"`
	FacilityID     string `json:"facility_id,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Amount         string `json:"amount"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	SubmittedBy    string `json:"submitted_by,omitempty"`
	Date           string `json:"date"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// CheckoutRequest is the optional body of POST /bookings/{id}/checkout.
type CheckoutRequest struct {
	RefundSecurity bool `json:"refund_security"`
}

// SettlementResponse reports a settled or partial checkout.
type SettlementResponse struct {
	Outcome        string             `json:"outcome"`
	Booking        BookingDTO         `json:"booking"`
	RefundPayment  *PaymentDTO        `json:"refund_payment,omitempty"`
	Expense        *ExpenseDTO        `json:"expense,omitempty"`
	Reconciliation *ReconciliationDTO `json:"reconciliation,omitempty"`
	AlreadySettled bool               `json:"already_settled,omitempty"`
	ConcurrentLoss bool               `json:"concurrent_loss,omitempty"`

	// Partial outcomes only.
	CompletedSteps []string `json:"completed_steps,omitempty"`
	FailedStep     string   `json:"failed_step,omitempty"`
	Unknown        bool     `json:"unknown,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// SettlementRecordDTO is one entry of the operator worklist.
type SettlementRecordDTO struct {
	BookingID       string   `json:"booking_id"`
	OperatorID      string   `json:"operator_id,omitempty"`
	RefundRequested bool     `json:"refund_requested"`
	State           string   `json:"state"`
	Completed       []string `json:"completed_steps"`
	FailedStep      string   `json:"failed_step,omitempty"`
	Unknown         bool     `json:"unknown,omitempty"`
	Error           string   `json:"error,omitempty"`
	UpdatedAt       string   `json:"updated_at"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("unreserved_key", func(fl validator.FieldLevel) bool {
		return !occupancy.IsReservedKey(fl.Field().String())
	})
	return v
}

// validationDetails flattens validator errors into "field: rule" strings.
func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			out[i] = fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param())
		} else {
			out[i] = fmt.Sprintf("%s: %s", fe.Field(), fe.Tag())
		}
	}
	return out
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBookingDTO(b occupancy.Booking) BookingDTO {
	dto := BookingDTO{
		ID:              string(b.ID),
		ResidentID:      string(b.ResidentID),
		RoomID:          string(b.RoomID),
		FacilityID:      string(b.FacilityID),
		Status:          string(b.Status),
		CheckInDate:     b.CheckInDate.Format(dateLayout),
		MonthlyAmount:   b.MonthlyAmount.StringFixed(2),
		SecurityDeposit: b.SecurityDeposit.StringFixed(2),
		NextStatuses:    statusStrings(occupancy.NextStatuses(b.Status)),
		CreatedAt:       formatTimestamp(b.CreatedAt),
		UpdatedAt:       formatTimestamp(b.UpdatedAt),
	}
	if b.CheckOutDate != nil {
		out := b.CheckOutDate.Format(dateLayout)
		dto.CheckOutDate = &out
	}
	return dto
}

func toPaymentDTO(p occupancy.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:             string(p.ID),
		BookingID:      string(p.BookingID),
		ResidentID:     string(p.ResidentID),
		Amount:         p.Amount.StringFixed(2),
		Type:           string(p.Type),
		Status:         string(p.Status),
		Method:         p.Method,
		Notes:          p.Notes,
		Source:         string(p.Source),
		IdempotencyKey: p.IdempotencyKey,
		CreatedBy:      string(p.CreatedBy),
		CreatedAt:      formatTimestamp(p.CreatedAt),
	}
	if dto.Source == "" {
		dto.Source = string(occupancy.SourceManual)
	}
	if p.PaidAt != nil {
		dto.PaidAt = p.PaidAt.Format(time.RFC3339)
	}
	return dto
}

func toPaymentDTOs(payments []occupancy.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toExpenseDTO(e occupancy.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:             string(e.ID),
		FacilityID:     string(e.FacilityID),
		Title:          e.Title,
		Description:    e.Description,
		Amount:         e.Amount.StringFixed(2),
		Category:       string(e.Category),
		Status:         string(e.Status),
		SubmittedBy:    string(e.SubmittedBy),
		Date:           e.Date.Format(dateLayout),
		IdempotencyKey: e.IdempotencyKey,
	}
}

func toReconciliationDTO(r occupancy.Reconciliation) ReconciliationDTO {
	return ReconciliationDTO{
		BookingID:       string(r.BookingID),
		TotalPayable:    r.TotalPayable.StringFixed(2),
		TotalPaid:       r.TotalPaid.StringFixed(2),
		Balance:         r.Balance.StringFixed(2),
		ProgressPercent: r.ProgressPercent,
		Overpaid:        r.Overpaid(),
	}
}

func toSettlementRecordDTO(rec occupancy.SettlementRecord) SettlementRecordDTO {
	return SettlementRecordDTO{
		BookingID:       string(rec.BookingID),
		OperatorID:      string(rec.OperatorID),
		RefundRequested: rec.RefundRequested,
		State:           string(rec.State),
		Completed:       stepStrings(rec.Completed),
		FailedStep:      string(rec.FailedStep),
		Unknown:         rec.Unknown,
		Error:           rec.Error,
		UpdatedAt:       formatTimestamp(rec.UpdatedAt),
	}
}

func toSettledResponse(s *settlement.Settled) SettlementResponse {
	resp := SettlementResponse{
		Outcome:        string(settlement.OutcomeSettled),
		Booking:        toBookingDTO(s.Booking),
		AlreadySettled: s.AlreadySettled,
		ConcurrentLoss: s.ConcurrentLoss,
	}
	if s.RefundPayment != nil {
		p := toPaymentDTO(*s.RefundPayment)
		resp.RefundPayment = &p
	}
	if s.Expense != nil {
		e := toExpenseDTO(*s.Expense)
		resp.Expense = &e
	}
	if s.Reconciliation != nil {
		r := toReconciliationDTO(*s.Reconciliation)
		resp.Reconciliation = &r
	}
	return resp
}

func toPartialResponse(p *settlement.Partial) SettlementResponse {
	resp := SettlementResponse{
		Outcome:        string(settlement.OutcomePartial),
		Booking:        toBookingDTO(p.Booking),
		CompletedSteps: stepStrings(p.CompletedSteps),
		FailedStep:     string(p.FailedStep),
		Unknown:        p.Unknown,
	}
	if p.Err != nil {
		resp.Error = p.Err.Error()
	}
	if p.RefundPayment != nil {
		pay := toPaymentDTO(*p.RefundPayment)
		resp.RefundPayment = &pay
	}
	return resp
}

func statusStrings(statuses []occupancy.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func stepStrings(steps []occupancy.SettlementStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
