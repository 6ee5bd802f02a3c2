/*
handlers.go - HTTP API handlers for bookings, payments and checkout settlement

PURPOSE:
  Exposes the occupancy engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the occupancy and settlement packages.

ENDPOINTS:
  Bookings:
    POST   /api/bookings                              Create booking (PENDING)
    GET    /api/bookings?status=&facility_id=         List bookings
    GET    /api/bookings/{id}                         Get booking
    GET    /api/bookings/{id}/transitions             Allowed next statuses
    POST   /api/bookings/{id}/transitions             Move booking (not to CHECKED_OUT)
    GET    /api/bookings/{id}/ledger                  Payments + reconciliation

  Payments:
    GET    /api/bookings/{id}/payments                List payments
    POST   /api/bookings/{id}/payments                Record payment
    PATCH  /api/payments/{id}/status                  Update payment status

  Checkout:
    POST   /api/bookings/{id}/checkout                Settle checkout
    POST   /api/bookings/{id}/checkout/resume         Finish a partial settlement
    POST   /api/bookings/{id}/checkout/complete-expense
                                                      Record the missing refund expense

  Operations:
    GET    /api/settlements?state=partial             Settlement journal / worklist
    GET    /api/expenses?facility_id=&category=       List expenses

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid operator token (see auth.go)
  - 404: Booking or payment not found
  - 409: Invalid transition, status changed concurrently, nothing to resume
  - 202: Checkout committed but a later step needs follow-up
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/occupancy-engine/logging"
	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/settlement"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store occupancy.Store
	Saga  *settlement.Saga
	Clock func() time.Time

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over store, settling checkouts with saga.
func NewHandler(store occupancy.Store, saga *settlement.Saga) *Handler {
	return &Handler{
		Store:    store,
		Saga:     saga,
		Clock:    time.Now,
		validate: newValidator(),
	}
}

func (h *Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking creates a new PENDING booking.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	checkIn, _ := time.Parse(dateLayout, req.CheckInDate)
	var checkOut *time.Time
	if req.CheckOutDate != "" {
		t, _ := time.Parse(dateLayout, req.CheckOutDate)
		checkOut = &t
	}
	monthly, err := occupancy.ParseMoney(req.MonthlyAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly_amount", err)
		return
	}
	deposit := occupancy.NewMoney(0)
	if req.SecurityDeposit != "" {
		if deposit, err = occupancy.ParseMoney(req.SecurityDeposit); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid security_deposit", err)
			return
		}
	}

	now := h.now()
	b := occupancy.Booking{
		ID:              occupancy.NewBookingID(),
		ResidentID:      occupancy.ResidentID(req.ResidentID),
		RoomID:          occupancy.RoomID(req.RoomID),
		FacilityID:      occupancy.FacilityID(req.FacilityID),
		Status:          occupancy.StatusPending,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		MonthlyAmount:   monthly,
		SecurityDeposit: deposit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking", err)
		return
	}

	if err := h.Store.CreateBooking(r.Context(), b); err != nil {
		writeDomainError(w, "Failed to create booking", err)
		return
	}

	logging.FromContext(r.Context()).Info("booking created", "booking_id", b.ID, "room_id", b.RoomID)
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

// ListBookings returns bookings, optionally filtered by status and facility.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	var filter occupancy.BookingFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status := occupancy.BookingStatus(s)
		if !occupancy.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "Unknown status", fmt.Errorf("status %q", s))
			return
		}
		filter.Status = &status
	}
	if f := r.URL.Query().Get("facility_id"); f != "" {
		facility := occupancy.FacilityID(f)
		filter.FacilityID = &facility
	}

	bookings, err := h.Store.ListBookings(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*b))
}

// GetTransitions returns the statuses the booking may move to.
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TransitionsDTO{
		BookingID: string(b.ID),
		Status:    string(b.Status),
		Next:      statusStrings(occupancy.NextStatuses(b.Status)),
		Terminal:  occupancy.IsTerminal(b.Status),
	})
}

// TransitionBooking applies a lifecycle transition other than checkout.
func (h *Handler) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	target := occupancy.BookingStatus(req.Status)
	if target == occupancy.StatusCheckedOut {
		writeError(w, http.StatusBadRequest, "Checkout must use POST /bookings/{id}/checkout", nil)
		return
	}

	b, ok := h.loadBooking(w, r)
	if !ok {
		return
	}

	next, err := occupancy.RequestTransition(*b, target, h.now())
	if err != nil {
		writeDomainError(w, "Transition not allowed", err)
		return
	}
	if err := h.Store.TransitionStatus(r.Context(), next, b.Status); err != nil {
		writeDomainError(w, "Failed to update booking", err)
		return
	}

	logging.FromContext(r.Context()).Info("booking transitioned", "booking_id", b.ID, "from", b.Status, "to", target)
	writeJSON(w, http.StatusOK, toBookingDTO(next))
}

// GetLedger returns the booking's payments and reconciliation.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), b.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, LedgerDTO{
		Booking:        toBookingDTO(*b),
		Payments:       toPaymentDTOs(payments),
		Reconciliation: toReconciliationDTO(occupancy.Reconcile(*b, payments)),
	})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns the payments recorded against a booking.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	b, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), b.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// RecordPayment records a manual payment. Repeating a request with the same
// idempotency_key returns the original payment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	amount, err := occupancy.ParseMoney(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be a positive decimal", err)
		return
	}

	b, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	now := h.now()
	status := occupancy.PaymentStatus(req.Status)
	if status == "" {
		status = occupancy.PaymentPaid
	}
	p := occupancy.Payment{
		ID:             occupancy.NewPaymentID(),
		BookingID:      b.ID,
		ResidentID:     b.ResidentID,
		Amount:         amount,
		Type:           occupancy.PaymentType(req.Type),
		Status:         status,
		Method:         req.Method,
		Notes:          req.Notes,
		Source:         occupancy.SourceManual,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      OperatorFromContext(ctx),
		CreatedAt:      now,
	}
	if req.PaidAt != "" {
		t, _ := time.Parse(dateLayout, req.PaidAt)
		p.PaidAt = &t
	} else if status == occupancy.PaymentPaid {
		p.PaidAt = &now
	}

	err = h.Store.CreatePayment(ctx, p)
	if errors.Is(err, occupancy.ErrDuplicateIdempotencyKey) {
		existing, ferr := h.Store.FindPaymentByKey(ctx, req.IdempotencyKey)
		if ferr != nil || existing == nil || existing.BookingID != b.ID {
			writeError(w, http.StatusConflict, "Idempotency key already used", err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentDTO(*existing))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record payment", err)
		return
	}

	if b.Status == occupancy.StatusCheckedOut {
		h.Saga.Forget(ctx, b.ID)
	}
	logging.FromContext(ctx).Info("payment recorded", "booking_id", b.ID, "payment_id", p.ID, "type", p.Type)
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// UpdatePaymentStatus changes a payment's status.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	id := occupancy.PaymentID(chi.URLParam(r, "id"))
	status := occupancy.PaymentStatus(req.Status)

	var paidAt *time.Time
	if req.PaidAt != "" {
		t, _ := time.Parse(dateLayout, req.PaidAt)
		paidAt = &t
	} else if status == occupancy.PaymentPaid {
		now := h.now()
		paidAt = &now
	}

	ctx := r.Context()
	if err := h.Store.UpdatePaymentStatus(ctx, id, status, paidAt); err != nil {
		writeDomainError(w, "Failed to update payment", err)
		return
	}
	p, err := h.Store.GetPayment(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get payment", err)
		return
	}
	// The booking is not loaded here; dropping a missing entry is harmless.
	h.Saga.Forget(ctx, p.BookingID)
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// =============================================================================
// CHECKOUT HANDLERS
// =============================================================================

// Checkout settles the booking: status commit, optional deposit refund and
// notification.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decodeAndValidate(w, r, &req, true) {
		return
	}
	ctx := r.Context()
	res, err := h.Saga.Settle(ctx, settlement.Request{
		BookingID:      occupancy.BookingID(chi.URLParam(r, "id")),
		RefundSecurity: req.RefundSecurity,
		OperatorID:     OperatorFromContext(ctx),
	})
	writeSettlement(w, res, err)
}

// ResumeCheckout finishes the remaining steps of a partial settlement.
func (h *Handler) ResumeCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.Saga.Resume(ctx, occupancy.BookingID(chi.URLParam(r, "id")), OperatorFromContext(ctx))
	writeSettlement(w, res, err)
}

// CompleteExpense records the refund expense when the refund payment exists
// but its expense does not.
func (h *Handler) CompleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.Saga.CompleteExpense(ctx, occupancy.BookingID(chi.URLParam(r, "id")), OperatorFromContext(ctx))
	writeSettlement(w, res, err)
}

// =============================================================================
// OPERATIONS HANDLERS
// =============================================================================

// ListSettlements returns the settlement journal, optionally by state.
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	state := occupancy.SettlementState(r.URL.Query().Get("state"))
	switch state {
	case "", occupancy.SettlementSettled, occupancy.SettlementPartial:
	default:
		writeError(w, http.StatusBadRequest, "Unknown settlement state", fmt.Errorf("state %q", state))
		return
	}

	records, err := h.Store.ListSettlements(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settlements", err)
		return
	}
	dtos := make([]SettlementRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toSettlementRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": dtos})
}

// ListExpenses returns expenses, optionally by facility and category.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	var filter occupancy.ExpenseFilter
	if f := r.URL.Query().Get("facility_id"); f != "" {
		facility := occupancy.FacilityID(f)
		filter.FacilityID = &facility
	}
	if c := r.URL.Query().Get("category"); c != "" {
		category := occupancy.ExpenseCategory(c)
		filter.Category = &category
	}

	expenses, err := h.Store.ListExpenses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}
	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadBooking(w http.ResponseWriter, r *http.Request) (*occupancy.Booking, bool) {
	id := occupancy.BookingID(chi.URLParam(r, "id"))
	b, err := h.Store.GetBooking(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get booking", err)
		return nil, false
	}
	return b, true
}

// decodeAndValidate reads a JSON body into dst and validates it. An empty
// body is accepted only when optional is set.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return false
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation",
			Details: validationDetails(err),
		})
		return false
	}
	return true
}

// writeSettlement maps a saga result: settled 200, partial 202, rejected by
// its reason.
func writeSettlement(w http.ResponseWriter, res *settlement.Result, err error) {
	if err != nil {
		writeDomainError(w, "Settlement failed", err)
		return
	}
	switch res.Outcome {
	case settlement.OutcomeSettled:
		writeJSON(w, http.StatusOK, toSettledResponse(res.Settled))
	case settlement.OutcomePartial:
		writeJSON(w, http.StatusAccepted, toPartialResponse(res.Partial))
	default:
		writeDomainError(w, "Settlement rejected", res.Rejected.Reason)
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(err)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case occupancy.IsNotFound(err):
		return http.StatusNotFound
	case occupancy.IsConflict(err):
		return http.StatusConflict
	case occupancy.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, occupancy.ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, occupancy.ErrPaymentNotFound):
		return "payment_not_found"
	case errors.Is(err, occupancy.ErrStaleStatus):
		return "stale_status"
	case errors.Is(err, occupancy.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, occupancy.ErrRefundMissing):
		return "refund_missing"
	case errors.Is(err, occupancy.ErrRefundKeyConflict):
		return "refund_key_conflict"
	case errors.Is(err, occupancy.ErrNothingToResume):
		return "nothing_to_resume"
	case errors.Is(err, occupancy.ErrDuplicateBooking):
		return "duplicate_booking"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
