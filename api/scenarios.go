/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with bookings and
	payments in interesting states, so the checkout flow can be tried by hand.

AVAILABLE SCENARIOS:

	lifecycle-tour:      One booking in every lifecycle status
	ready-for-checkout:  Checked-in resident, rent and deposit fully paid
	partial-settlement:  Checked out, refund paid, refund expense missing
	overpaid:            Checked-in resident who paid more than owed

HOW SCENARIOS WORK:
 1. Reset the store when it supports it
 2. Create bookings directly in their target status
 3. Record the payments (and journal entries) that status implies

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "ready-for-checkout"}

NOTE:

	Scenarios reset the store. Only mount them in development/demo environments.

SEE ALSO:
  - handlers.go: Checkout handlers the scenarios exercise
  - server.go: RouterOptions.EnableScenarios
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/occupancy-engine/logging"
	"github.com/warp/occupancy-engine/occupancy"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "lifecycle-tour",
		Name:        "Lifecycle Tour",
		Description: "One booking in each status: pending, confirmed, checked in, checked out, cancelled",
	},
	{
		ID:          "ready-for-checkout",
		Name:        "Ready for Checkout",
		Description: "Checked-in resident with rent and security deposit paid; check out with a refund",
	},
	{
		ID:          "partial-settlement",
		Name:        "Partial Settlement",
		Description: "Checked out with the deposit refunded but no refund expense; finish with complete-expense",
	},
	{
		ID:          "overpaid",
		Name:        "Overpaid Resident",
		Description: "Checked-in resident who paid 120% of what is owed",
	},
}

// resetter is implemented by stores that can be cleared for demos.
type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	var load func(context.Context) ([]occupancy.Booking, error)
	switch req.ScenarioID {
	case "lifecycle-tour":
		load = h.loadLifecycleTour
	case "ready-for-checkout":
		load = h.loadReadyForCheckout
	case "partial-settlement":
		load = h.loadPartialSettlement
	case "overpaid":
		load = h.loadOverpaid
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if rs, ok := h.Store.(resetter); ok {
		if err := rs.Reset(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
			return
		}
	}
	h.currentScenario = ""

	bookings, err := load(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	logging.FromContext(ctx).Info("scenario loaded", "scenario", req.ScenarioID, "bookings", len(bookings))

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": req.ScenarioID,
		"bookings": dtos,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadLifecycleTour(ctx context.Context) ([]occupancy.Booking, error) {
	statuses := []occupancy.BookingStatus{
		occupancy.StatusPending,
		occupancy.StatusConfirmed,
		occupancy.StatusCheckedIn,
		occupancy.StatusCheckedOut,
		occupancy.StatusCancelled,
	}
	var out []occupancy.Booking
	for i, status := range statuses {
		b, err := h.seedBooking(ctx, fmt.Sprintf("room-%d", 101+i), status, 9000, 4500)
		if err != nil {
			return nil, err
		}
		if status == occupancy.StatusCheckedIn || status == occupancy.StatusCheckedOut {
			if err := h.seedPayment(ctx, b, occupancy.PaymentRent, b.MonthlyAmount); err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func (h *Handler) loadReadyForCheckout(ctx context.Context) ([]occupancy.Booking, error) {
	b, err := h.seedBooking(ctx, "room-12", occupancy.StatusCheckedIn, 10000, 5000)
	if err != nil {
		return nil, err
	}
	if err := h.seedPayment(ctx, b, occupancy.PaymentRent, b.MonthlyAmount); err != nil {
		return nil, err
	}
	if err := h.seedPayment(ctx, b, occupancy.PaymentSecurityDeposit, b.SecurityDeposit); err != nil {
		return nil, err
	}
	return []occupancy.Booking{b}, nil
}

func (h *Handler) loadPartialSettlement(ctx context.Context) ([]occupancy.Booking, error) {
	b, err := h.seedBooking(ctx, "room-7", occupancy.StatusCheckedOut, 8000, 4000)
	if err != nil {
		return nil, err
	}
	if err := h.seedPayment(ctx, b, occupancy.PaymentRent, b.MonthlyAmount); err != nil {
		return nil, err
	}
	if err := h.seedPayment(ctx, b, occupancy.PaymentSecurityDeposit, b.SecurityDeposit); err != nil {
		return nil, err
	}

	now := h.now()
	refund := occupancy.Payment{
		ID:             occupancy.NewPaymentID(),
		BookingID:      b.ID,
		ResidentID:     b.ResidentID,
		Amount:         b.SecurityDeposit,
		Type:           occupancy.PaymentRefund,
		Status:         occupancy.PaymentPaid,
		PaidAt:         &now,
		Notes:          occupancy.AutoCheckoutRefundNote,
		Source:         occupancy.SourceAutoCheckoutRefund,
		IdempotencyKey: occupancy.RefundKey(b.ID),
		CreatedBy:      "demo",
		CreatedAt:      now,
	}
	if err := h.Store.CreatePayment(ctx, refund); err != nil {
		return nil, err
	}

	err = h.Store.SaveSettlement(ctx, occupancy.SettlementRecord{
		BookingID:       b.ID,
		OperatorID:      "demo",
		RefundRequested: true,
		State:           occupancy.SettlementPartial,
		Completed:       []occupancy.SettlementStep{occupancy.StepStatus, occupancy.StepRefundPayment},
		FailedStep:      occupancy.StepRefundExpense,
		Error:           "expense store unavailable",
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	return []occupancy.Booking{b}, nil
}

func (h *Handler) loadOverpaid(ctx context.Context) ([]occupancy.Booking, error) {
	b, err := h.seedBooking(ctx, "room-3", occupancy.StatusCheckedIn, 10000, 5000)
	if err != nil {
		return nil, err
	}
	if err := h.seedPayment(ctx, b, occupancy.PaymentRent, occupancy.NewMoney(13000)); err != nil {
		return nil, err
	}
	if err := h.seedPayment(ctx, b, occupancy.PaymentSecurityDeposit, b.SecurityDeposit); err != nil {
		return nil, err
	}
	return []occupancy.Booking{b}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) seedBooking(ctx context.Context, room string, status occupancy.BookingStatus, monthly, deposit int64) (occupancy.Booking, error) {
	now := h.now()
	checkIn := now.AddDate(0, -1, 0).Truncate(24 * time.Hour)
	b := occupancy.Booking{
		ID:              occupancy.NewBookingID(),
		ResidentID:      occupancy.ResidentID("resident-" + room),
		RoomID:          occupancy.RoomID(room),
		FacilityID:      "demo-hostel",
		Status:          status,
		CheckInDate:     checkIn,
		MonthlyAmount:   occupancy.NewMoney(monthly),
		SecurityDeposit: occupancy.NewMoney(deposit),
		CreatedAt:       checkIn.AddDate(0, 0, -7),
		UpdatedAt:       now,
	}
	if status == occupancy.StatusCheckedOut {
		out := now.Truncate(24 * time.Hour)
		b.CheckOutDate = &out
	}
	if err := h.Store.CreateBooking(ctx, b); err != nil {
		return occupancy.Booking{}, fmt.Errorf("seed booking %s: %w", room, err)
	}
	return b, nil
}

func (h *Handler) seedPayment(ctx context.Context, b occupancy.Booking, typ occupancy.PaymentType, amount occupancy.Money) error {
	paidAt := b.CheckInDate
	p := occupancy.Payment{
		ID:         occupancy.NewPaymentID(),
		BookingID:  b.ID,
		ResidentID: b.ResidentID,
		Amount:     amount,
		Type:       typ,
		Status:     occupancy.PaymentPaid,
		Method:     "bank_transfer",
		PaidAt:     &paidAt,
		Source:     occupancy.SourceManual,
		CreatedBy:  "demo",
		CreatedAt:  paidAt,
	}
	if err := h.Store.CreatePayment(ctx, p); err != nil {
		return fmt.Errorf("seed %s payment: %w", typ, err)
	}
	return nil
}
