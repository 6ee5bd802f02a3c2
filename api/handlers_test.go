/*
handlers_test.go - HTTP tests for booking, payment and checkout handlers

Requests go through the full router (auth, validation, error mapping)
against the in-memory store.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/occupancy/store"
	"github.com/warp/occupancy-engine/settlement"
)

const testSecret = "test-secret-0123456789abcdef0123"

// flakyStore fails expense writes while failExpense is set.
type flakyStore struct {
	*store.Memory
	failExpense atomic.Bool
}

func (f *flakyStore) CreateExpense(ctx context.Context, e occupancy.Expense) error {
	if f.failExpense.Load() {
		return errors.New("expense table locked")
	}
	return f.Memory.CreateExpense(ctx, e)
}

type testServer struct {
	router http.Handler
	store  *flakyStore
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := &flakyStore{Memory: store.NewMemory()}
	auth := NewOperatorAuth(testSecret, "test")
	token, err := auth.IssueToken("op-1", time.Hour)
	require.NoError(t, err)

	h := NewHandler(st, settlement.NewSaga(st, nil, settlement.DefaultConfig()))
	return &testServer{
		router: NewRouter(h, RouterOptions{Auth: auth, EnableScenarios: true}),
		store:  st,
		token:  token,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seed stores a booking directly in status.
func (s *testServer) seed(t *testing.T, id occupancy.BookingID, status occupancy.BookingStatus) occupancy.Booking {
	t.Helper()
	b := occupancy.Booking{
		ID:              id,
		ResidentID:      "res-1",
		RoomID:          "room-12",
		FacilityID:      "hostel-east",
		Status:          status,
		CheckInDate:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		MonthlyAmount:   occupancy.NewMoney(10000),
		SecurityDeposit: occupancy.NewMoney(5000),
		CreatedAt:       time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.store.CreateBooking(context.Background(), b))
	return b
}

// =============================================================================
// BOOKINGS
// =============================================================================

func TestCreateAndGetBooking(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/bookings", CreateBookingRequest{
		ResidentID:      "res-9",
		RoomID:          "room-4",
		CheckInDate:     "2025-09-01",
		MonthlyAmount:   "7500.50",
		SecurityDeposit: "3000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[BookingDTO](t, rec)
	assert.Equal(t, "PENDING", created.Status)
	assert.Equal(t, "7500.50", created.MonthlyAmount)
	assert.Equal(t, "3000.00", created.SecurityDeposit)
	assert.Equal(t, []string{"CONFIRMED", "CANCELLED"}, created.NextStatuses)

	rec = srv.do(t, http.MethodGet, "/api/bookings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[BookingDTO](t, rec).ID)
}

func TestCreateBooking_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		req  CreateBookingRequest
	}{
		{"missing resident", CreateBookingRequest{RoomID: "r", CheckInDate: "2025-09-01", MonthlyAmount: "1"}},
		{"bad date", CreateBookingRequest{ResidentID: "x", RoomID: "r", CheckInDate: "01/09/2025", MonthlyAmount: "1"}},
		{"non numeric amount", CreateBookingRequest{ResidentID: "x", RoomID: "r", CheckInDate: "2025-09-01", MonthlyAmount: "lots"}},
		{"negative deposit", CreateBookingRequest{ResidentID: "x", RoomID: "r", CheckInDate: "2025-09-01", MonthlyAmount: "1", SecurityDeposit: "-5"}},
		{"checkout before checkin", CreateBookingRequest{ResidentID: "x", RoomID: "r", CheckInDate: "2025-09-01", CheckOutDate: "2025-08-01", MonthlyAmount: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/bookings", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestListBookings_FilterByStatus(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusPending)
	srv.seed(t, "b-2", occupancy.StatusCheckedIn)

	rec := srv.do(t, http.MethodGet, "/api/bookings?status=CHECKED_IN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]BookingDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "b-2", list[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/bookings?status=ARCHIVED", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBooking_NotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/bookings/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "booking_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestTransitions(t *testing.T) {
	// GIVEN: A pending booking
	// WHEN: Operators move it through the lifecycle by hand
	// THEN: Legal moves apply, illegal ones are 409, checkout is refused here

	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusPending)

	rec := srv.do(t, http.MethodGet, "/api/bookings/b-1/transitions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := decode[TransitionsDTO](t, rec)
	assert.Equal(t, []string{"CONFIRMED", "CANCELLED"}, tr.Next)
	assert.False(t, tr.Terminal)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/transitions", TransitionRequest{Status: "CHECKED_IN"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Code)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/transitions", TransitionRequest{Status: "CONFIRMED"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/transitions", TransitionRequest{Status: "CHECKED_IN"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/transitions", TransitionRequest{Status: "CHECKED_OUT"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	b, err := srv.store.GetBooking(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, occupancy.StatusCheckedIn, b.Status)
}

// =============================================================================
// PAYMENTS & LEDGER
// =============================================================================

func TestRecordPayment_IdempotentReplay(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	req := RecordPaymentRequest{Amount: "10000", Type: "rent", IdempotencyKey: "invoice-2025-06"}
	first := srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", req)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", req)
	require.Equal(t, http.StatusOK, second.Code)

	p1 := decode[PaymentDTO](t, first)
	p2 := decode[PaymentDTO](t, second)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, "PAID", p1.Status)
	assert.Equal(t, "op-1", p1.CreatedBy)
	assert.NotEmpty(t, p1.PaidAt)

	rec := srv.do(t, http.MethodGet, "/api/bookings/b-1/payments", nil)
	assert.Len(t, decode[[]PaymentDTO](t, rec), 1)
}

func TestRecordPayment_RejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "0", Type: "rent"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "10", Type: "tip"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/bookings/nope/payments", RecordPaymentRequest{Amount: "10", Type: "rent"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordPayment_RejectsSettlementKeys(t *testing.T) {
	// GIVEN: A checked-in booking
	// WHEN: A client records rent under the checkout refund key
	// THEN: The payment is refused and checkout writes its own refund

	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	for _, key := range []string{occupancy.RefundKey("b-1"), occupancy.RefundExpenseKey("b-1"), "checkout-anything"} {
		rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{
			Amount: "10000", Type: "rent", IdempotencyKey: key,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, key)
	}

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{
		Amount: "200", Type: "refund", Notes: "AUTO_CHECKOUT_REFUND",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	require.NotNil(t, resp.RefundPayment)
	assert.Equal(t, "auto_checkout_refund", resp.RefundPayment.Source)
	assert.Equal(t, "5000.00", resp.RefundPayment.Amount)
}

func TestCheckout_RefundKeyConflictIsReported(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)
	require.NoError(t, srv.store.Memory.CreatePayment(context.Background(), occupancy.Payment{
		ID: "imported", BookingID: "b-1", Amount: occupancy.NewMoney(10000),
		Type: occupancy.PaymentRent, Status: occupancy.PaymentPaid,
		Source: occupancy.SourceInvoice, IdempotencyKey: occupancy.RefundKey("b-1"),
	}))

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	partial := decode[SettlementResponse](t, rec)
	assert.Equal(t, "refund_payment", partial.FailedStep)
	assert.Nil(t, partial.RefundPayment)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "refund_key_conflict", decode[ErrorResponse](t, rec).Code)

	rec = srv.do(t, http.MethodGet, "/api/expenses?category=deposit_refund", nil)
	assert.Empty(t, decode[[]ExpenseDTO](t, rec))
}

func TestLedger(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "10000", Type: "rent"})
	srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "5000", Type: "security_deposit", Status: "PENDING"})

	rec := srv.do(t, http.MethodGet, "/api/bookings/b-1/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decode[LedgerDTO](t, rec)
	assert.Len(t, ledger.Payments, 2)
	assert.Equal(t, "15000.00", ledger.Reconciliation.TotalPayable)
	assert.Equal(t, "10000.00", ledger.Reconciliation.TotalPaid)
	assert.Equal(t, "5000.00", ledger.Reconciliation.Balance)
	assert.Equal(t, int64(67), ledger.Reconciliation.ProgressPercent)
}

func TestUpdatePaymentStatus(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "5000", Type: "security_deposit", Status: "PENDING"})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[PaymentDTO](t, rec)
	assert.Empty(t, p.PaidAt)

	rec = srv.do(t, http.MethodPatch, "/api/payments/"+p.ID+"/status", UpdatePaymentStatusRequest{Status: "PAID"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[PaymentDTO](t, rec)
	assert.Equal(t, "PAID", updated.Status)
	assert.NotEmpty(t, updated.PaidAt)

	rec = srv.do(t, http.MethodPatch, "/api/payments/missing/status", UpdatePaymentStatusRequest{Status: "PAID"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CHECKOUT
// =============================================================================

func TestCheckout_WithRefund(t *testing.T) {
	// GIVEN: A checked-in booking with rent and deposit paid
	// WHEN: The operator checks out with a deposit refund, twice
	// THEN: One refund and one expense exist and the replay says already settled

	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)
	srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "10000", Type: "rent"})
	srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "5000", Type: "security_deposit"})

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	assert.Equal(t, "settled", resp.Outcome)
	assert.Equal(t, "CHECKED_OUT", resp.Booking.Status)
	require.NotNil(t, resp.RefundPayment)
	assert.Equal(t, "5000.00", resp.RefundPayment.Amount)
	assert.Equal(t, "auto_checkout_refund", resp.RefundPayment.Source)
	assert.Equal(t, "op-1", resp.RefundPayment.CreatedBy)
	require.NotNil(t, resp.Expense)
	assert.Equal(t, "deposit_refund", resp.Expense.Category)
	require.NotNil(t, resp.Reconciliation)
	assert.Equal(t, int64(67), resp.Reconciliation.ProgressPercent)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[SettlementResponse](t, rec).AlreadySettled)

	rec = srv.do(t, http.MethodGet, "/api/expenses?category=deposit_refund", nil)
	assert.Len(t, decode[[]ExpenseDTO](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/api/bookings/b-1/payments", nil)
	assert.Len(t, decode[[]PaymentDTO](t, rec), 3)
}

func TestCheckout_EmptyBodyMeansNoRefund(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	assert.Nil(t, resp.RefundPayment)
	assert.Nil(t, resp.Expense)
}

func TestCheckout_Rejected(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusPending)

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode[ErrorResponse](t, rec).Code)

	rec = srv.do(t, http.MethodPost, "/api/bookings/nope/checkout", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_PartialThenCompleteExpense(t *testing.T) {
	// GIVEN: Expense writes fail
	// WHEN: The booking is checked out with a refund
	// THEN: 202 with the step report, the worklist lists it, and
	//       complete-expense finishes it once expenses work again

	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)
	srv.store.failExpense.Store(true)

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	partial := decode[SettlementResponse](t, rec)
	assert.Equal(t, "partial", partial.Outcome)
	assert.Equal(t, []string{"status", "refund_payment"}, partial.CompletedSteps)
	assert.Equal(t, "refund_expense", partial.FailedStep)
	assert.False(t, partial.Unknown)
	assert.NotNil(t, partial.RefundPayment)

	rec = srv.do(t, http.MethodGet, "/api/settlements?state=partial", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	worklist := decode[map[string][]SettlementRecordDTO](t, rec)
	require.Len(t, worklist["settlements"], 1)
	assert.Equal(t, "b-1", worklist["settlements"][0].BookingID)

	srv.store.failExpense.Store(false)
	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout/complete-expense", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[SettlementResponse](t, rec)
	assert.NotNil(t, done.Expense)

	rec = srv.do(t, http.MethodGet, "/api/bookings/b-1/payments", nil)
	assert.Len(t, decode[[]PaymentDTO](t, rec), 1, "complete-expense must not write another refund")

	rec = srv.do(t, http.MethodGet, "/api/settlements?state=partial", nil)
	assert.Empty(t, decode[map[string][]SettlementRecordDTO](t, rec)["settlements"])
}

func TestResumeCheckout_NothingToResume(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout/resume", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "nothing_to_resume", decode[ErrorResponse](t, rec).Code)
}

func TestListSettlements_BadState(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/settlements?state=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// memoryCache is an in-process settlement.OutcomeCache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[occupancy.BookingID]settlement.Settled
}

func (c *memoryCache) Load(_ context.Context, id occupancy.BookingID) (*settlement.Settled, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *memoryCache) Store(_ context.Context, id occupancy.BookingID, s settlement.Settled) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = s
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id occupancy.BookingID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

func TestCheckout_ReplayReflectsLatePayments(t *testing.T) {
	// GIVEN: A settled checkout held in the outcome cache
	// WHEN: A late payment is recorded, then its status is corrected
	// THEN: Each replay reconciles against the payments as they are now

	st := &flakyStore{Memory: store.NewMemory()}
	saga := settlement.NewSaga(st, nil, settlement.DefaultConfig())
	saga.Cache = &memoryCache{entries: map[occupancy.BookingID]settlement.Settled{}}
	auth := NewOperatorAuth(testSecret, "test")
	token, err := auth.IssueToken("op-1", time.Hour)
	require.NoError(t, err)
	srv := &testServer{
		router: NewRouter(NewHandler(st, saga), RouterOptions{Auth: auth}),
		store:  st,
		token:  token,
	}
	srv.seed(t, "b-1", occupancy.StatusCheckedIn)
	srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "10000", Type: "rent"})
	srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "5000", Type: "security_deposit"})

	rec := srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "10000.00", decode[SettlementResponse](t, rec).Reconciliation.TotalPaid)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/payments", RecordPaymentRequest{Amount: "2500", Type: "other"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	late := decode[PaymentDTO](t, rec)

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[SettlementResponse](t, rec)
	assert.True(t, replay.AlreadySettled)
	assert.Equal(t, "12500.00", replay.Reconciliation.TotalPaid)

	rec = srv.do(t, http.MethodPatch, "/api/payments/"+late.ID+"/status", UpdatePaymentStatusRequest{Status: "PENDING"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/bookings/b-1/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10000.00", decode[SettlementResponse](t, rec).Reconciliation.TotalPaid)
}
