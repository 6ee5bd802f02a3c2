package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/settlement"
	"github.com/warp/occupancy-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testBooking(id occupancy.BookingID, status occupancy.BookingStatus) occupancy.Booking {
	created := time.Date(2025, time.May, 20, 8, 30, 0, 0, time.UTC)
	return occupancy.Booking{
		ID:              id,
		ResidentID:      "res-1",
		RoomID:          "room-12",
		FacilityID:      "hostel-east",
		Status:          status,
		CheckInDate:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		MonthlyAmount:   occupancy.MustParseMoney("10000.50"),
		SecurityDeposit: occupancy.NewMoney(5000),
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestSQLite_BookingRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	b := testBooking("b-1", occupancy.StatusPending)
	require.NoError(t, store.CreateBooking(ctx, b))

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, b.ResidentID, got.ResidentID)
	assert.Equal(t, b.FacilityID, got.FacilityID)
	assert.True(t, got.MonthlyAmount.Equal(b.MonthlyAmount))
	assert.True(t, got.SecurityDeposit.Equal(b.SecurityDeposit))
	assert.True(t, got.CheckInDate.Equal(b.CheckInDate))
	assert.Nil(t, got.CheckOutDate)

	_, err = store.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, occupancy.ErrBookingNotFound)
}

func TestSQLite_TransitionStatusIsConditional(t *testing.T) {
	// GIVEN: A checked-in booking
	// WHEN: Two checkouts both expect CHECKED_IN
	// THEN: The first applies, the second sees ErrStaleStatus

	ctx := context.Background()
	store := newTestStore(t)
	b := testBooking("b-1", occupancy.StatusCheckedIn)
	require.NoError(t, store.CreateBooking(ctx, b))

	at := time.Date(2025, time.June, 30, 10, 0, 0, 0, time.UTC)
	next, err := occupancy.RequestTransition(b, occupancy.StatusCheckedOut, at)
	require.NoError(t, err)

	require.NoError(t, store.TransitionStatus(ctx, next, occupancy.StatusCheckedIn))
	assert.ErrorIs(t, store.TransitionStatus(ctx, next, occupancy.StatusCheckedIn), occupancy.ErrStaleStatus)

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, occupancy.StatusCheckedOut, got.Status)
	require.NotNil(t, got.CheckOutDate)
	assert.True(t, got.CheckOutDate.Equal(at))

	missing := next
	missing.ID = "nope"
	assert.ErrorIs(t, store.TransitionStatus(ctx, missing, occupancy.StatusCheckedIn), occupancy.ErrBookingNotFound)
}

func TestSQLite_ListBookingsByStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusPending)))
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-2", occupancy.StatusCheckedIn)))
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-3", occupancy.StatusCheckedIn)))

	status := occupancy.StatusCheckedIn
	list, err := store.ListBookings(ctx, occupancy.BookingFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := store.ListBookings(ctx, occupancy.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_PaymentsAndIdempotency(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusCheckedIn)))

	paidAt := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	rent := occupancy.Payment{
		ID: "p-1", BookingID: "b-1", ResidentID: "res-1", Amount: occupancy.NewMoney(10000),
		Type: occupancy.PaymentRent, Status: occupancy.PaymentPaid, PaidAt: &paidAt, CreatedAt: paidAt,
	}
	refund := occupancy.Payment{
		ID: "p-2", BookingID: "b-1", Amount: occupancy.NewMoney(5000),
		Type: occupancy.PaymentRefund, Status: occupancy.PaymentPaid,
		Source: occupancy.SourceAutoCheckoutRefund, Notes: occupancy.AutoCheckoutRefundNote,
		IdempotencyKey: occupancy.RefundKey("b-1"), CreatedAt: paidAt.Add(time.Hour),
	}
	require.NoError(t, store.CreatePayment(ctx, rent))
	require.NoError(t, store.CreatePayment(ctx, refund))

	dup := refund
	dup.ID = "p-3"
	assert.ErrorIs(t, store.CreatePayment(ctx, dup), occupancy.ErrDuplicateIdempotencyKey)

	found, err := store.FindPaymentByKey(ctx, occupancy.RefundKey("b-1"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.IsAutoCheckoutRefund())

	none, err := store.FindPaymentByKey(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := store.ListPayments(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, occupancy.SourceManual, list[0].Source)
	assert.Equal(t, occupancy.PaymentID("p-2"), list[1].ID)
}

func TestSQLite_UpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusCheckedIn)))
	require.NoError(t, store.CreatePayment(ctx, occupancy.Payment{
		ID: "p-1", BookingID: "b-1", Amount: occupancy.NewMoney(10000),
		Type: occupancy.PaymentRent, Status: occupancy.PaymentPending, CreatedAt: time.Now(),
	}))

	at := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdatePaymentStatus(ctx, "p-1", occupancy.PaymentPaid, &at))

	p, err := store.GetPayment(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, occupancy.PaymentPaid, p.Status)
	require.NotNil(t, p.PaidAt)
	assert.True(t, p.PaidAt.Equal(at))

	assert.ErrorIs(t, store.UpdatePaymentStatus(ctx, "p-9", occupancy.PaymentPaid, nil), occupancy.ErrPaymentNotFound)
}

func TestSQLite_ExpensesAndJournal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusCheckedOut)))

	e := occupancy.Expense{
		ID: "e-1", FacilityID: "hostel-east", Title: "Security deposit refund",
		Amount: occupancy.NewMoney(5000), Category: occupancy.ExpenseDepositRefund,
		Status: occupancy.ExpensePaid, SubmittedBy: "op-1", Date: time.Now(),
		IdempotencyKey: occupancy.RefundExpenseKey("b-1"), CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateExpense(ctx, e))
	e.ID = "e-2"
	assert.ErrorIs(t, store.CreateExpense(ctx, e), occupancy.ErrDuplicateIdempotencyKey)

	found, err := store.FindExpenseByKey(ctx, occupancy.RefundExpenseKey("b-1"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, occupancy.ExpenseID("e-1"), found.ID)

	require.NoError(t, store.SaveSettlement(ctx, occupancy.SettlementRecord{
		BookingID: "b-1", OperatorID: "op-1", RefundRequested: true,
		State:      occupancy.SettlementPartial,
		Completed:  []occupancy.SettlementStep{occupancy.StepStatus, occupancy.StepRefundPayment},
		FailedStep: occupancy.StepRefundExpense, Unknown: true, Error: "timeout",
		UpdatedAt: time.Now(),
	}))

	partial, err := store.ListSettlements(ctx, occupancy.SettlementPartial)
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.True(t, partial[0].RefundRequested)
	assert.True(t, partial[0].Unknown)
	assert.Equal(t, []occupancy.SettlementStep{occupancy.StepStatus, occupancy.StepRefundPayment}, partial[0].Completed)

	require.NoError(t, store.SaveSettlement(ctx, occupancy.SettlementRecord{
		BookingID: "b-1", State: occupancy.SettlementSettled, UpdatedAt: time.Now(),
	}))
	partial, err = store.ListSettlements(ctx, occupancy.SettlementPartial)
	require.NoError(t, err)
	assert.Empty(t, partial)

	rec, err := store.GetSettlement(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, occupancy.SettlementSettled, rec.State)
	assert.Empty(t, rec.Completed)
}

func TestSQLite_SettlementEndToEnd(t *testing.T) {
	// GIVEN: A checked-in booking persisted in SQLite
	// WHEN: The saga settles it twice with a refund
	// THEN: One refund payment and one expense are stored

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusCheckedIn)))

	saga := settlement.NewSaga(store, nil, settlement.DefaultConfig())
	req := settlement.Request{BookingID: "b-1", RefundSecurity: true, OperatorID: "op-1"}

	first, err := saga.Settle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, settlement.OutcomeSettled, first.Outcome)

	second, err := saga.Settle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, settlement.OutcomeSettled, second.Outcome)
	assert.True(t, second.Settled.AlreadySettled)

	payments, err := store.ListPayments(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	cat := occupancy.ExpenseDepositRefund
	expenses, err := store.ListExpenses(ctx, occupancy.ExpenseFilter{Category: &cat})
	require.NoError(t, err)
	assert.Len(t, expenses, 1)
}

func TestSQLite_CorruptColumnsFailTheRead(t *testing.T) {
	// GIVEN: Rows whose amount or date text no longer parses
	// WHEN: They are read back
	// THEN: The read fails instead of returning zero money or a zero time

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusCheckedIn)))
	require.NoError(t, store.CreatePayment(ctx, occupancy.Payment{
		ID: "p-1", BookingID: "b-1", Amount: occupancy.NewMoney(10000),
		Type: occupancy.PaymentRent, Status: occupancy.PaymentPaid,
	}))

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	_, err = raw.ExecContext(ctx, `UPDATE payments SET amount = 'ten thousand' WHERE id = 'p-1'`)
	require.NoError(t, err)
	_, err = store.ListPayments(ctx, "b-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")

	_, err = raw.ExecContext(ctx, `UPDATE bookings SET check_in_date = 'first of june' WHERE id = 'b-1'`)
	require.NoError(t, err)
	_, err = store.GetBooking(ctx, "b-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, occupancy.ErrBookingNotFound)
	assert.Contains(t, err.Error(), "check_in_date")
}

func TestSQLite_CreateBookingRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", occupancy.StatusCheckedIn)))

	again := testBooking("b-1", occupancy.StatusPending)
	again.SecurityDeposit = occupancy.NewMoney(1)
	assert.ErrorIs(t, store.CreateBooking(ctx, again), occupancy.ErrDuplicateBooking)

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, occupancy.StatusCheckedIn, got.Status)
	assert.True(t, got.SecurityDeposit.Equal(occupancy.NewMoney(5000)))
}
