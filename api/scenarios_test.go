package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occupancy-engine/occupancy"
	"github.com/warp/occupancy-engine/settlement"
	"github.com/warp/occupancy-engine/store/sqlite"
)

type scenarioResponse struct {
	Scenario string       `json:"scenario"`
	Bookings []BookingDTO `json:"bookings"`
}

// newSQLiteRouter serves the API over an in-memory SQLite store.
func newSQLiteRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	auth := NewOperatorAuth(testSecret, "test")
	token, err := auth.IssueToken("op-1", time.Hour)
	require.NoError(t, err)

	h := NewHandler(st, settlement.NewSaga(st, nil, settlement.DefaultConfig()))
	return NewRouter(h, RouterOptions{Auth: auth, EnableScenarios: true}), token
}

func call(t *testing.T, router http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func loadScenario(t *testing.T, router http.Handler, token, id string) scenarioResponse {
	t.Helper()
	rec := call(t, router, token, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[scenarioResponse](t, rec)
}

func TestScenarios_List(t *testing.T) {
	router, token := newSQLiteRouter(t)

	rec := call(t, router, token, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	assert.Len(t, list, len(scenarios))

	rec = call(t, router, token, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarios_LoadEach(t *testing.T) {
	router, token := newSQLiteRouter(t)

	wantBookings := map[string]int{
		"lifecycle-tour":     5,
		"ready-for-checkout": 1,
		"partial-settlement": 1,
		"overpaid":           1,
	}
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			resp := loadScenario(t, router, token, s.ID)
			assert.Equal(t, s.ID, resp.Scenario)
			assert.Len(t, resp.Bookings, wantBookings[s.ID])

			// Loading resets the store: only this scenario's bookings remain.
			rec := call(t, router, token, http.MethodGet, "/api/bookings", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, decode[[]BookingDTO](t, rec), wantBookings[s.ID])

			rec = call(t, router, token, http.MethodGet, "/api/scenarios/current", nil)
			assert.Equal(t, s.ID, decode[ScenarioDTO](t, rec).ID)
		})
	}
}

func TestScenarios_ReadyForCheckoutSettles(t *testing.T) {
	router, token := newSQLiteRouter(t)
	b := loadScenario(t, router, token, "ready-for-checkout").Bookings[0]

	rec := call(t, router, token, http.MethodPost, "/api/bookings/"+b.ID+"/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SettlementResponse](t, rec)
	assert.Equal(t, "CHECKED_OUT", resp.Booking.Status)
	require.NotNil(t, resp.Booking.CheckOutDate)
	require.NotNil(t, resp.Reconciliation)
	assert.Equal(t, "10000.00", resp.Reconciliation.TotalPaid)
}

func TestScenarios_OverpaidLedger(t *testing.T) {
	router, token := newSQLiteRouter(t)
	b := loadScenario(t, router, token, "overpaid").Bookings[0]

	rec := call(t, router, token, http.MethodGet, "/api/bookings/"+b.ID+"/ledger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decode[LedgerDTO](t, rec)
	assert.True(t, ledger.Reconciliation.Overpaid)
	assert.Equal(t, int64(120), ledger.Reconciliation.ProgressPercent)
	assert.Equal(t, "-3000.00", ledger.Reconciliation.Balance)
}

func TestScenarios_PartialSettlementCompletes(t *testing.T) {
	// GIVEN: The partial-settlement scenario (refund paid, expense missing)
	// WHEN: Checkout is retried, then complete-expense is called
	// THEN: Retry reports the partial, completion writes the expense once

	router, token := newSQLiteRouter(t)
	b := loadScenario(t, router, token, "partial-settlement").Bookings[0]
	id := occupancy.BookingID(b.ID)

	rec := call(t, router, token, http.MethodPost, "/api/bookings/"+b.ID+"/checkout", CheckoutRequest{RefundSecurity: true})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "refund_expense", decode[SettlementResponse](t, rec).FailedStep)

	rec = call(t, router, token, http.MethodPost, "/api/bookings/"+b.ID+"/checkout/complete-expense", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[SettlementResponse](t, rec)
	require.NotNil(t, done.Expense)
	assert.Equal(t, occupancy.RefundExpenseKey(id), done.Expense.IdempotencyKey)
	assert.Equal(t, "4000.00", done.Expense.Amount)

	rec = call(t, router, token, http.MethodPost, "/api/bookings/"+b.ID+"/checkout/complete-expense", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[SettlementResponse](t, rec).AlreadySettled)

	rec = call(t, router, token, http.MethodGet, "/api/expenses?category=deposit_refund", nil)
	assert.Len(t, decode[[]ExpenseDTO](t, rec), 1)
}
