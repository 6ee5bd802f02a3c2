package occupancy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/occupancy-engine/occupancy"
)

var allStatuses = []occupancy.BookingStatus{
	occupancy.StatusPending,
	occupancy.StatusConfirmed,
	occupancy.StatusCheckedIn,
	occupancy.StatusCheckedOut,
	occupancy.StatusCancelled,
}

func bookingIn(status occupancy.BookingStatus) occupancy.Booking {
	return occupancy.Booking{
		ID:              "b-1",
		ResidentID:      "res-1",
		RoomID:          "room-1",
		Status:          status,
		CheckInDate:     time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
		MonthlyAmount:   occupancy.NewMoney(10000),
		SecurityDeposit: occupancy.NewMoney(5000),
	}
}

// =============================================================================
// TRANSITION TABLE
// =============================================================================

func TestRequestTransition_LegalEdges(t *testing.T) {
	at := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	legal := map[occupancy.BookingStatus][]occupancy.BookingStatus{
		occupancy.StatusPending:   {occupancy.StatusConfirmed, occupancy.StatusCancelled},
		occupancy.StatusConfirmed: {occupancy.StatusCheckedIn, occupancy.StatusCancelled},
		occupancy.StatusCheckedIn: {occupancy.StatusCheckedOut, occupancy.StatusCancelled},
	}

	for from, targets := range legal {
		for _, to := range targets {
			next, err := occupancy.RequestTransition(bookingIn(from), to, at)
			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, next.Status)
			assert.Equal(t, at, next.UpdatedAt)
		}
	}
}

func TestRequestTransition_EverythingElseIsRejected(t *testing.T) {
	at := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)

	for _, from := range allStatuses {
		for _, to := range append(allStatuses, "ARCHIVED") {
			if occupancy.CanTransition(from, to) {
				continue
			}
			_, err := occupancy.RequestTransition(bookingIn(from), to, at)
			require.Error(t, err, "%s -> %s", from, to)
			assert.ErrorIs(t, err, occupancy.ErrInvalidTransition)

			var te *occupancy.InvalidTransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
		}
	}
}

func TestRequestTransition_DoesNotMutateInput(t *testing.T) {
	// GIVEN: A checked-in booking without a check-out date
	// WHEN: Transitioning to CHECKED_OUT
	// THEN: The input is untouched and the snapshot carries the check-out date

	at := time.Date(2025, time.May, 31, 10, 0, 0, 0, time.UTC)
	original := bookingIn(occupancy.StatusCheckedIn)

	next, err := occupancy.RequestTransition(original, occupancy.StatusCheckedOut, at)
	require.NoError(t, err)

	assert.Equal(t, occupancy.StatusCheckedIn, original.Status)
	assert.Nil(t, original.CheckOutDate)
	require.NotNil(t, next.CheckOutDate)
	assert.Equal(t, at, *next.CheckOutDate)
}

func TestRequestTransition_KeepsPlannedCheckOutDate(t *testing.T) {
	planned := time.Date(2025, time.May, 30, 0, 0, 0, 0, time.UTC)
	b := bookingIn(occupancy.StatusCheckedIn)
	b.CheckOutDate = &planned

	next, err := occupancy.RequestTransition(b, occupancy.StatusCheckedOut, planned.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, planned, *next.CheckOutDate)
}

func TestRequestTransition_Deterministic(t *testing.T) {
	at := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	b := bookingIn(occupancy.StatusConfirmed)

	first, err1 := occupancy.RequestTransition(b, occupancy.StatusCheckedIn, at)
	second, err2 := occupancy.RequestTransition(b, occupancy.StatusCheckedIn, at)

	assert.Equal(t, err1, err2)
	assert.Equal(t, first, second)
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, occupancy.IsTerminal(occupancy.StatusCheckedOut))
	assert.True(t, occupancy.IsTerminal(occupancy.StatusCancelled))
	assert.False(t, occupancy.IsTerminal(occupancy.StatusCheckedIn))
	assert.False(t, occupancy.IsTerminal("UNKNOWN"))
	assert.Empty(t, occupancy.NextStatuses(occupancy.StatusCheckedOut))
}

func TestNextStatuses_ReturnsCopy(t *testing.T) {
	next := occupancy.NextStatuses(occupancy.StatusPending)
	require.Len(t, next, 2)
	next[0] = occupancy.StatusCheckedOut

	assert.Equal(t, []occupancy.BookingStatus{occupancy.StatusConfirmed, occupancy.StatusCancelled},
		occupancy.NextStatuses(occupancy.StatusPending))
}

// =============================================================================
// HISTORY
// =============================================================================

func TestValidateHistory(t *testing.T) {
	tests := []struct {
		name string
		path []occupancy.BookingStatus
		want bool
	}{
		{"full stay", []occupancy.BookingStatus{"PENDING", "CONFIRMED", "CHECKED_IN", "CHECKED_OUT"}, true},
		{"cancelled before arrival", []occupancy.BookingStatus{"PENDING", "CONFIRMED", "CANCELLED"}, true},
		{"cancelled mid stay", []occupancy.BookingStatus{"PENDING", "CONFIRMED", "CHECKED_IN", "CANCELLED"}, true},
		{"just created", []occupancy.BookingStatus{"PENDING"}, true},
		{"skips confirmation", []occupancy.BookingStatus{"PENDING", "CHECKED_IN"}, false},
		{"leaves terminal", []occupancy.BookingStatus{"PENDING", "CANCELLED", "CONFIRMED"}, false},
		{"does not start pending", []occupancy.BookingStatus{"CONFIRMED", "CHECKED_IN"}, false},
		{"self edge", []occupancy.BookingStatus{"PENDING", "PENDING"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, occupancy.ValidateHistory(tt.path))
		})
	}
}

func TestValidateHistory_PathsBuiltFromTransitionsAreValid(t *testing.T) {
	// GIVEN: Every path obtained by walking NextStatuses from PENDING
	// THEN: Each one is a valid history

	var walk func(path []occupancy.BookingStatus)
	count := 0
	walk = func(path []occupancy.BookingStatus) {
		count++
		assert.True(t, occupancy.ValidateHistory(path), "%v", path)
		for _, next := range occupancy.NextStatuses(path[len(path)-1]) {
			walk(append(append([]occupancy.BookingStatus{}, path...), next))
		}
	}
	walk([]occupancy.BookingStatus{occupancy.StatusPending})
	assert.Equal(t, 7, count)
}
