// Package store provides an in-memory occupancy.Store.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/occupancy-engine/occupancy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	bookings    map[occupancy.BookingID]occupancy.Booking
	payments    map[occupancy.PaymentID]occupancy.Payment
	byBooking   map[occupancy.BookingID][]occupancy.PaymentID
	expenses    []occupancy.Expense
	settlements map[occupancy.BookingID]occupancy.SettlementRecord

	paymentKeys map[string]occupancy.PaymentID
	expenseKeys map[string]int
}

var _ occupancy.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		bookings:    make(map[occupancy.BookingID]occupancy.Booking),
		payments:    make(map[occupancy.PaymentID]occupancy.Payment),
		byBooking:   make(map[occupancy.BookingID][]occupancy.PaymentID),
		settlements: make(map[occupancy.BookingID]occupancy.SettlementRecord),
		paymentKeys: make(map[string]occupancy.PaymentID),
		expenseKeys: make(map[string]int),
	}
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (m *Memory) CreateBooking(_ context.Context, b occupancy.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s: %w", b.ID, occupancy.ErrDuplicateBooking)
	}
	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id occupancy.BookingID) (*occupancy.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, occupancy.ErrBookingNotFound
	}
	out := cloneBooking(b)
	return &out, nil
}

func (m *Memory) ListBookings(_ context.Context, filter occupancy.BookingFilter) ([]occupancy.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []occupancy.Booking
	for _, b := range m.bookings {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.ResidentID != nil && b.ResidentID != *filter.ResidentID {
			continue
		}
		if filter.FacilityID != nil && b.FacilityID != *filter.FacilityID {
			continue
		}
		result = append(result, cloneBooking(b))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// TransitionStatus is a compare-and-set on the booking status.
func (m *Memory) TransitionStatus(_ context.Context, next occupancy.Booking, from occupancy.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.bookings[next.ID]
	if !ok {
		return occupancy.ErrBookingNotFound
	}
	if current.Status != from {
		return occupancy.ErrStaleStatus
	}
	current.Status = next.Status
	current.UpdatedAt = next.UpdatedAt
	if next.CheckOutDate != nil {
		out := *next.CheckOutDate
		current.CheckOutDate = &out
	}
	m.bookings[next.ID] = current
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p occupancy.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.IdempotencyKey != "" {
		if _, exists := m.paymentKeys[p.IdempotencyKey]; exists {
			return occupancy.ErrDuplicateIdempotencyKey
		}
		m.paymentKeys[p.IdempotencyKey] = p.ID
	}
	m.payments[p.ID] = p
	m.byBooking[p.BookingID] = append(m.byBooking[p.BookingID], p.ID)
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id occupancy.PaymentID) (*occupancy.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, occupancy.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *Memory) ListPayments(_ context.Context, bookingID occupancy.BookingID) ([]occupancy.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byBooking[bookingID]
	result := make([]occupancy.Payment, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.payments[id])
	}
	return result, nil
}

func (m *Memory) FindPaymentByKey(_ context.Context, idempotencyKey string) (*occupancy.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.paymentKeys[idempotencyKey]
	if !ok {
		return nil, nil
	}
	p := m.payments[id]
	return &p, nil
}

func (m *Memory) UpdatePaymentStatus(_ context.Context, id occupancy.PaymentID, status occupancy.PaymentStatus, paidAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return occupancy.ErrPaymentNotFound
	}
	p.Status = status
	if paidAt != nil {
		at := *paidAt
		p.PaidAt = &at
	}
	m.payments[id] = p
	return nil
}

// =============================================================================
// EXPENSES
// =============================================================================

func (m *Memory) CreateExpense(_ context.Context, e occupancy.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.IdempotencyKey != "" {
		if _, exists := m.expenseKeys[e.IdempotencyKey]; exists {
			return occupancy.ErrDuplicateIdempotencyKey
		}
		m.expenseKeys[e.IdempotencyKey] = len(m.expenses)
	}
	m.expenses = append(m.expenses, e)
	return nil
}

func (m *Memory) FindExpenseByKey(_ context.Context, idempotencyKey string) (*occupancy.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.expenseKeys[idempotencyKey]
	if !ok {
		return nil, nil
	}
	e := m.expenses[i]
	return &e, nil
}

func (m *Memory) ListExpenses(_ context.Context, filter occupancy.ExpenseFilter) ([]occupancy.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []occupancy.Expense
	for _, e := range m.expenses {
		if filter.FacilityID != nil && e.FacilityID != *filter.FacilityID {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// =============================================================================
// SETTLEMENT JOURNAL
// =============================================================================

func (m *Memory) SaveSettlement(_ context.Context, rec occupancy.SettlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Completed = append([]occupancy.SettlementStep(nil), rec.Completed...)
	m.settlements[rec.BookingID] = rec
	return nil
}

func (m *Memory) GetSettlement(_ context.Context, bookingID occupancy.BookingID) (*occupancy.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.settlements[bookingID]
	if !ok {
		return nil, nil
	}
	rec.Completed = append([]occupancy.SettlementStep(nil), rec.Completed...)
	return &rec, nil
}

func (m *Memory) ListSettlements(_ context.Context, state occupancy.SettlementState) ([]occupancy.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []occupancy.SettlementRecord
	for _, rec := range m.settlements {
		if state != "" && rec.State != state {
			continue
		}
		rec.Completed = append([]occupancy.SettlementStep(nil), rec.Completed...)
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := NewMemory()
	m.bookings = fresh.bookings
	m.payments = fresh.payments
	m.byBooking = fresh.byBooking
	m.expenses = nil
	m.settlements = fresh.settlements
	m.paymentKeys = fresh.paymentKeys
	m.expenseKeys = fresh.expenseKeys
	return nil
}

func cloneBooking(b occupancy.Booking) occupancy.Booking {
	if b.CheckOutDate != nil {
		out := *b.CheckOutDate
		b.CheckOutDate = &out
	}
	return b
}
