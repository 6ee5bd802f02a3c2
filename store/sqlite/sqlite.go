/*
Package sqlite provides a SQLite-backed implementation of occupancy.Store.

PURPOSE:
  Persists bookings, payments, expenses and the settlement journal in a
  single SQLite file. The PostgreSQL store in store/postgres follows the same
  schema with dialect changes only.

KEY TABLES:
  bookings:    One row per booking; status changes via conditional UPDATE
  payments:    Payments per booking; idempotency_key UNIQUE
  expenses:    Expense ledger; idempotency_key UNIQUE
  settlements: One journal row per settled booking (upsert)

CONDITIONAL STATUS WRITE:
  TransitionStatus runs
    UPDATE bookings SET status = ? ... WHERE id = ? AND status = ?
  and reports ErrStaleStatus when no row matched. This is the only place a
  booking's status changes.

NO DELETES:
  Bookings, payments and expenses are never deleted. security_deposit is
  written once on INSERT and never updated.

CONCURRENCY:
  Uses sync.RWMutex and a single connection. SQLite allows one writer at a
  time anyway.

USAGE:
  store, err := sqlite.New("./data/occupancy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - occupancy/store.go: Interface definitions
  - occupancy/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/occupancy-engine/occupancy"
)

// Store implements occupancy.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ occupancy.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		resident_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		facility_id TEXT,
		status TEXT NOT NULL,
		check_in_date TEXT NOT NULL,
		check_out_date TEXT,
		monthly_amount TEXT NOT NULL,
		security_deposit TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
	CREATE INDEX IF NOT EXISTS idx_bookings_resident ON bookings(resident_id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES bookings(id),
		resident_id TEXT,
		amount TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT,
		paid_at TEXT,
		notes TEXT,
		source TEXT NOT NULL DEFAULT 'manual',
		idempotency_key TEXT UNIQUE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_booking ON payments(booking_id, created_at);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		facility_id TEXT,
		title TEXT NOT NULL,
		description TEXT,
		amount TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_by TEXT,
		expense_date TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_facility ON expenses(facility_id);

	CREATE TABLE IF NOT EXISTS settlements (
		booking_id TEXT PRIMARY KEY REFERENCES bookings(id),
		operator_id TEXT,
		refund_requested INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		completed_steps TEXT,
		failed_step TEXT,
		unknown_outcome INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_state ON settlements(state);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BOOKINGS
// =============================================================================

const bookingColumns = `id, resident_id, room_id, facility_id, status, check_in_date, check_out_date,
	monthly_amount, security_deposit, created_at, updated_at`

func (s *Store) CreateBooking(ctx context.Context, b occupancy.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.ResidentID,
		b.RoomID,
		nullString(string(b.FacilityID)),
		b.Status,
		formatTime(b.CheckInDate),
		nullTime(b.CheckOutDate),
		b.MonthlyAmount.String(),
		b.SecurityDeposit.String(),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("booking %s: %w", b.ID, occupancy.ErrDuplicateBooking)
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id occupancy.BookingID) (*occupancy.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, occupancy.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListBookings(ctx context.Context, filter occupancy.BookingFilter) ([]occupancy.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	var args []any
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.ResidentID != nil {
		query += ` AND resident_id = ?`
		args = append(args, *filter.ResidentID)
	}
	if filter.FacilityID != nil {
		query += ` AND facility_id = ?`
		args = append(args, *filter.FacilityID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []occupancy.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// TransitionStatus is a compare-and-set on the booking status.
func (s *Store) TransitionStatus(ctx context.Context, next occupancy.Booking, from occupancy.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, updated_at = ?, check_out_date = COALESCE(?, check_out_date)
		WHERE id = ? AND status = ?`,
		next.Status, formatTime(next.UpdatedAt), nullTime(next.CheckOutDate), next.ID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, next.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if exists == 0 {
		return occupancy.ErrBookingNotFound
	}
	return occupancy.ErrStaleStatus
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (occupancy.Booking, error) {
	var (
		b                           occupancy.Booking
		facilityID, checkOut        sql.NullString
		checkIn, createdAt, updated string
		monthly, deposit            string
	)
	err := row.Scan(&b.ID, &b.ResidentID, &b.RoomID, &facilityID, &b.Status, &checkIn, &checkOut,
		&monthly, &deposit, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("failed to scan booking: %w", err)
	}
	var d decoder
	b.FacilityID = occupancy.FacilityID(facilityID.String)
	b.CheckInDate = d.time("check_in_date", checkIn)
	b.CheckOutDate = d.nullTime("check_out_date", checkOut)
	b.MonthlyAmount = d.money("monthly_amount", monthly)
	b.SecurityDeposit = d.money("security_deposit", deposit)
	b.CreatedAt = d.time("created_at", createdAt)
	b.UpdatedAt = d.time("updated_at", updated)
	if d.err != nil {
		return b, fmt.Errorf("failed to decode booking %s: %w", b.ID, d.err)
	}
	return b, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentColumns = `id, booking_id, resident_id, amount, payment_type, status, method, paid_at,
	notes, source, idempotency_key, created_by, created_at`

func (s *Store) CreatePayment(ctx context.Context, p occupancy.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := p.Source
	if source == "" {
		source = occupancy.SourceManual
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.BookingID,
		nullString(string(p.ResidentID)),
		p.Amount.String(),
		p.Type,
		p.Status,
		nullString(p.Method),
		nullTime(p.PaidAt),
		nullString(p.Notes),
		source,
		nullString(p.IdempotencyKey),
		nullString(string(p.CreatedBy)),
		formatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return occupancy.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id occupancy.PaymentID) (*occupancy.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, occupancy.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context, bookingID occupancy.BookingID) ([]occupancy.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE booking_id = ?
		ORDER BY created_at ASC, rowid ASC`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []occupancy.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) FindPaymentByKey(ctx context.Context, idempotencyKey string) (*occupancy.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = ?`, idempotencyKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id occupancy.PaymentID, status occupancy.PaymentStatus, paidAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, paid_at = COALESCE(?, paid_at) WHERE id = ?`,
		status, nullTime(paidAt), id)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return occupancy.ErrPaymentNotFound
	}
	return nil
}

func scanPayment(row rowScanner) (occupancy.Payment, error) {
	var (
		p                                 occupancy.Payment
		residentID, method, paidAt, notes sql.NullString
		idempotencyKey, createdBy         sql.NullString
		amount, createdAt                 string
	)
	err := row.Scan(&p.ID, &p.BookingID, &residentID, &amount, &p.Type, &p.Status, &method, &paidAt,
		&notes, &p.Source, &idempotencyKey, &createdBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}
	var d decoder
	p.ResidentID = occupancy.ResidentID(residentID.String)
	p.Amount = d.money("amount", amount)
	p.Method = method.String
	p.PaidAt = d.nullTime("paid_at", paidAt)
	p.Notes = notes.String
	p.IdempotencyKey = idempotencyKey.String
	p.CreatedBy = occupancy.OperatorID(createdBy.String)
	p.CreatedAt = d.time("created_at", createdAt)
	if d.err != nil {
		return p, fmt.Errorf("failed to decode payment %s: %w", p.ID, d.err)
	}
	return p, nil
}

// =============================================================================
// EXPENSES
// =============================================================================

const expenseColumns = `id, facility_id, title, description, amount, category, status, submitted_by,
	expense_date, idempotency_key, created_at`

func (s *Store) CreateExpense(ctx context.Context, e occupancy.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		nullString(string(e.FacilityID)),
		e.Title,
		nullString(e.Description),
		e.Amount.String(),
		e.Category,
		e.Status,
		nullString(string(e.SubmittedBy)),
		formatTime(e.Date),
		nullString(e.IdempotencyKey),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return occupancy.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (s *Store) FindExpenseByKey(ctx context.Context, idempotencyKey string) (*occupancy.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE idempotency_key = ?`, idempotencyKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListExpenses(ctx context.Context, filter occupancy.ExpenseFilter) ([]occupancy.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	var args []any
	if filter.FacilityID != nil {
		query += ` AND facility_id = ?`
		args = append(args, *filter.FacilityID)
	}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, *filter.Category)
	}
	query += ` ORDER BY expense_date ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []occupancy.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func scanExpense(row rowScanner) (occupancy.Expense, error) {
	var (
		e                                         occupancy.Expense
		facilityID, description, submittedBy, key sql.NullString
		amount, date, createdAt                   string
	)
	err := row.Scan(&e.ID, &facilityID, &e.Title, &description, &amount, &e.Category, &e.Status,
		&submittedBy, &date, &key, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan expense: %w", err)
	}
	var d decoder
	e.FacilityID = occupancy.FacilityID(facilityID.String)
	e.Description = description.String
	e.Amount = d.money("amount", amount)
	e.SubmittedBy = occupancy.OperatorID(submittedBy.String)
	e.Date = d.time("date", date)
	e.IdempotencyKey = key.String
	e.CreatedAt = d.time("created_at", createdAt)
	if d.err != nil {
		return e, fmt.Errorf("failed to decode expense %s: %w", e.ID, d.err)
	}
	return e, nil
}

// =============================================================================
// SETTLEMENT JOURNAL
// =============================================================================

func (s *Store) SaveSettlement(ctx context.Context, rec occupancy.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements
		(booking_id, operator_id, refund_requested, state, completed_steps, failed_step, unknown_outcome, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(booking_id) DO UPDATE SET
			operator_id = excluded.operator_id,
			refund_requested = excluded.refund_requested,
			state = excluded.state,
			completed_steps = excluded.completed_steps,
			failed_step = excluded.failed_step,
			unknown_outcome = excluded.unknown_outcome,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		rec.BookingID,
		nullString(string(rec.OperatorID)),
		rec.RefundRequested,
		rec.State,
		joinSteps(rec.Completed),
		nullString(string(rec.FailedStep)),
		rec.Unknown,
		nullString(rec.Error),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

const settlementColumns = `booking_id, operator_id, refund_requested, state, completed_steps, failed_step,
	unknown_outcome, error, updated_at`

func (s *Store) GetSettlement(ctx context.Context, bookingID occupancy.BookingID) (*occupancy.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE booking_id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) ListSettlements(ctx context.Context, state occupancy.SettlementState) ([]occupancy.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + settlementColumns + ` FROM settlements`
	var args []any
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, state)
	}
	query += ` ORDER BY updated_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var records []occupancy.SettlementRecord
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanSettlement(row rowScanner) (occupancy.SettlementRecord, error) {
	var (
		rec                                   occupancy.SettlementRecord
		operatorID, completed, failed, errStr sql.NullString
		updatedAt                             string
	)
	err := row.Scan(&rec.BookingID, &operatorID, &rec.RefundRequested, &rec.State, &completed, &failed,
		&rec.Unknown, &errStr, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan settlement: %w", err)
	}
	rec.OperatorID = occupancy.OperatorID(operatorID.String)
	rec.Completed = splitSteps(completed.String)
	rec.FailedStep = occupancy.SettlementStep(failed.String)
	rec.Error = errStr.String
	var d decoder
	rec.UpdatedAt = d.time("updated_at", updatedAt)
	if d.err != nil {
		return rec, fmt.Errorf("failed to decode settlement %s: %w", rec.BookingID, d.err)
	}
	return rec, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"settlements", "expenses", "payments", "bookings"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// decoder converts stored text columns and keeps the first failure, so a
// corrupt amount or timestamp fails the scan instead of reading as zero.
type decoder struct {
	err error
}

func (d *decoder) fail(column string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("column %s: %w", column, err)
	}
}

func (d *decoder) time(column, s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		d.fail(column, err)
	}
	return t
}

func (d *decoder) nullTime(column string, s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := d.time(column, s.String)
	return &t
}

func (d *decoder) money(column, s string) occupancy.Money {
	m, err := occupancy.ParseMoney(s)
	if err != nil {
		d.fail(column, err)
	}
	return m
}

func joinSteps(steps []occupancy.SettlementStep) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitSteps(s string) []occupancy.SettlementStep {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	steps := make([]occupancy.SettlementStep, len(parts))
	for i, p := range parts {
		steps[i] = occupancy.SettlementStep(p)
	}
	return steps
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
