package occupancy

import "time"

// =============================================================================
// STAY - The occupancy period of a booking
// =============================================================================

// Stay is the period a resident occupies a room. CheckOut is nil while the
// stay is open-ended.
type Stay struct {
	CheckIn  time.Time
	CheckOut *time.Time
}

// Validate rejects a check-out that precedes check-in.
func (s Stay) Validate() error {
	if s.CheckOut != nil && s.CheckOut.Before(s.CheckIn) {
		return ErrInvalidStay
	}
	return nil
}

// Contains returns true if t falls within [CheckIn, CheckOut].
// An open stay contains every instant from CheckIn on.
func (s Stay) Contains(t time.Time) bool {
	if t.Before(s.CheckIn) {
		return false
	}
	return s.CheckOut == nil || !t.After(*s.CheckOut)
}

// Nights returns the number of whole nights between check-in and check-out,
// measured up to asOf for an open stay.
func (s Stay) Nights(asOf time.Time) int {
	end := asOf
	if s.CheckOut != nil {
		end = *s.CheckOut
	}
	in := truncateDay(s.CheckIn)
	out := truncateDay(end)
	if !out.After(in) {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// String returns a string representation of the stay.
func (s Stay) String() string {
	out := "open"
	if s.CheckOut != nil {
		out = s.CheckOut.Format(time.DateOnly)
	}
	return "[" + s.CheckIn.Format(time.DateOnly) + ", " + out + "]"
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
