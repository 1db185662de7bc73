package domain

import "time"

// BookingStatus is the reservation lifecycle state.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// bookingTransitions is the full transition table. Terminal states have no entry.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status freezes the reservation (no date,
// item, or cost changes afterwards).
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Blocking reports whether a reservation in this status occupies its room
// for availability purposes. Cancelled reservations never block.
func (s BookingStatus) Blocking() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCompleted
}

// Reservation is a claim on one room by one guest over [CheckIn, CheckOut).
// CheckOut is exclusive: checkout day X and check-in day X on the same room
// do not collide.
type Reservation struct {
	ID        int64
	RoomID    int64
	GuestID   int64
	CheckIn   time.Time
	CheckOut  time.Time
	Status    BookingStatus
	TotalCost int64 // minor units; derived, owned by the lifecycle service
}

// Nights returns the stay length in whole nights.
func (r Reservation) Nights() int {
	return DaysBetween(r.CheckIn, r.CheckOut)
}

// Overlaps tests the half-open interval rule against another date range:
// [a,b) and [c,d) overlap iff a < d && c < b.
func (r Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	return r.CheckIn.Before(checkOut) && checkIn.Before(r.CheckOut)
}

// AncillaryItem is a chargeable add-on attached to a reservation. UnitPrice
// is a snapshot of the catalog price at attachment time; Subtotal is frozen
// with it and never re-derived from the catalog.
type AncillaryItem struct {
	ID            int64
	ReservationID int64
	ServiceID     int64
	Quantity      int
	UnitPrice     int64 // minor units at attachment time
	Subtotal      int64 // Quantity * UnitPrice
}

// DateOnly truncates t to a calendar date (UTC midnight).
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
