package domain

import (
	"context"
	"time"
)

type BookingRepository interface {
	// Write paths
	CreateReservation(ctx context.Context, r Reservation) (int64, error)
	UpdateReservation(ctx context.Context, r Reservation) error
	// UpdateReservationStatus is a conditional write guarded on the current
	// status; returns ErrConflict when the guard misses.
	UpdateReservationStatus(ctx context.Context, id int64, from, to BookingStatus, totalCost int64) error
	AddItem(ctx context.Context, it AncillaryItem) (int64, error)
	DeleteItem(ctx context.Context, id int64) error
	CreateSettlement(ctx context.Context, s Settlement) (int64, error)
	// UpdateSettlementStatus is conditional like UpdateReservationStatus.
	UpdateSettlementStatus(ctx context.Context, id int64, from, to SettlementStatus) error

	// Read paths
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	ListOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) ([]Reservation, error)
	ListReservations(ctx context.Context, q ReservationsQuery) ([]Reservation, error)
	GetItem(ctx context.Context, id int64) (AncillaryItem, error)
	ListItems(ctx context.Context, reservationID int64) ([]AncillaryItem, error)
	GetSettlement(ctx context.Context, id int64) (Settlement, error)
	ListSettlements(ctx context.Context, reservationID int64) ([]Settlement, error)
	ListSettlementsByDate(ctx context.Context, from, to time.Time) ([]Settlement, error)
	ServiceUsage(ctx context.Context, limit int) ([]ServiceUsage, error)
	CountByStatus(ctx context.Context) (map[BookingStatus]int, error)
	CountStaysTouching(ctx context.Context, day time.Time) (checkIns, checkOuts int, err error)
	CountPendingSettlements(ctx context.Context) (int, error)
	TotalRevenue(ctx context.Context) (int64, error)
}

// Catalog is the read-only view of the external room/service/guest systems.
type Catalog interface {
	GetRoom(ctx context.Context, id int64) (Room, error)
	GetService(ctx context.Context, id int64) (Service, error)
	GuestExists(ctx context.Context, id int64) (bool, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Clock lets tests pin "today" for checkout gating.
type Clock interface {
	Now() time.Time
}

// Catalog read models

type Room struct {
	ID       int64
	Type     string
	Capacity int
	Tariff   int64 // minor units per night
	Active   bool
}

type Service struct {
	ID        int64
	Name      string
	UnitPrice int64 // minor units
	Active    bool
}

// Queries & report views

type ReservationsQuery struct {
	RoomID  *int64
	GuestID *int64
	Status  *BookingStatus
	// From/To filter on stay overlap with [From, To).
	From, To *time.Time
	Limit    int
}

type CostLine struct {
	ServiceID int64
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

type CostBreakdown struct {
	Nights        int
	Tariff        int64
	RoomCost      int64
	Services      []CostLine
	ServicesTotal int64
	Total         int64
}

type OccupancyReport struct {
	From, To       time.Time
	RoomNights     int     // active-room capacity over the window
	ReservedNights int     // confirmed/completed reservation nights in the window
	Rate           float64 // ReservedNights / RoomNights, 0 when RoomNights == 0
}

type RevenueReport struct {
	From, To time.Time
	Total    int64
	ByMethod map[SettlementMethod]int64
	ByMonth  map[string]int64 // "2006-01" keys
	Count    int
}

type ServiceUsage struct {
	ServiceID int64
	Quantity  int64
	Revenue   int64
}

type DashboardStats struct {
	Reservations       map[BookingStatus]int
	TodaysCheckIns     int
	TodaysCheckOuts    int
	PendingSettlements int
	TotalRevenue       int64
}
