package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stayhub/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	nextID       int64
	reservations map[int64]domain.Reservation
	items        map[int64]domain.AncillaryItem
	settlements  map[int64]domain.Settlement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		reservations: map[int64]domain.Reservation{},
		items:        map[int64]domain.AncillaryItem{},
		settlements:  map[int64]domain.Settlement{},
	}
}

func (f *fakeRepo) id() int64 { f.nextID++; return f.nextID }

func (f *fakeRepo) CreateReservation(ctx context.Context, r domain.Reservation) (int64, error) {
	r.ID = f.id()
	f.reservations[r.ID] = r
	return r.ID, nil
}

func (f *fakeRepo) GetReservation(ctx context.Context, id int64) (domain.Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (f *fakeRepo) UpdateReservation(ctx context.Context, r domain.Reservation) error {
	cur, ok := f.reservations[r.ID]
	if !ok || cur.Status != r.Status {
		return domain.ErrConflict
	}
	f.reservations[r.ID] = r
	return nil
}

func (f *fakeRepo) UpdateReservationStatus(ctx context.Context, id int64, from, to domain.BookingStatus, totalCost int64) error {
	cur, ok := f.reservations[id]
	if !ok || cur.Status != from {
		return domain.ErrConflict
	}
	cur.Status = to
	cur.TotalCost = totalCost
	f.reservations[id] = cur
	return nil
}

func (f *fakeRepo) ListOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range f.reservations {
		if r.RoomID != roomID || r.ID == excludeID || !r.Status.Blocking() {
			continue
		}
		if r.Overlaps(checkIn, checkOut) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListReservations(ctx context.Context, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range f.reservations {
		if q.RoomID != nil && r.RoomID != *q.RoomID {
			continue
		}
		if q.GuestID != nil && r.GuestID != *q.GuestID {
			continue
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		if q.From != nil && q.To != nil && !r.Overlaps(*q.From, *q.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) AddItem(ctx context.Context, it domain.AncillaryItem) (int64, error) {
	it.ID = f.id()
	f.items[it.ID] = it
	return it.ID, nil
}

func (f *fakeRepo) GetItem(ctx context.Context, id int64) (domain.AncillaryItem, error) {
	it, ok := f.items[id]
	if !ok {
		return domain.AncillaryItem{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

func (f *fakeRepo) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeRepo) ListItems(ctx context.Context, reservationID int64) ([]domain.AncillaryItem, error) {
	var out []domain.AncillaryItem
	for _, it := range f.items {
		if it.ReservationID == reservationID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateSettlement(ctx context.Context, s domain.Settlement) (int64, error) {
	s.ID = f.id()
	f.settlements[s.ID] = s
	return s.ID, nil
}

func (f *fakeRepo) GetSettlement(ctx context.Context, id int64) (domain.Settlement, error) {
	s, ok := f.settlements[id]
	if !ok {
		return domain.Settlement{}, fmt.Errorf("settlement %d: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

func (f *fakeRepo) UpdateSettlementStatus(ctx context.Context, id int64, from, to domain.SettlementStatus) error {
	s, ok := f.settlements[id]
	if !ok || s.Status != from {
		return domain.ErrConflict
	}
	s.Status = to
	f.settlements[id] = s
	return nil
}

func (f *fakeRepo) ListSettlements(ctx context.Context, reservationID int64) ([]domain.Settlement, error) {
	var out []domain.Settlement
	for _, s := range f.settlements {
		if s.ReservationID == reservationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListSettlementsByDate(ctx context.Context, from, to time.Time) ([]domain.Settlement, error) {
	var out []domain.Settlement
	for _, s := range f.settlements {
		if !s.PaidOn.Before(from) && s.PaidOn.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ServiceUsage(ctx context.Context, limit int) ([]domain.ServiceUsage, error) {
	agg := map[int64]*domain.ServiceUsage{}
	for _, it := range f.items {
		u, ok := agg[it.ServiceID]
		if !ok {
			u = &domain.ServiceUsage{ServiceID: it.ServiceID}
			agg[it.ServiceID] = u
		}
		u.Quantity += int64(it.Quantity)
		u.Revenue += it.Subtotal
	}
	var out []domain.ServiceUsage
	for _, u := range agg {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRepo) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	out := map[domain.BookingStatus]int{}
	for _, r := range f.reservations {
		out[r.Status]++
	}
	return out, nil
}

func (f *fakeRepo) CountStaysTouching(ctx context.Context, day time.Time) (int, int, error) {
	var ins, outs int
	for _, r := range f.reservations {
		if r.CheckIn.Equal(day) && (r.Status == domain.BookingPending || r.Status == domain.BookingConfirmed) {
			ins++
		}
		if r.CheckOut.Equal(day) && (r.Status == domain.BookingConfirmed || r.Status == domain.BookingCompleted) {
			outs++
		}
	}
	return ins, outs, nil
}

func (f *fakeRepo) CountPendingSettlements(ctx context.Context) (int, error) {
	n := 0
	for _, s := range f.settlements {
		if s.Status == domain.SettlementPending {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) TotalRevenue(ctx context.Context) (int64, error) {
	var total int64
	for _, s := range f.settlements {
		if s.Status == domain.SettlementCompleted {
			total += s.Amount
		}
	}
	return total, nil
}

type fakeCatalog struct {
	rooms    map[int64]domain.Room
	services map[int64]domain.Service
	guests   map[int64]bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		rooms:    map[int64]domain.Room{},
		services: map[int64]domain.Service{},
		guests:   map[int64]bool{},
	}
}

func (c *fakeCatalog) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	r, ok := c.rooms[id]
	if !ok {
		return domain.Room{}, fmt.Errorf("room %d: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (c *fakeCatalog) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	for _, r := range c.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (c *fakeCatalog) GetService(ctx context.Context, id int64) (domain.Service, error) {
	s, ok := c.services[id]
	if !ok {
		return domain.Service{}, fmt.Errorf("service %d: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

func (c *fakeCatalog) GuestExists(ctx context.Context, id int64) (bool, error) {
	return c.guests[id], nil
}

type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
