package app

import (
	"context"
	"time"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

// BookingService owns the reservation lifecycle: availability validation,
// cost computation, and status transitions. It is the only writer of a
// reservation's status and total cost.
type BookingService struct {
	repo       domain.BookingRepository
	catalog    domain.Catalog
	clock      domain.Clock
	minDeposit int64 // completed-settlement threshold for confirmation
}

func NewBookingService(repo domain.BookingRepository, catalog domain.Catalog, clock domain.Clock, minDeposit int64) *BookingService {
	if minDeposit < 1 {
		minDeposit = 1 // default: any positive completed settlement
	}
	return &BookingService{
		repo:       repo,
		catalog:    catalog,
		clock:      clock,
		minDeposit: minDeposit,
	}
}

// CheckAvailability reports whether roomID is free for [checkIn, checkOut).
// excludeID skips one reservation, used for self-exclusion during updates.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	checkIn, checkOut = domain.DateOnly(checkIn), domain.DateOnly(checkOut)
	if !checkIn.Before(checkOut) {
		return false, domain.ErrInvalidRange
	}
	room, err := s.catalog.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !room.Active {
		return false, domain.ErrRoomUnavailable
	}
	conflicts, err := s.repo.ListOverlapping(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// AvailableRooms returns every active room free for the whole range.
func (s *BookingService) AvailableRooms(ctx context.Context, checkIn, checkOut time.Time) ([]domain.Room, error) {
	checkIn, checkOut = domain.DateOnly(checkIn), domain.DateOnly(checkOut)
	if !checkIn.Before(checkOut) {
		return nil, domain.ErrInvalidRange
	}
	rooms, err := s.catalog.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Room
	for _, room := range rooms {
		if !room.Active {
			continue
		}
		conflicts, err := s.repo.ListOverlapping(ctx, room.ID, checkIn, checkOut, 0)
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			out = append(out, room)
		}
	}
	return out, nil
}

// Create books roomID for guestID over [checkIn, checkOut). The room lock is
// held across the availability check and the insert so concurrent requests
// cannot both pass the check and commit overlapping stays.
func (s *BookingService) Create(ctx context.Context, roomID, guestID int64, checkIn, checkOut time.Time) (domain.Reservation, error) {
	checkIn, checkOut = domain.DateOnly(checkIn), domain.DateOnly(checkOut)
	if !checkIn.Before(checkOut) {
		return domain.Reservation{}, domain.ErrInvalidRange
	}
	ok, err := s.catalog.GuestExists(ctx, guestID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !ok {
		return domain.Reservation{}, domain.ErrUnknownGuest
	}
	room, err := s.catalog.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !room.Active {
		return domain.Reservation{}, domain.ErrRoomUnavailable
	}

	unlock := locks.lock(roomKey(roomID))
	defer unlock()

	conflicts, err := s.repo.ListOverlapping(ctx, roomID, checkIn, checkOut, 0)
	if err != nil {
		return domain.Reservation{}, err
	}
	if len(conflicts) > 0 {
		observability.ObserveAvailabilityConflict()
		return domain.Reservation{}, domain.ErrRoomUnavailable
	}

	r := domain.Reservation{
		RoomID:   roomID,
		GuestID:  guestID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Status:   domain.BookingPending,
	}
	r.TotalCost = int64(r.Nights()) * room.Tariff
	id, err := s.repo.CreateReservation(ctx, r)
	if err != nil {
		return domain.Reservation{}, err
	}
	r.ID = id
	return r, nil
}

// UpdatePatch carries optional changes for Update. Nil fields keep the
// current value. Room changes are allowed only while pending; date changes
// while pending or confirmed.
type UpdatePatch struct {
	CheckIn  *time.Time
	CheckOut *time.Time
	RoomID   *int64
}

func (s *BookingService) Update(ctx context.Context, id int64, patch UpdatePatch) (domain.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if r.Status.Terminal() {
		return domain.Reservation{}, domain.ErrRecalcNotAllowed
	}
	if patch.RoomID != nil && *patch.RoomID != r.RoomID && r.Status != domain.BookingPending {
		return domain.Reservation{}, domain.ErrRoomChangeNotAllowed
	}

	next := r
	if patch.CheckIn != nil {
		next.CheckIn = domain.DateOnly(*patch.CheckIn)
	}
	if patch.CheckOut != nil {
		next.CheckOut = domain.DateOnly(*patch.CheckOut)
	}
	if patch.RoomID != nil {
		next.RoomID = *patch.RoomID
	}
	if !next.CheckIn.Before(next.CheckOut) {
		return domain.Reservation{}, domain.ErrInvalidRange
	}

	room, err := s.catalog.GetRoom(ctx, next.RoomID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !room.Active {
		return domain.Reservation{}, domain.ErrRoomUnavailable
	}

	unlock := locks.lock(roomKey(next.RoomID))
	defer unlock()

	conflicts, err := s.repo.ListOverlapping(ctx, next.RoomID, next.CheckIn, next.CheckOut, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if len(conflicts) > 0 {
		observability.ObserveAvailabilityConflict()
		return domain.Reservation{}, domain.ErrRoomUnavailable
	}

	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	next.TotalCost = int64(next.Nights())*room.Tariff + itemsTotal(items)

	// guarded on the status we read; a concurrent transition surfaces as ErrConflict
	if err := s.repo.UpdateReservation(ctx, next); err != nil {
		return domain.Reservation{}, err
	}
	return next, nil
}

// Confirm moves pending -> confirmed once the deposit threshold is met. Like
// Complete, it holds the reservation lock so the threshold check and the
// status write see the same ledger state.
func (s *BookingService) Confirm(ctx context.Context, id int64) (domain.Reservation, error) {
	unlock := locks.lock(reservationKey(id))
	defer unlock()

	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !domain.CanTransition(r.Status, domain.BookingConfirmed) {
		return domain.Reservation{}, &domain.TransitionError{From: r.Status, To: domain.BookingConfirmed}
	}
	ss, err := s.repo.ListSettlements(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if domain.SettledTotal(ss) < s.minDeposit {
		return domain.Reservation{}, domain.ErrDepositRequired
	}
	if err := s.transition(ctx, &r, domain.BookingConfirmed); err != nil {
		return domain.Reservation{}, err
	}
	return r, nil
}

// Cancel moves pending/confirmed -> cancelled, releasing the room's interval.
// Completed settlements become eligible for refund processing but are not
// refunded here.
func (s *BookingService) Cancel(ctx context.Context, id int64) (domain.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !domain.CanTransition(r.Status, domain.BookingCancelled) {
		return domain.Reservation{}, &domain.TransitionError{From: r.Status, To: domain.BookingCancelled}
	}
	if err := s.transition(ctx, &r, domain.BookingCancelled); err != nil {
		return domain.Reservation{}, err
	}
	return r, nil
}

// Complete moves confirmed -> completed once the checkout date has passed
// and nothing is owed. The total is frozen at this transition. The
// reservation lock is held across the balance read and the status write so a
// concurrent refund cannot reopen the balance in between.
func (s *BookingService) Complete(ctx context.Context, id int64) (domain.Reservation, error) {
	unlock := locks.lock(reservationKey(id))
	defer unlock()

	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !domain.CanTransition(r.Status, domain.BookingCompleted) {
		return domain.Reservation{}, &domain.TransitionError{From: r.Status, To: domain.BookingCompleted}
	}
	if domain.DateOnly(s.clock.Now()).Before(r.CheckOut) {
		return domain.Reservation{}, &domain.TransitionError{From: r.Status, To: domain.BookingCompleted}
	}
	ss, err := s.repo.ListSettlements(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if r.TotalCost-domain.SettledTotal(ss) > 0 {
		return domain.Reservation{}, domain.ErrBalanceOutstanding
	}
	if err := s.transition(ctx, &r, domain.BookingCompleted); err != nil {
		return domain.Reservation{}, err
	}
	return r, nil
}

// transition commits a conditional status write and advances r on success.
func (s *BookingService) transition(ctx context.Context, r *domain.Reservation, to domain.BookingStatus) error {
	if err := s.repo.UpdateReservationStatus(ctx, r.ID, r.Status, to, r.TotalCost); err != nil {
		return err
	}
	observability.ObserveTransition(string(r.Status), string(to))
	r.Status = to
	return nil
}

// AddService attaches a chargeable item, snapshotting the catalog price, and
// recomputes the total. Items are editable only while pending or confirmed.
func (s *BookingService) AddService(ctx context.Context, reservationID, serviceID int64, quantity int) (domain.AncillaryItem, error) {
	if quantity < 1 {
		return domain.AncillaryItem{}, domain.ErrInvalidQuantity
	}
	unlock := locks.lock(reservationKey(reservationID))
	defer unlock()

	r, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return domain.AncillaryItem{}, err
	}
	if r.Status.Terminal() {
		return domain.AncillaryItem{}, domain.ErrItemsFrozen
	}
	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return domain.AncillaryItem{}, err
	}
	if !svc.Active {
		return domain.AncillaryItem{}, domain.ErrServiceUnavailable
	}

	it := domain.AncillaryItem{
		ReservationID: reservationID,
		ServiceID:     serviceID,
		Quantity:      quantity,
		UnitPrice:     svc.UnitPrice,
		Subtotal:      int64(quantity) * svc.UnitPrice,
	}
	itemID, err := s.repo.AddItem(ctx, it)
	if err != nil {
		return domain.AncillaryItem{}, err
	}
	it.ID = itemID

	if err := s.recompute(ctx, r); err != nil {
		return domain.AncillaryItem{}, err
	}
	return it, nil
}

// RemoveService detaches an item and recomputes the total.
func (s *BookingService) RemoveService(ctx context.Context, reservationID, itemID int64) error {
	unlock := locks.lock(reservationKey(reservationID))
	defer unlock()

	r, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if r.Status.Terminal() {
		return domain.ErrItemsFrozen
	}
	it, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if it.ReservationID != reservationID {
		return domain.ErrNotFound
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	return s.recompute(ctx, r)
}

// recompute re-derives the total from the current catalog tariff and the
// attached items. Callers must hold the reservation lock and have verified
// the reservation is not frozen.
func (s *BookingService) recompute(ctx context.Context, r domain.Reservation) error {
	if r.Status.Terminal() {
		return domain.ErrRecalcNotAllowed
	}
	room, err := s.catalog.GetRoom(ctx, r.RoomID)
	if err != nil {
		return err
	}
	items, err := s.repo.ListItems(ctx, r.ID)
	if err != nil {
		return err
	}
	r.TotalCost = int64(r.Nights())*room.Tariff + itemsTotal(items)
	return s.repo.UpdateReservation(ctx, r)
}

// Cost reports the stored totals without recomputation, so frozen
// reservations never drift after catalog tariff changes.
func (s *BookingService) Cost(ctx context.Context, id int64) (domain.CostBreakdown, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.CostBreakdown{}, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return domain.CostBreakdown{}, err
	}
	bd := domain.CostBreakdown{
		Nights:        r.Nights(),
		ServicesTotal: itemsTotal(items),
		Total:         r.TotalCost,
	}
	for _, it := range items {
		bd.Services = append(bd.Services, domain.CostLine{
			ServiceID: it.ServiceID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	bd.RoomCost = bd.Total - bd.ServicesTotal
	if bd.Nights > 0 {
		bd.Tariff = bd.RoomCost / int64(bd.Nights)
	}
	return bd, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *BookingService) List(ctx context.Context, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}
	return s.repo.ListReservations(ctx, q)
}

func itemsTotal(items []domain.AncillaryItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Subtotal
	}
	return sum
}
