package app

import (
	"context"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

// LedgerService records settlements against reservations and owns the
// settlement status machine. It is coupled to the booking lifecycle only
// through the outstanding-balance query.
type LedgerService struct {
	repo      domain.BookingRepository
	clock     domain.Clock
	tolerance int64 // permitted overshoot of completed settlements, minor units
}

func NewLedgerService(repo domain.BookingRepository, clock domain.Clock, tolerance int64) *LedgerService {
	if tolerance < 0 {
		tolerance = 0
	}
	return &LedgerService{
		repo:      repo,
		clock:     clock,
		tolerance: tolerance,
	}
}

// Record creates a settlement. Cash and card settle immediately; a transfer
// starts pending and must be confirmed. The reservation lock is held across
// the overpayment check and the insert.
func (s *LedgerService) Record(ctx context.Context, reservationID, amount int64, method domain.SettlementMethod) (domain.Settlement, error) {
	if amount <= 0 {
		return domain.Settlement{}, domain.ErrInvalidAmount
	}
	if !domain.ValidMethod(method) {
		return domain.Settlement{}, domain.ErrInvalidMethod
	}

	unlock := locks.lock(reservationKey(reservationID))
	defer unlock()

	r, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return domain.Settlement{}, err
	}
	st := domain.Settlement{
		ReservationID: reservationID,
		Amount:        amount,
		Method:        method,
		Status:        method.InitialStatus(),
		PaidOn:        domain.DateOnly(s.clock.Now()),
	}
	if st.Status == domain.SettlementCompleted {
		if err := s.checkOverpayment(ctx, r, amount); err != nil {
			return domain.Settlement{}, err
		}
	}
	id, err := s.repo.CreateSettlement(ctx, st)
	if err != nil {
		return domain.Settlement{}, err
	}
	st.ID = id
	observability.ObserveSettlement(string(method), string(st.Status))
	return st, nil
}

// Confirm completes a pending settlement (external transfer confirmation).
// The overpayment invariant is enforced here, where the amount first counts
// toward the balance.
func (s *LedgerService) Confirm(ctx context.Context, settlementID int64) (domain.Settlement, error) {
	st, err := s.repo.GetSettlement(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if st.Status != domain.SettlementPending {
		return domain.Settlement{}, domain.ErrSettlementNotPending
	}

	unlock := locks.lock(reservationKey(st.ReservationID))
	defer unlock()

	r, err := s.repo.GetReservation(ctx, st.ReservationID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if err := s.checkOverpayment(ctx, r, st.Amount); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.repo.UpdateSettlementStatus(ctx, settlementID, domain.SettlementPending, domain.SettlementCompleted); err != nil {
		return domain.Settlement{}, err
	}
	st.Status = domain.SettlementCompleted
	observability.ObserveSettlement(string(st.Method), string(st.Status))
	return st, nil
}

// Refund moves a completed settlement to refunded. There is no way back.
// The reservation lock keeps the refund out of the completion path's
// balance-check window.
func (s *LedgerService) Refund(ctx context.Context, settlementID int64) (domain.Settlement, error) {
	st, err := s.repo.GetSettlement(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if st.Status != domain.SettlementCompleted {
		return domain.Settlement{}, domain.ErrInvalidRefund
	}

	unlock := locks.lock(reservationKey(st.ReservationID))
	defer unlock()

	if err := s.repo.UpdateSettlementStatus(ctx, settlementID, domain.SettlementCompleted, domain.SettlementRefunded); err != nil {
		return domain.Settlement{}, err
	}
	st.Status = domain.SettlementRefunded
	observability.ObserveSettlement(string(st.Method), string(st.Status))
	return st, nil
}

// Outstanding returns total cost minus completed settlements. Refunded
// settlements count back into the balance by no longer counting as paid.
func (s *LedgerService) Outstanding(ctx context.Context, reservationID int64) (int64, error) {
	r, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return 0, err
	}
	ss, err := s.repo.ListSettlements(ctx, reservationID)
	if err != nil {
		return 0, err
	}
	return r.TotalCost - domain.SettledTotal(ss), nil
}

func (s *LedgerService) ListForReservation(ctx context.Context, reservationID int64) ([]domain.Settlement, error) {
	if _, err := s.repo.GetReservation(ctx, reservationID); err != nil {
		return nil, err
	}
	return s.repo.ListSettlements(ctx, reservationID)
}

// checkOverpayment rejects amounts that would push completed settlements
// past the reservation total plus the configured tolerance.
func (s *LedgerService) checkOverpayment(ctx context.Context, r domain.Reservation, amount int64) error {
	ss, err := s.repo.ListSettlements(ctx, r.ID)
	if err != nil {
		return err
	}
	if domain.SettledTotal(ss)+amount > r.TotalCost+s.tolerance {
		return domain.ErrOverpayment
	}
	return nil
}
