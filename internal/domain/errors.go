package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidRange         = errors.New("check-out must be after check-in")
	ErrRoomUnavailable      = errors.New("room unavailable")
	ErrRecalcNotAllowed     = errors.New("cost is frozen")
	ErrOverpayment          = errors.New("settlement exceeds outstanding balance")
	ErrInvalidRefund        = errors.New("settlement not refundable")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidMethod        = errors.New("unknown settlement method")
	ErrItemsFrozen          = errors.New("reservation no longer accepts item changes")
	ErrConflict             = errors.New("concurrent update, retry")
	ErrDepositRequired      = errors.New("confirmation requires a completed settlement")
	ErrBalanceOutstanding   = errors.New("outstanding balance prevents completion")
	ErrSettlementNotPending = errors.New("settlement is not pending")
	ErrRoomChangeNotAllowed = errors.New("room can change only while pending")
	ErrUnknownGuest         = errors.New("guest not registered")
	ErrServiceUnavailable   = errors.New("service inactive")
)

// TransitionError reports an illegal lifecycle move, naming both states.
type TransitionError struct {
	From, To BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.From, e.To)
}

// ErrInvalidTransition matches any *TransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
