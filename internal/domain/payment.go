package domain

import "time"

// SettlementStatus is the payment lifecycle state. Transitions are strictly
// one-directional: pending -> completed -> refunded.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
	SettlementRefunded  SettlementStatus = "refunded"
)

type SettlementMethod string

const (
	MethodCash     SettlementMethod = "cash"
	MethodCard     SettlementMethod = "card"
	MethodTransfer SettlementMethod = "transfer"
)

// ValidMethod reports whether m is a known settlement method.
func ValidMethod(m SettlementMethod) bool {
	return m == MethodCash || m == MethodCard || m == MethodTransfer
}

// InitialStatus returns the status a fresh settlement starts in. Cash and
// card settle on the spot; a bank transfer stays pending until confirmed
// externally.
func (m SettlementMethod) InitialStatus() SettlementStatus {
	if m == MethodTransfer {
		return SettlementPending
	}
	return SettlementCompleted
}

// Settlement is one monetary transaction against a reservation's balance.
// A reservation may carry several (partial payments).
type Settlement struct {
	ID            int64
	ReservationID int64
	Amount        int64 // minor units
	Method        SettlementMethod
	Status        SettlementStatus
	PaidOn        time.Time // calendar date
}

// SettledTotal sums completed settlement amounts; refunded settlements no
// longer count toward the balance.
func SettledTotal(ss []Settlement) int64 {
	var sum int64
	for _, s := range ss {
		if s.Status == SettlementCompleted {
			sum += s.Amount
		}
	}
	return sum
}
