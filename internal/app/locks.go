package app

import (
	"fmt"
	"sync"
)

// keyRing hands out one mutex per key so that check-then-act sequences
// (availability check + commit, balance check + settlement insert) are
// serialized per room or per reservation. Entries are never released; the
// key space is bounded by the room catalog and the reservation table.
type keyRing struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyRing() *keyRing {
	return &keyRing{locks: make(map[string]*sync.Mutex)}
}

// locks is shared by every service in the process, so the booking and ledger
// sides contend on the same mutex for a given reservation.
var locks = newKeyRing()

// lock acquires the mutex for key and returns its release func.
func (k *keyRing) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func roomKey(id int64) string        { return fmt.Sprintf("room:%d", id) }
func reservationKey(id int64) string { return fmt.Sprintf("reservation:%d", id) }
