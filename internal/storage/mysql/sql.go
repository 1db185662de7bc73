package mysql

const insertReservationSQL = `
INSERT INTO reservations
  (room_id, guest_id, check_in, check_out, status, total_cost)
VALUES
  (?, ?, ?, ?, ?, ?)
`

// Guarded on the status read by the caller so a concurrent transition
// surfaces as zero rows affected.
const updateReservationSQL = `
UPDATE reservations
SET room_id    = ?,
    check_in   = ?,
    check_out  = ?,
    total_cost = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`

const updateReservationStatusSQL = `
UPDATE reservations
SET status     = ?,
    total_cost = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`

const getReservationSQL = `
SELECT id, room_id, guest_id, check_in, check_out, status, total_cost
FROM reservations
WHERE id = ?
`

// Half-open overlap: [check_in, check_out) meets [?, ?) iff
// check_in < new_out AND new_in < check_out. Cancelled never blocks.
const listOverlappingSQL = `
SELECT id, room_id, guest_id, check_in, check_out, status, total_cost
FROM reservations
WHERE room_id = ?
  AND status IN ('pending', 'confirmed', 'completed')
  AND check_in < ?
  AND ? < check_out
  AND id <> ?
`

const insertItemSQL = `
INSERT INTO reservation_items
  (reservation_id, service_id, quantity, unit_price, subtotal)
VALUES
  (?, ?, ?, ?, ?)
`

const getItemSQL = `
SELECT id, reservation_id, service_id, quantity, unit_price, subtotal
FROM reservation_items
WHERE id = ?
`

const deleteItemSQL = `DELETE FROM reservation_items WHERE id = ?`

const listItemsSQL = `
SELECT id, reservation_id, service_id, quantity, unit_price, subtotal
FROM reservation_items
WHERE reservation_id = ?
ORDER BY id
`

const insertSettlementSQL = `
INSERT INTO settlements
  (reservation_id, amount, method, status, paid_on)
VALUES
  (?, ?, ?, ?, ?)
`

const getSettlementSQL = `
SELECT id, reservation_id, amount, method, status, paid_on
FROM settlements
WHERE id = ?
`

const updateSettlementStatusSQL = `
UPDATE settlements
SET status = ?
WHERE id = ? AND status = ?
`

const listSettlementsSQL = `
SELECT id, reservation_id, amount, method, status, paid_on
FROM settlements
WHERE reservation_id = ?
ORDER BY id
`

const listSettlementsByDateSQL = `
SELECT id, reservation_id, amount, method, status, paid_on
FROM settlements
WHERE paid_on >= ? AND paid_on < ?
ORDER BY paid_on, id
`

const serviceUsageSQL = `
SELECT service_id, SUM(quantity), SUM(subtotal)
FROM reservation_items
GROUP BY service_id
ORDER BY SUM(quantity) DESC, service_id
LIMIT ?
`

const countByStatusSQL = `
SELECT status, COUNT(*)
FROM reservations
GROUP BY status
`

const countCheckInsSQL = `
SELECT COUNT(*)
FROM reservations
WHERE check_in = ? AND status IN ('pending', 'confirmed')
`

const countCheckOutsSQL = `
SELECT COUNT(*)
FROM reservations
WHERE check_out = ? AND status IN ('confirmed', 'completed')
`

const countPendingSettlementsSQL = `
SELECT COUNT(*)
FROM settlements
WHERE status = 'pending'
`

const totalRevenueSQL = `
SELECT COALESCE(SUM(amount), 0)
FROM settlements
WHERE status = 'completed'
`
