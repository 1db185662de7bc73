package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"stayhub/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

const dateFmt = "2006-01-02"

// ---- reservations ----

func (r *Repo) CreateReservation(ctx context.Context, res domain.Reservation) (int64, error) {
	out, err := r.db.ExecContext(ctx, insertReservationSQL,
		res.RoomID, res.GuestID,
		res.CheckIn.Format(dateFmt), res.CheckOut.Format(dateFmt),
		string(res.Status), res.TotalCost,
	)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

func (r *Repo) GetReservation(ctx context.Context, id int64) (domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx, getReservationSQL, id)
	res, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return domain.Reservation{}, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return res, err
}

func (r *Repo) UpdateReservation(ctx context.Context, res domain.Reservation) error {
	out, err := r.db.ExecContext(ctx, updateReservationSQL,
		res.RoomID,
		res.CheckIn.Format(dateFmt), res.CheckOut.Format(dateFmt),
		res.TotalCost,
		res.ID, string(res.Status),
	)
	if err != nil {
		return err
	}
	return affectedOrConflict(out)
}

func (r *Repo) UpdateReservationStatus(ctx context.Context, id int64, from, to domain.BookingStatus, totalCost int64) error {
	out, err := r.db.ExecContext(ctx, updateReservationStatusSQL,
		string(to), totalCost, id, string(from),
	)
	if err != nil {
		return err
	}
	return affectedOrConflict(out)
}

func (r *Repo) ListOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, listOverlappingSQL,
		roomID, checkOut.Format(dateFmt), checkIn.Format(dateFmt), excludeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (r *Repo) ListReservations(ctx context.Context, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if q.RoomID != nil {
		where = append(where, "room_id = ?")
		args = append(args, *q.RoomID)
	}
	if q.GuestID != nil {
		where = append(where, "guest_id = ?")
		args = append(args, *q.GuestID)
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.From != nil && q.To != nil {
		// stay overlaps [From, To)
		where = append(where, "check_in < ? AND ? < check_out")
		args = append(args, q.To.Format(dateFmt), q.From.Format(dateFmt))
	}

	sqlStr := "SELECT id, room_id, guest_id, check_in, check_out, status, total_cost FROM reservations"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY check_in, id"
	if q.Limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// ---- ancillary items ----

func (r *Repo) AddItem(ctx context.Context, it domain.AncillaryItem) (int64, error) {
	out, err := r.db.ExecContext(ctx, insertItemSQL,
		it.ReservationID, it.ServiceID, it.Quantity, it.UnitPrice, it.Subtotal,
	)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

func (r *Repo) GetItem(ctx context.Context, id int64) (domain.AncillaryItem, error) {
	var it domain.AncillaryItem
	err := r.db.QueryRowContext(ctx, getItemSQL, id).Scan(
		&it.ID, &it.ReservationID, &it.ServiceID, &it.Quantity, &it.UnitPrice, &it.Subtotal,
	)
	if err == sql.ErrNoRows {
		return domain.AncillaryItem{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return it, err
}

func (r *Repo) DeleteItem(ctx context.Context, id int64) error {
	out, err := r.db.ExecContext(ctx, deleteItemSQL, id)
	if err != nil {
		return err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repo) ListItems(ctx context.Context, reservationID int64) ([]domain.AncillaryItem, error) {
	rows, err := r.db.QueryContext(ctx, listItemsSQL, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AncillaryItem
	for rows.Next() {
		var it domain.AncillaryItem
		if err := rows.Scan(&it.ID, &it.ReservationID, &it.ServiceID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ---- settlements ----

func (r *Repo) CreateSettlement(ctx context.Context, s domain.Settlement) (int64, error) {
	out, err := r.db.ExecContext(ctx, insertSettlementSQL,
		s.ReservationID, s.Amount, string(s.Method), string(s.Status), s.PaidOn.Format(dateFmt),
	)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

func (r *Repo) GetSettlement(ctx context.Context, id int64) (domain.Settlement, error) {
	row := r.db.QueryRowContext(ctx, getSettlementSQL, id)
	s, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return domain.Settlement{}, fmt.Errorf("settlement %d: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (r *Repo) UpdateSettlementStatus(ctx context.Context, id int64, from, to domain.SettlementStatus) error {
	out, err := r.db.ExecContext(ctx, updateSettlementStatusSQL, string(to), id, string(from))
	if err != nil {
		return err
	}
	return affectedOrConflict(out)
}

func (r *Repo) ListSettlements(ctx context.Context, reservationID int64) ([]domain.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, listSettlementsSQL, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSettlements(rows)
}

func (r *Repo) ListSettlementsByDate(ctx context.Context, from, to time.Time) ([]domain.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, listSettlementsByDateSQL, from.Format(dateFmt), to.Format(dateFmt))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSettlements(rows)
}

// ---- aggregates ----

func (r *Repo) ServiceUsage(ctx context.Context, limit int) ([]domain.ServiceUsage, error) {
	rows, err := r.db.QueryContext(ctx, serviceUsageSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServiceUsage
	for rows.Next() {
		var u domain.ServiceUsage
		if err := rows.Scan(&u.ServiceID, &u.Quantity, &u.Revenue); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, countByStatusSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.BookingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[domain.BookingStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *Repo) CountStaysTouching(ctx context.Context, day time.Time) (int, int, error) {
	d := day.Format(dateFmt)
	var checkIns, checkOuts int
	if err := r.db.QueryRowContext(ctx, countCheckInsSQL, d).Scan(&checkIns); err != nil {
		return 0, 0, err
	}
	if err := r.db.QueryRowContext(ctx, countCheckOutsSQL, d).Scan(&checkOuts); err != nil {
		return 0, 0, err
	}
	return checkIns, checkOuts, nil
}

func (r *Repo) CountPendingSettlements(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countPendingSettlementsSQL).Scan(&n)
	return n, err
}

func (r *Repo) TotalRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, totalRevenueSQL).Scan(&total)
	return total, err
}

// ---- scanning helpers ----

type rowScanner interface{ Scan(dest ...any) error }

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	if err := row.Scan(&res.ID, &res.RoomID, &res.GuestID, &res.CheckIn, &res.CheckOut, &status, &res.TotalCost); err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.BookingStatus(status)
	res.CheckIn = domain.DateOnly(res.CheckIn)
	res.CheckOut = domain.DateOnly(res.CheckOut)
	return res, nil
}

func scanReservations(rows *sql.Rows) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanSettlement(row rowScanner) (domain.Settlement, error) {
	var s domain.Settlement
	var method, status string
	if err := row.Scan(&s.ID, &s.ReservationID, &s.Amount, &method, &status, &s.PaidOn); err != nil {
		return domain.Settlement{}, err
	}
	s.Method = domain.SettlementMethod(method)
	s.Status = domain.SettlementStatus(status)
	s.PaidOn = domain.DateOnly(s.PaidOn)
	return s, nil
}

func scanSettlements(rows *sql.Rows) ([]domain.Settlement, error) {
	var out []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// affectedOrConflict translates a missed conditional write into ErrConflict.
func affectedOrConflict(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConflict
	}
	return nil
}
