package app

import (
	"context"
	"fmt"
	"time"

	"stayhub/internal/domain"
)

// ReportService builds read-only occupancy and revenue views. Results are
// cached with a TTL; reports may lag writes slightly.
type ReportService struct {
	repo     domain.BookingRepository
	catalog  domain.Catalog
	cache    domain.Cache
	cacheTTL time.Duration
	clock    domain.Clock
}

func NewReportService(repo domain.BookingRepository, catalog domain.Catalog, cache domain.Cache, ttl time.Duration, clock domain.Clock) *ReportService {
	return &ReportService{repo: repo, catalog: catalog, cache: cache, cacheTTL: ttl, clock: clock}
}

const dateKey = "2006-01-02"

// Occupancy reports reserved room-nights over active room-nights for
// [from, to). Empty windows and empty catalogs yield a zero rate.
func (s *ReportService) Occupancy(ctx context.Context, from, to time.Time) (domain.OccupancyReport, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		return domain.OccupancyReport{}, domain.ErrInvalidRange
	}
	key := fmt.Sprintf("report:occupancy:%s:%s", from.Format(dateKey), to.Format(dateKey))
	var out domain.OccupancyReport
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rooms, err := s.catalog.ListRooms(ctx)
	if err != nil {
		return domain.OccupancyReport{}, err
	}
	active := 0
	for _, room := range rooms {
		if room.Active {
			active++
		}
	}
	days := domain.DaysBetween(from, to)
	out = domain.OccupancyReport{From: from, To: to, RoomNights: active * days}

	if out.RoomNights > 0 {
		rs, err := s.repo.ListReservations(ctx, domain.ReservationsQuery{From: &from, To: &to, Limit: 0})
		if err != nil {
			return domain.OccupancyReport{}, err
		}
		for _, r := range rs {
			if r.Status != domain.BookingConfirmed && r.Status != domain.BookingCompleted {
				continue
			}
			out.ReservedNights += clampNights(r, from, to)
		}
		out.Rate = float64(out.ReservedNights) / float64(out.RoomNights)
	}

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// clampNights counts the nights of r that fall inside [from, to).
func clampNights(r domain.Reservation, from, to time.Time) int {
	start, end := r.CheckIn, r.CheckOut
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !start.Before(end) {
		return 0
	}
	return domain.DaysBetween(start, end)
}

// Revenue sums completed settlements dated in [from, to), with by-method and
// by-month breakdowns.
func (s *ReportService) Revenue(ctx context.Context, from, to time.Time) (domain.RevenueReport, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		return domain.RevenueReport{}, domain.ErrInvalidRange
	}
	key := fmt.Sprintf("report:revenue:%s:%s", from.Format(dateKey), to.Format(dateKey))
	var out domain.RevenueReport
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	ss, err := s.repo.ListSettlementsByDate(ctx, from, to)
	if err != nil {
		return domain.RevenueReport{}, err
	}
	out = domain.RevenueReport{
		From:     from,
		To:       to,
		ByMethod: map[domain.SettlementMethod]int64{},
		ByMonth:  map[string]int64{},
	}
	for _, st := range ss {
		if st.Status != domain.SettlementCompleted {
			continue
		}
		out.Total += st.Amount
		out.ByMethod[st.Method] += st.Amount
		out.ByMonth[st.PaidOn.Format("2006-01")] += st.Amount
		out.Count++
	}

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// ServiceUsage lists the most used ancillary services with their revenue.
func (s *ReportService) ServiceUsage(ctx context.Context) ([]domain.ServiceUsage, error) {
	const key = "report:services"
	var out []domain.ServiceUsage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.repo.ServiceUsage(ctx, 10)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// Dashboard aggregates the front-desk counters for today.
func (s *ReportService) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	today := domain.DateOnly(s.clock.Now())
	key := "report:dashboard:" + today.Format(dateKey)
	var out domain.DashboardStats
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	checkIns, checkOuts, err := s.repo.CountStaysTouching(ctx, today)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	pending, err := s.repo.CountPendingSettlements(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	revenue, err := s.repo.TotalRevenue(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	out = domain.DashboardStats{
		Reservations:       counts,
		TodaysCheckIns:     checkIns,
		TodaysCheckOuts:    checkOuts,
		PendingSettlements: pending,
		TotalRevenue:       revenue,
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}
