package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"stayhub/internal/app"
	"stayhub/internal/domain"
)

type Handlers struct {
	Bookings *app.BookingService
	Ledger   *app.LedgerService
	Reports  *app.ReportService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/rooms/{id}/availability", h.checkAvailability)
	s.mux.Get("/v1/rooms/available", h.availableRooms)

	s.mux.Post("/v1/reservations", h.createReservation)
	s.mux.Get("/v1/reservations", h.listReservations)
	s.mux.Get("/v1/reservations/{id}", h.getReservation)
	s.mux.Patch("/v1/reservations/{id}", h.updateReservation)
	s.mux.Post("/v1/reservations/{id}/confirm", h.confirmReservation)
	s.mux.Post("/v1/reservations/{id}/cancel", h.cancelReservation)
	s.mux.Post("/v1/reservations/{id}/complete", h.completeReservation)
	s.mux.Get("/v1/reservations/{id}/cost", h.cost)

	s.mux.Post("/v1/reservations/{id}/services", h.addService)
	s.mux.Delete("/v1/reservations/{id}/services/{itemID}", h.removeService)

	s.mux.Post("/v1/reservations/{id}/settlements", h.recordSettlement)
	s.mux.Get("/v1/reservations/{id}/settlements", h.listSettlements)
	s.mux.Post("/v1/settlements/{id}/confirm", h.confirmSettlement)
	s.mux.Post("/v1/settlements/{id}/refund", h.refundSettlement)

	s.mux.Get("/v1/reports/occupancy", h.occupancyReport)
	s.mux.Get("/v1/reports/revenue", h.revenueReport)
	s.mux.Get("/v1/reports/services", h.serviceUsageReport)
	s.mux.Get("/v1/reports/dashboard", h.dashboard)
}

// ---- wire formats ----

const dateFmt = "2006-01-02"

type reservationJSON struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"room_id"`
	GuestID   int64  `json:"guest_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Status    string `json:"status"`
	TotalCost int64  `json:"total_cost_cents"`
}

func toReservationJSON(r domain.Reservation) reservationJSON {
	return reservationJSON{
		ID:        r.ID,
		RoomID:    r.RoomID,
		GuestID:   r.GuestID,
		CheckIn:   r.CheckIn.Format(dateFmt),
		CheckOut:  r.CheckOut.Format(dateFmt),
		Status:    string(r.Status),
		TotalCost: r.TotalCost,
	}
}

type settlementJSON struct {
	ID            int64  `json:"id"`
	ReservationID int64  `json:"reservation_id"`
	Amount        int64  `json:"amount_cents"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	PaidOn        string `json:"paid_on"`
}

func toSettlementJSON(s domain.Settlement) settlementJSON {
	return settlementJSON{
		ID:            s.ID,
		ReservationID: s.ReservationID,
		Amount:        s.Amount,
		Method:        string(s.Method),
		Status:        string(s.Status),
		PaidOn:        s.PaidOn.Format(dateFmt),
	}
}

// ---- helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeErr maps domain failures onto problem+json statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidMethod),
		errors.Is(err, domain.ErrUnknownGuest),
		errors.Is(err, domain.ErrOverpayment):
		writeProblem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, domain.ErrRoomUnavailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidRefund),
		errors.Is(err, domain.ErrRecalcNotAllowed),
		errors.Is(err, domain.ErrItemsFrozen),
		errors.Is(err, domain.ErrDepositRequired),
		errors.Is(err, domain.ErrBalanceOutstanding),
		errors.Is(err, domain.ErrSettlementNotPending),
		errors.Is(err, domain.ErrRoomChangeNotAllowed),
		errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryDate(r *http.Request, name string) (time.Time, bool) {
	t, err := time.Parse(dateFmt, r.URL.Query().Get(name))
	return t, err == nil
}

// ---- availability ----

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	checkIn, ok1 := queryDate(r, "check_in")
	checkOut, ok2 := queryDate(r, "check_out")
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_in and check_out must be YYYY-MM-DD")
		return
	}
	available, err := h.Bookings.CheckAvailability(r.Context(), roomID, checkIn, checkOut, 0)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handlers) availableRooms(w http.ResponseWriter, r *http.Request) {
	checkIn, ok1 := queryDate(r, "check_in")
	checkOut, ok2 := queryDate(r, "check_out")
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_in and check_out must be YYYY-MM-DD")
		return
	}
	rooms, err := h.Bookings.AvailableRooms(r.Context(), checkIn, checkOut)
	if err != nil {
		writeErr(w, err)
		return
	}
	type roomJSON struct {
		ID       int64  `json:"id"`
		Type     string `json:"room_type"`
		Capacity int    `json:"capacity"`
		Tariff   int64  `json:"price_per_night_cents"`
	}
	out := make([]roomJSON, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomJSON{ID: room.ID, Type: room.Type, Capacity: room.Capacity, Tariff: room.Tariff})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": out})
}

// ---- reservations ----

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID   int64  `json:"room_id"`
		GuestID  int64  `json:"guest_id"`
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	checkIn, err1 := time.Parse(dateFmt, req.CheckIn)
	checkOut, err2 := time.Parse(dateFmt, req.CheckOut)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_in and check_out must be YYYY-MM-DD")
		return
	}
	res, err := h.Bookings.Create(r.Context(), req.RoomID, req.GuestID, checkIn, checkOut)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationJSON(res))
}

func (h *Handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	q := domain.ReservationsQuery{Limit: 100}
	qs := r.URL.Query()
	if v := qs.Get("room_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.RoomID = &id
		}
	}
	if v := qs.Get("guest_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			q.GuestID = &id
		}
	}
	if v := qs.Get("status"); v != "" {
		st := domain.BookingStatus(v)
		q.Status = &st
	}
	if from, ok := queryDate(r, "from"); ok {
		if to, ok := queryDate(r, "to"); ok {
			q.From, q.To = &from, &to
		}
	}
	if v := qs.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}
	rs, err := h.Bookings.List(r.Context(), q)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]reservationJSON, 0, len(rs))
	for _, res := range rs {
		out = append(out, toReservationJSON(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	res, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(res))
}

func (h *Handlers) updateReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req struct {
		CheckIn  *string `json:"check_in"`
		CheckOut *string `json:"check_out"`
		RoomID   *int64  `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	patch := app.UpdatePatch{RoomID: req.RoomID}
	if req.CheckIn != nil {
		t, err := time.Parse(dateFmt, *req.CheckIn)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_in must be YYYY-MM-DD")
			return
		}
		patch.CheckIn = &t
	}
	if req.CheckOut != nil {
		t, err := time.Parse(dateFmt, *req.CheckOut)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid dates", "check_out must be YYYY-MM-DD")
			return
		}
		patch.CheckOut = &t
	}
	res, err := h.Bookings.Update(r.Context(), id, patch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(res))
}

func (h *Handlers) confirmReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Bookings.Confirm)
}

func (h *Handlers) cancelReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Bookings.Cancel)
}

func (h *Handlers) completeReservation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Bookings.Complete)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (domain.Reservation, error)) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	res, err := fn(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(res))
}

func (h *Handlers) cost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	bd, err := h.Bookings.Cost(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	type lineJSON struct {
		ServiceID int64 `json:"service_id"`
		Quantity  int   `json:"quantity"`
		UnitPrice int64 `json:"unit_price_cents"`
		Subtotal  int64 `json:"subtotal_cents"`
	}
	lines := make([]lineJSON, 0, len(bd.Services))
	for _, l := range bd.Services {
		lines = append(lines, lineJSON{ServiceID: l.ServiceID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nights":               bd.Nights,
		"tariff_cents":         bd.Tariff,
		"room_cost_cents":      bd.RoomCost,
		"services":             lines,
		"services_total_cents": bd.ServicesTotal,
		"total_cents":          bd.Total,
	})
}

// ---- ancillary items ----

func (h *Handlers) addService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req struct {
		ServiceID int64 `json:"service_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	it, err := h.Bookings.AddService(r.Context(), id, req.ServiceID, req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":               it.ID,
		"reservation_id":   it.ReservationID,
		"service_id":       it.ServiceID,
		"quantity":         it.Quantity,
		"unit_price_cents": it.UnitPrice,
		"subtotal_cents":   it.Subtotal,
	})
}

func (h *Handlers) removeService(w http.ResponseWriter, r *http.Request) {
	id, ok1 := pathID(r, "id")
	itemID, ok2 := pathID(r, "itemID")
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "ids must be positive numbers")
		return
	}
	if err := h.Bookings.RemoveService(r.Context(), id, itemID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- settlements ----

func (h *Handlers) recordSettlement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var req struct {
		Amount int64  `json:"amount_cents"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	st, err := h.Ledger.Record(r.Context(), id, req.Amount, domain.SettlementMethod(req.Method))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementJSON(st))
}

func (h *Handlers) listSettlements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	ss, err := h.Ledger.ListForReservation(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	balance, err := h.Ledger.Outstanding(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]settlementJSON, 0, len(ss))
	for _, st := range ss {
		out = append(out, toSettlementJSON(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settlements":       out,
		"outstanding_cents": balance,
	})
}

func (h *Handlers) confirmSettlement(w http.ResponseWriter, r *http.Request) {
	h.settlementOp(w, r, h.Ledger.Confirm)
}

func (h *Handlers) refundSettlement(w http.ResponseWriter, r *http.Request) {
	h.settlementOp(w, r, h.Ledger.Refund)
}

func (h *Handlers) settlementOp(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (domain.Settlement, error)) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	st, err := fn(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementJSON(st))
}

// ---- reports ----

func (h *Handlers) occupancyReport(w http.ResponseWriter, r *http.Request) {
	from, ok1 := queryDate(r, "from")
	to, ok2 := queryDate(r, "to")
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "from and to must be YYYY-MM-DD")
		return
	}
	rep, err := h.Reports.Occupancy(r.Context(), from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":            rep.From.Format(dateFmt),
		"to":              rep.To.Format(dateFmt),
		"room_nights":     rep.RoomNights,
		"reserved_nights": rep.ReservedNights,
		"occupancy_rate":  rep.Rate,
	})
}

func (h *Handlers) revenueReport(w http.ResponseWriter, r *http.Request) {
	from, ok1 := queryDate(r, "from")
	to, ok2 := queryDate(r, "to")
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "from and to must be YYYY-MM-DD")
		return
	}
	rep, err := h.Reports.Revenue(r.Context(), from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":        rep.From.Format(dateFmt),
		"to":          rep.To.Format(dateFmt),
		"total_cents": rep.Total,
		"by_method":   rep.ByMethod,
		"by_month":    rep.ByMonth,
		"count":       rep.Count,
	})
}

func (h *Handlers) serviceUsageReport(w http.ResponseWriter, r *http.Request) {
	usage, err := h.Reports.ServiceUsage(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	type usageJSON struct {
		ServiceID int64 `json:"service_id"`
		Quantity  int64 `json:"quantity"`
		Revenue   int64 `json:"revenue_cents"`
	}
	out := make([]usageJSON, 0, len(usage))
	for _, u := range usage {
		out = append(out, usageJSON{ServiceID: u.ServiceID, Quantity: u.Quantity, Revenue: u.Revenue})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reservations":        stats.Reservations,
		"todays_checkins":     stats.TodaysCheckIns,
		"todays_checkouts":    stats.TodaysCheckOuts,
		"pending_settlements": stats.PendingSettlements,
		"total_revenue_cents": stats.TotalRevenue,
	})
}
