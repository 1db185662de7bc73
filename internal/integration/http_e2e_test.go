//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "stayhub/internal/adapters/http_server"
	"stayhub/internal/app"
	"stayhub/internal/domain"
	mysqlrepo "stayhub/internal/storage/mysql"
)

// ---------- helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- in-process catalog, cache and clock ----------

type stubCatalog struct {
	rooms    map[int64]domain.Room
	services map[int64]domain.Service
	guests   map[int64]bool
}

func (c *stubCatalog) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	r, ok := c.rooms[id]
	if !ok {
		return domain.Room{}, fmt.Errorf("room %d: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (c *stubCatalog) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	for _, r := range c.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (c *stubCatalog) GetService(ctx context.Context, id int64) (domain.Service, error) {
	s, ok := c.services[id]
	if !ok {
		return domain.Service{}, fmt.Errorf("service %d: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

func (c *stubCatalog) GuestExists(ctx context.Context, id int64) (bool, error) {
	return c.guests[id], nil
}

type memCache struct{ store map[string][]byte }

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
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

func (c *memCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// ---------- harness ----------

func startStack(t *testing.T) *httptest.Server {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=stayhub",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "stayhub")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	catalog := &stubCatalog{
		rooms: map[int64]domain.Room{
			1: {ID: 1, Type: "double", Capacity: 2, Tariff: 10000, Active: true},
			2: {ID: 2, Type: "single", Capacity: 1, Tariff: 7000, Active: true},
		},
		services: map[int64]domain.Service{
			10: {ID: 10, Name: "breakfast", UnitPrice: 500, Active: true},
		},
		guests: map[int64]bool{5: true},
	}
	// checkout dates in the fixture are in the past relative to this clock,
	// so completed stays can run end to end
	clock := fixedClock{now: mustDate("2024-01-10")}

	bookings := app.NewBookingService(repo, catalog, clock, 1)
	ledger := app.NewLedgerService(repo, clock, 0)
	reports := app.NewReportService(repo, catalog, &memCache{}, time.Minute, clock)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Bookings: bookings, Ledger: ledger, Reports: reports})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return res
}

func decode(t *testing.T, res *http.Response, dst any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// ---------- the test ----------

func TestHTTP_EndToEnd_BookingLifecycle(t *testing.T) {
	ts := startStack(t)

	// book room 1 for three nights
	res := postJSON(t, ts.URL+"/v1/reservations", map[string]any{
		"room_id":  1,
		"guest_id": 5,
		"check_in": "2024-01-01", "check_out": "2024-01-04",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}
	var created struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		TotalCost int64  `json:"total_cost_cents"`
	}
	decode(t, res, &created)
	if created.Status != "pending" || created.TotalCost != 30000 {
		t.Fatalf("created: %+v", created)
	}
	base := fmt.Sprintf("%s/v1/reservations/%d", ts.URL, created.ID)

	// an overlapping request for the same room is refused
	res = postJSON(t, ts.URL+"/v1/reservations", map[string]any{
		"room_id":  1,
		"guest_id": 5,
		"check_in": "2024-01-03", "check_out": "2024-01-06",
	})
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("overlap status %d, want 409", res.StatusCode)
	}

	// the availability probe agrees
	avRes, err := http.Get(ts.URL + "/v1/rooms/1/availability?check_in=2024-01-03&check_out=2024-01-06")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	var av struct {
		Available bool `json:"available"`
	}
	decode(t, avRes, &av)
	if av.Available {
		t.Fatal("room should not be available")
	}

	// two breakfasts bring the total to 31000
	res = postJSON(t, base+"/services", map[string]any{"service_id": 10, "quantity": 2})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add service status %d", res.StatusCode)
	}
	res.Body.Close()

	costRes, err := http.Get(base + "/cost")
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	var cost struct {
		Nights        int   `json:"nights"`
		RoomCost      int64 `json:"room_cost_cents"`
		ServicesTotal int64 `json:"services_total_cents"`
		Total         int64 `json:"total_cents"`
	}
	decode(t, costRes, &cost)
	if cost.Nights != 3 || cost.RoomCost != 30000 || cost.ServicesTotal != 1000 || cost.Total != 31000 {
		t.Fatalf("cost: %+v", cost)
	}

	// confirming before any payment is refused
	res = postJSON(t, base+"/confirm", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("confirm without deposit status %d, want 409", res.StatusCode)
	}

	// pay in full by card, then confirm and complete
	res = postJSON(t, base+"/settlements", map[string]any{"amount_cents": 31000, "method": "card"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("settlement status %d", res.StatusCode)
	}
	var settled struct {
		Status string `json:"status"`
	}
	decode(t, res, &settled)
	if settled.Status != "completed" {
		t.Fatalf("card settlement status = %s", settled.Status)
	}

	for _, step := range []string{"/confirm", "/complete"} {
		res = postJSON(t, base+step, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d", step, res.StatusCode)
		}
		res.Body.Close()
	}

	var got struct {
		Status string `json:"status"`
	}
	getRes, err := http.Get(base)
	if err != nil {
		t.Fatalf("GET reservation: %v", err)
	}
	decode(t, getRes, &got)
	if got.Status != "completed" {
		t.Fatalf("final status = %s, want completed", got.Status)
	}

	// the finished stay shows up in the revenue report
	repRes, err := http.Get(ts.URL + "/v1/reports/revenue?from=2024-01-01&to=2024-02-01")
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	var rev struct {
		Total int64 `json:"total_cents"`
		Count int   `json:"count"`
	}
	decode(t, repRes, &rev)
	if rev.Total != 31000 || rev.Count != 1 {
		t.Fatalf("revenue: %+v", rev)
	}
}

func TestHTTP_ProblemResponses(t *testing.T) {
	ts := startStack(t)

	res, err := http.Get(ts.URL + "/v1/reservations/99999")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing reservation status %d, want 404", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
	var p struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	decode(t, res, &p)
	if p.Status != http.StatusNotFound {
		t.Fatalf("problem body: %+v", p)
	}

	// unknown guest is a validation failure, not a conflict
	res = postJSON(t, ts.URL+"/v1/reservations", map[string]any{
		"room_id":  1,
		"guest_id": 999,
		"check_in": "2024-01-01", "check_out": "2024-01-04",
	})
	res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unknown guest status %d, want 422", res.StatusCode)
	}
}
