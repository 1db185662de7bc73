package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "stayhub/internal/adapters/redis"
	"stayhub/internal/domain"
)

func TestCache_RoundTripAndDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	in := domain.OccupancyReport{RoomNights: 20, ReservedNights: 7, Rate: 0.35}
	if err := c.Set(ctx, "report:occupancy:test", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out domain.OccupancyReport
	ok, err := c.Get(ctx, "report:occupancy:test", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.ReservedNights != 7 || out.Rate != 0.35 {
		t.Fatalf("unexpected cached value: %+v", out)
	}

	if err := c.Del(ctx, "report:occupancy:test"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, err = c.Get(ctx, "report:occupancy:test", &out)
	if err != nil {
		t.Fatalf("get after del: %v", err)
	}
	if ok {
		t.Fatalf("expected miss after del")
	}
}

func TestCache_MissReturnsFalse(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	var out domain.RevenueReport
	ok, err := c.Get(context.Background(), "absent", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss for absent key")
	}
}
