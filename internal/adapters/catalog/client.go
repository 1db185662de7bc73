package catalog

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

// Client talks to the room/service/guest catalog service. All reads are
// rate-limited client-side and retried on 429/transient 5xx.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type roomDTO struct {
	ID       int64  `json:"id"`
	Type     string `json:"room_type"`
	Capacity int    `json:"capacity"`
	Tariff   int64  `json:"price_per_night_cents"`
	Active   bool   `json:"is_available"`
}

type serviceDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price_cents"`
	Active    bool   `json:"is_active"`
}

func (c *Client) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var dto roomDTO
	if err := c.get(ctx, fmt.Sprintf("%s/rooms/%d", c.base, id), "rooms", &dto); err != nil {
		return domain.Room{}, err
	}
	return domain.Room{ID: dto.ID, Type: dto.Type, Capacity: dto.Capacity, Tariff: dto.Tariff, Active: dto.Active}, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var dtos []roomDTO
	if err := c.get(ctx, c.base+"/rooms", "rooms", &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.Room, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, domain.Room{ID: dto.ID, Type: dto.Type, Capacity: dto.Capacity, Tariff: dto.Tariff, Active: dto.Active})
	}
	return out, nil
}

func (c *Client) GetService(ctx context.Context, id int64) (domain.Service, error) {
	var dto serviceDTO
	if err := c.get(ctx, fmt.Sprintf("%s/services/%d", c.base, id), "services", &dto); err != nil {
		return domain.Service{}, err
	}
	return domain.Service{ID: dto.ID, Name: dto.Name, UnitPrice: dto.UnitPrice, Active: dto.Active}, nil
}

// GuestExists resolves the guest registry; a 404 means "no such guest"
// rather than an error.
func (c *Client) GuestExists(ctx context.Context, id int64) (bool, error) {
	var dto struct {
		ID int64 `json:"id"`
	}
	err := c.get(ctx, fmt.Sprintf("%s/guests/%d", c.base, id), "guests", &dto)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var (
	ErrUnauthorized = errors.New("catalog: unauthorized")
	ErrForbidden    = errors.New("catalog: forbidden")
)

// get performs a GET with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After.
func (c *Client) get(ctx context.Context, url, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "stayhub/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("catalog", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("catalog %s: %w", endpoint, domain.ErrNotFound)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("catalog %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("catalog bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles per attempt (200ms, 400ms, 800ms...) with up to +50%
// jitter from crypto/rand to stay safe under concurrency.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
