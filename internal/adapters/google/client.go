// internal/adapters/google/client.go
package google

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"ski_resort_finder/internal/adapters/observability"
)

const (
	DefaultBaseURL   = "https://maps.googleapis.com/maps/api"
	DefaultPageDelay = time.Second
)

var (
	ErrNotFound     = errors.New("places: not found")
	ErrUnauthorized = errors.New("places: unauthorized")
	ErrForbidden    = errors.New("places: forbidden")
)

// StatusError is a 200 response whose body carried a non-OK provider status.
type StatusError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places %s: status %s", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("places %s: status %s: %s", e.Endpoint, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Status {
	case "REQUEST_DENIED":
		return ErrForbidden
	case "NOT_FOUND":
		return ErrNotFound
	}
	return nil
}

// Client talks to the Places (nearby search, details) and Geocoding web
// services. It is safe for concurrent use by the tile workers.
type Client struct {
	base       string
	hc         *http.Client
	key        string
	rl         *rate.Limiter
	clock      clockwork.Clock
	maxRetries int
	pageDelay  time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }
func WithClock(clk clockwork.Clock) Option  { return func(c *Client) { c.clock = clk } }

// WithMaxRetries sets how many times a 429/5xx is retried; 0 disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithPageDelay sets the wait before a next_page_token is used. The provider
// rejects tokens used too early.
func WithPageDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.pageDelay = d
		}
	}
}

func New(base, key string, rps int, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 10
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		hc:         &http.Client{Timeout: 20 * time.Second},
		key:        key,
		rl:         rate.NewLimiter(rate.Limit(rps), rps),
		clock:      clockwork.NewRealClock(),
		maxRetries: 3,
		pageDelay:  DefaultPageDelay,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	q.Set("key", c.key)
	u := c.base + endpoint + "?" + q.Encode()

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ski-resort-finder/1.0")

		start := c.clock.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("google", endpoint, 0, c.clock.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < c.maxRetries && c.sleep(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("google", endpoint, resp.StatusCode, c.clock.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := c.retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < c.maxRetries && c.sleep(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

// sleep waits for d on the client's clock or returns false if ctx is done.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func (c *Client) retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := t.Sub(c.clock.Now()); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with up to +50% jitter.
// i = retry attempt (0,1,2,...); base doubles from 200ms.
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
