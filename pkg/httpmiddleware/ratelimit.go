package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max is the request budget per Window.
	Max    int
	Window time.Duration
	// WriteMax, when positive, is a separate budget for requests that change
	// state. Cart mutations and checkout then cannot consume the browsing
	// budget and vice versa.
	WriteMax int
	// IPMax, when positive, caps all requests from one client IP per Window
	// regardless of KeyFunc. Clients minting session cookies cannot exceed
	// it.
	IPMax int
	// KeyFunc identifies the client. Defaults to SessionOrIPKey.
	KeyFunc func(*http.Request) string
	// Skip exempts matching requests from limiting.
	Skip func(*http.Request) bool
}

// slidingWindow approximates a rolling count from two fixed windows: the
// previous count is weighted by the share of it still inside the rolling
// window.
type slidingWindow struct {
	prev  float64
	curr  float64
	start time.Time
}

func (w *slidingWindow) advance(now time.Time, size time.Duration) {
	switch elapsed := now.Sub(w.start); {
	case elapsed < size:
		return
	case elapsed < 2*size:
		w.prev = w.curr
	default:
		w.prev = 0
	}
	w.curr = 0
	w.start = now.Truncate(size)
}

func (w *slidingWindow) estimate(now time.Time, size time.Duration) float64 {
	overlap := 1 - float64(now.Sub(w.start))/float64(size)
	return w.prev*max(overlap, 0) + w.curr
}

type limiter struct {
	size time.Duration

	mu      sync.Mutex
	windows map[string]*slidingWindow
}

func newLimiter(size time.Duration) *limiter {
	return &limiter{
		size:    size,
		windows: make(map[string]*slidingWindow),
	}
}

// take spends one request of key's budget if any is left.
func (l *limiter) take(key string, budget int, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.windows[key]
	if !found {
		w = &slidingWindow{start: now.Truncate(l.size)}
		l.windows[key] = w
	}
	w.advance(now, l.size)
	resetAt = w.start.Add(l.size)

	used := w.estimate(now, l.size)
	if used >= float64(budget) {
		return 0, resetAt, false
	}
	w.curr++
	return max(int(float64(budget)-used-1), 0), resetAt, true
}

// evict drops windows idle for two full periods and reports how many.
func (l *limiter) evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.windows, key)
			n++
		}
	}
	return n
}

func (l *limiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(2 * l.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// RateLimit enforces cfg per client. Rejected requests get 429 with a JSON
// body and Retry-After; every limited response carries X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset.
//
// Idle clients are never evicted. Servers should use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, newLimiter(cfg.Window))
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle clients
// every two windows until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg.Window)
	go l.sweep(ctx)
	return rateLimit(cfg, l)
}

func rateLimit(cfg RateLimitConfig, l *limiter) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SessionOrIPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			if cfg.IPMax > 0 {
				remaining, resetAt, ok := l.take("ip|"+ClientIP(r), cfg.IPMax, now)
				if !ok {
					rejectRate(w, cfg.IPMax, remaining, resetAt, now)
					return
				}
			}

			key, budget := cfg.KeyFunc(r), cfg.Max
			if cfg.WriteMax > 0 && changesState(r.Method) {
				key, budget = "write|"+key, cfg.WriteMax
			}
			remaining, resetAt, ok := l.take(key, budget, now)
			if !ok {
				rejectRate(w, budget, remaining, resetAt, now)
				return
			}
			setRateHeaders(w, budget, remaining, resetAt)
			next.ServeHTTP(w, r)
		})
	}
}

func setRateHeaders(w http.ResponseWriter, budget, remaining int, resetAt time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(budget))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func rejectRate(w http.ResponseWriter, budget, remaining int, resetAt, now time.Time) {
	setRateHeaders(w, budget, remaining, resetAt)
	wait := max(resetAt.Sub(now), 0)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func changesState(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// SkipPaths matches requests for any of the exact paths.
func SkipPaths(paths ...string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return slices.Contains(paths, r.URL.Path)
	}
}

// SessionOrIPKey keys clients by their session cookie, so shoppers behind
// one NAT do not share a budget. Requests without a well-formed session
// identifier use ClientIP. Pair it with IPMax: the cookie is client-chosen.
func SessionOrIPKey(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return "sid:" + id.String()
		}
	}
	return "ip:" + ClientIP(r)
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
