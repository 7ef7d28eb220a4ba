package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter counts requests per caller in fixed one-minute windows.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	span    time.Duration
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewRateLimiter(limitPerMinute int) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limitPerMinute,
		span:    time.Minute,
		now:     time.Now,
	}
}

// Prune drops callers whose last window started more than maxIdle ago.
func (rl *RateLimiter) Prune(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for key, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, key)
		}
	}
}

// Allow consumes one request for key and reports what is left in the
// current window.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.start.Add(rl.span)) {
		w = &window{start: now}
		rl.windows[key] = w
	}
	resetAt = w.start.Add(rl.span)

	if w.count >= rl.limit {
		return false, 0, resetAt
	}
	w.count++
	return true, rl.limit - w.count, resetAt
}

// RateLimit keys on the authenticated actor and must run after Auth.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "anonymous"
			if a, ok := GetActor(r.Context()); ok {
				key = a.Role.String() + ":" + a.ID
			}

			allowed, remaining, resetAt := limiter.Allow(key)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				wait := max(int(resetAt.Sub(limiter.now()).Seconds()), 1)
				slog.WarnContext(r.Context(), "rate_limit_exceeded",
					"caller", key,
					"request_id", GetRequestID(r.Context()),
				)
				h.Set("Retry-After", strconv.Itoa(wait))
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, retry after "+strconv.Itoa(wait)+" seconds")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
