package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is an in-process fixed-window limiter keyed by client address.
// It suits single-instance deployments; RedisRateLimiter shares the window
// across replicas.
type RateLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*fixedWindow
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: map[string]*fixedWindow{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ok, retry := rl.allow(clientKey(r)); !ok {
				tooManyRequests(w, retry)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow counts one request and, when over the limit, reports how long until
// the window resets.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	fw := rl.clients[key]
	if fw == nil || !now.Before(fw.resetAt) {
		if len(rl.clients) >= 10000 {
			rl.sweep(now)
		}
		rl.clients[key] = &fixedWindow{count: 1, resetAt: now.Add(rl.window)}
		return true, 0
	}
	if fw.count >= rl.limit {
		return false, fw.resetAt.Sub(now)
	}
	fw.count++
	return true, 0
}

func (rl *RateLimiter) sweep(now time.Time) {
	for k, fw := range rl.clients {
		if !now.Before(fw.resetAt) {
			delete(rl.clients, k)
		}
	}
}

func tooManyRequests(w http.ResponseWriter, retry time.Duration) {
	if retry > 0 {
		secs := int((retry + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	WriteJSON(w, http.StatusTooManyRequests, map[string]string{
		"error": "rate limit exceeded",
		"code":  "rate_limited",
	})
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
