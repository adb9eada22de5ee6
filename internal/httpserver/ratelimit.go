package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter applies a per-IP token bucket: max requests per window, with the
// full window as burst. Buckets for idle clients are pruned lazily.
type ipLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	lastSeen time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiter(max int, window time.Duration) *ipLimiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &ipLimiter{
		buckets:  make(map[string]*bucket),
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		lastSeen: 2 * window,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		// Prune stale buckets on insert so the map stays bounded.
		for k, v := range l.buckets {
			if now.Sub(v.seen) > l.lastSeen {
				delete(l.buckets, k)
			}
		}
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	l.mu.Unlock()
	return b.lim.Allow()
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !l.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "rate_limited",
				"too many requests from this address, please retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
