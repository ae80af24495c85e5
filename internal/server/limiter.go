package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter gives every client IP its own token bucket holding burst scans
// that refills completely over window.
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	visitors map[string]*visitor
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPLimiter(burst int, window time.Duration, now func() time.Time) *ipLimiter {
	return &ipLimiter{
		limit:    rate.Every(window / time.Duration(burst)),
		burst:    burst,
		idle:     window,
		now:      now,
		visitors: make(map[string]*visitor),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.visitors) >= limiterSweepAt {
		for k, v := range l.visitors {
			// an idle bucket has refilled, so forgetting it changes nothing
			if now.Sub(v.seen) > l.idle {
				delete(l.visitors, k)
			}
		}
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
