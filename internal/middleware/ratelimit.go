// internal/middleware/ratelimit.go
//
// Per-client token-bucket rate limiter.
//
// Context
// -------
// The contact form accepts anonymous POSTs, so a single client could
// flood the delivery backends.  Each client IP gets its own
// golang.org/x/time/rate limiter; state-changing methods (POST, PUT,
// PATCH, DELETE) spend a token and safe methods pass untouched, so a
// rejected visitor can still load the page and read the error.
//
// Limiters unused for ten minutes are discarded by a sweep that runs on
// the request path at most once a minute, so no background goroutine is
// needed.
//
// Notes
// -----
// • Rejections answer 429 with Retry-After and count in
//   http_rate_limited_total.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yanizio/serenity/internal/logger"
	"github.com/yanizio/serenity/internal/metrics"
	"github.com/yanizio/serenity/internal/requestinfo"
)

const (
	limiterIdle  = 10 * time.Minute
	limiterSweep = time.Minute
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out one token bucket per client IP.
type Limiter struct {
	every rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

// NewLimiter allows perMinute requests per client with the given burst.
// perMinute <= 0 disables limiting.
func NewLimiter(perMinute float64, burst int) *Limiter {
	l := rate.Inf
	if perMinute > 0 {
		l = rate.Limit(perMinute / 60)
	}
	return &Limiter{
		every:   l,
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow spends one token for key and reports whether it was available.
// On refusal it also returns how long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.every == rate.Inf {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > limiterSweep {
		for k, c := range l.clients {
			if now.Sub(c.seen) > limiterIdle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}
	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	l.mu.Unlock()

	res := c.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Middleware rejects state-changing requests over the limit with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		key := "unknown"
		if ip := requestinfo.ClientIP(r); ip != nil {
			key = ip.String()
		}
		ok, wait := l.Allow(key)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RateLimitedTotal.Inc()
		logger.FromContext(r.Context()).Infow("rate limited", "client", key, "retry_in", wait)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		http.Error(w, "Too many requests.  Please wait a moment and try again.", http.StatusTooManyRequests)
	})
}
