package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultLoginRate  = 5 // attempts per second
	defaultLoginBurst = 10
	limiterIdleTTL    = 5 * time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	mu      sync.Mutex
	perSec  rate.Limit
	burst   int
	clients map[string]*limiterEntry
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	return &clientLimiter{
		perSec:  rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*limiterEntry),
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(c.clients, k)
		}
	}

	e, ok := c.clients[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(c.perSec, c.burst)}
		c.clients[key] = e
	}
	e.lastSeen = now
	return e.lim.Allow()
}

// LoginRateLimitMiddleware throttles credential attempts per client address.
func (s *Server) LoginRateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.loginLimiter.allow(host) {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, "rate_limited", "Too many login attempts", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
