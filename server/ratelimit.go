package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAuthRPM   = 10
	limiterGCSize    = 1000
	limiterIdleAfter = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles credential-bearing requests per client IP.
// Forwarding headers are ignored unless trustProxy is set, since any
// client can send them.
type RateLimiter struct {
	rpm        int
	trustProxy bool
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewRateLimiter(rpm int, trustProxy bool) *RateLimiter {
	if rpm <= 0 {
		rpm = defaultAuthRPM
	}
	return &RateLimiter{rpm: rpm, trustProxy: trustProxy, clients: map[string]*clientLimiter{}}
}

func (m *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.allow(extractClientIP(r, m.trustProxy)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimiter) allow(clientIP string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if client, exists := m.clients[clientIP]; exists {
		client.lastSeen = now
		return client.limiter.Allow()
	}

	created := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.rpm)), m.rpm),
		lastSeen: now,
	}
	m.clients[clientIP] = created
	m.gcLocked(now)
	return created.limiter.Allow()
}

func (m *RateLimiter) gcLocked(now time.Time) {
	if len(m.clients) < limiterGCSize {
		return
	}

	cutoff := now.Add(-limiterIdleAfter)
	for ip, client := range m.clients {
		if client.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func extractClientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteHost(r)
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
