// Package ratelimit throttles state-changing requests per caller using
// fixed counting windows.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/auth"
	"go.uber.org/zap"
)

// Limiter counts requests per key in windows of a fixed length. A key's
// window opens with its first request. Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	duration  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New returns a limiter allowing limit requests per key per duration.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow counts one request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key may still make in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.now().Before(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key's window.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows at most once per two window lengths.
// Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < 2*l.duration {
		return
	}
	for k, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, k)
		}
	}
	l.lastSweep = now
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// KeyFunc derives the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByClientIP counts requests per client address.
func ByClientIP(r *http.Request) string { return "ip:" + ClientIP(r) }

// ByPrincipalOrIP counts signed-in requests per user and anonymous ones per
// address, so coordinators behind one NAT do not share a budget.
func ByPrincipalOrIP(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok && u.ID != "" {
		return "user:" + u.ID
	}
	return ByClientIP(r)
}

// Middleware answers 429 with a Retry-After of one window once key's budget
// is spent. Allowed responses carry X-RateLimit-Remaining.
func Middleware(l *Limiter, key KeyFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	retry := strconv.Itoa(int(l.duration.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !l.Allow(k) {
				logger.Warn("rate limit exceeded",
					zap.String("key", k),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", retry)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","message":"Too many requests. Please slow down."}` + "\n"))
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(k)))
			next.ServeHTTP(w, r)
		})
	}
}
