package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter es un token bucket por IP para las rutas públicas con token
// (portal y links compartidos), que no tienen sesión a la que atar el límite.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 20
	}
	return &IPRateLimiter{
		limiters: map[string]*visitor{},
		rps:      rate.Limit(perSecond),
		burst:    burst,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now

	// limpieza perezosa de visitantes inactivos
	for k, other := range l.limiters {
		if now.Sub(other.lastSeen) > l.ttl {
			delete(l.limiters, k)
		}
	}
	return v.limiter.AllowN(now, 1)
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP usa RemoteAddr; con chi/middleware.RealIP delante ya viene resuelto.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
