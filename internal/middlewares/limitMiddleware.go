package middlewares

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"supplierhub/internal/metrics"
	"supplierhub/internal/ratelimit"
	"supplierhub/internal/utils"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// GlobalLimiter is a coarse per-address token bucket in front of every route.
type GlobalLimiter struct {
	rps   rate.Limit
	burst int
	ips   *utils.IPResolver

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewGlobalLimiter keys visitors through ips; nil keys on RemoteAddr.
func NewGlobalLimiter(rps float64, burst int, ips *utils.IPResolver) *GlobalLimiter {
	return &GlobalLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		ips:      ips,
		visitors: make(map[string]*visitor),
	}
}

func (g *GlobalLimiter) getLimiter(ip string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, exists := g.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(g.rps, g.burst)}
		g.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter
}

// CleanupVisitors forgets idle addresses every minute until ctx is done.
func (g *GlobalLimiter) CleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.evictIdle(time.Now())
		}
	}
}

func (g *GlobalLimiter) evictIdle(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ip, v := range g.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(g.visitors, ip)
		}
	}
}

func (g *GlobalLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.getLimiter(g.ips.ClientIP(r)).Allow() {
			metrics.RateLimitedTotal.WithLabelValues("global").Inc()
			utils.SendJSONError(w, "Too many requests, please try again later", http.StatusTooManyRequests, "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WindowLimit applies a sliding-window limiter keyed by client address.
func WindowLimit(l *ratelimit.Limiter, ips *utils.IPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ips.ClientIP(r)
			if err := l.Allow(ip); err != nil {
				log.Warn().Str("limiter", l.Name).Str("ip", ip).Msg("Rate limit exceeded")
				metrics.RateLimitedTotal.WithLabelValues(l.Name).Inc()
				utils.SendAppError(w, err, false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
