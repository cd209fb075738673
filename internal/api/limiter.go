package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"topdivers/internal/config"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's bucket survives without traffic.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// rateLimiter keeps one token bucket per client address. Buckets idle for
// limiterIdleTTL are swept on a later request.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	cfg       config.RateLimitConfig
	now       func() time.Time
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{limiters: make(map[string]*limiterEntry), cfg: cfg, now: time.Now}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		l.sweep(now)
	}
	if e, ok := l.limiters[key]; ok {
		e.seen = now
		return e.lim
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	l.limiters[key] = &limiterEntry{lim: lim, seen: now}
	return lim
}

func (l *rateLimiter) sweep(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.seen) >= limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// middleware rejects clients over their budget. A zero RPS disables it.
func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RPS <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !l.getLimiter(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// allowLogin applies the per-client login attempt budget. Storage errors
// let the attempt through.
func (s *Server) allowLogin(r *http.Request, scope string) bool {
	if s.deps.Attempts == nil || s.authCfg.LoginAttempts <= 0 {
		return true
	}
	key := fmt.Sprintf("login:%s:%s", scope, clientKey(r))
	ok, err := s.deps.Attempts.CheckRateLimit(r.Context(), key, s.authCfg.LoginAttempts, s.loginWindow())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("login attempt check failed")
		return true
	}
	return ok
}

func (s *Server) resetLogin(r *http.Request, scope string) {
	if s.deps.Attempts == nil {
		return
	}
	key := fmt.Sprintf("login:%s:%s", scope, clientKey(r))
	if err := s.deps.Attempts.ResetRateLimit(r.Context(), key); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("login attempt reset failed")
	}
}

func (s *Server) loginWindow() time.Duration {
	if s.authCfg.LoginWindow <= 0 {
		return 15 * time.Minute
	}
	return s.authCfg.LoginWindow
}
