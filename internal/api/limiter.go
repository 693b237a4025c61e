package api

import (
	"net"
	"net/http"
	"sync"

	"smiledent/internal/config"

	"golang.org/x/time/rate"
)

const clientKeyUnknown = "unknown"

// loginLimiter throttles admin login attempts per client address.
type loginLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func newLoginLimiter(cfg config.RateLimitConfig) *loginLimiter {
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 5
	}
	return &loginLimiter{rps: rate.Limit(cfg.LoginRPS), burst: burst}
}

// allow always succeeds when throttling is disabled with a non-positive rate.
func (l *loginLimiter) allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *loginLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}
