// Package middleware provides HTTP middleware for the netops API.
package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ethpandaops/netops/pkg/config"
)

const (
	// Rate limit header names.
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"

	defaultCleanupInterval = 5 * time.Minute
)

// RateLimiter throttles requests per client IP and route.
type RateLimiter struct {
	log     logrus.FieldLogger
	cfg     config.RateLimitConfig
	proxies []*net.IPNet

	mu       sync.Mutex
	limiters map[string]*entry
	stopCh   chan struct{}
	stopOnce sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewRateLimiter creates a rate limiter. Invalid trusted proxy entries are
// rejected.
func NewRateLimiter(log logrus.FieldLogger, cfg config.RateLimitConfig) (*RateLimiter, error) {
	proxies, err := parseProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	rl := &RateLimiter{
		log:      log.WithField("component", "rate_limiter"),
		cfg:      cfg,
		proxies:  proxies,
		limiters: make(map[string]*entry, 64),
		stopCh:   make(chan struct{}),
	}

	if cfg.Enabled {
		go rl.cleanupLoop()
	}

	return rl, nil
}

func parseProxies(entries []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(entries))

	for _, e := range entries {
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", e)
			}

			bits := 8 * len(ip.To4())
			if bits == 0 {
				bits = 128
			}

			e = fmt.Sprintf("%s/%d", e, bits)
		}

		_, ipNet, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", e, err)
		}

		nets = append(nets, ipNet)
	}

	return nets, nil
}

// Middleware enforces the rule for route. An empty route uses the default rule.
func (rl *RateLimiter) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			rule := rl.rule(route)
			clientIP := rl.clientIP(r)
			lim := rl.limiter(buildKey(clientIP, route), rule)

			allowed := lim.Allow()

			w.Header().Set(HeaderRateLimitLimit, fmt.Sprintf("%.2f", rule.GetRequestsPerSecond()))
			w.Header().Set(HeaderRateLimitRemaining, fmt.Sprintf("%d", max(0, int(lim.Tokens()))))

			if !allowed {
				rl.log.WithFields(logrus.Fields{
					"client_ip": clientIP,
					"route":     route,
				}).Debug("Rate limit exceeded")

				retryAfter := math.Ceil(1 / rule.GetRequestsPerSecond())
				w.Header().Set(HeaderRetryAfter, fmt.Sprintf("%d", int(retryAfter)))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) rule(route string) config.RateLimitRule {
	if rule, ok := rl.cfg.PerRoute[route]; ok && route != "" {
		return rule
	}

	return rl.cfg.Default
}

// clientIP returns the remote address, or the first X-Forwarded-For or
// X-Real-IP address when the request comes from a trusted proxy.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if !rl.trusted(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return remoteIP
}

func (rl *RateLimiter) trusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, n := range rl.proxies {
		if n.Contains(parsed) {
			return true
		}
	}

	return false
}

func buildKey(clientIP, route string) string {
	if route != "" {
		return clientIP + ":" + route
	}

	return clientIP
}

func (rl *RateLimiter) limiter(key string, rule config.RateLimitRule) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(rule.GetRequestsPerSecond()), rule.GetBurstSize())}
		rl.limiters[key] = e
	}

	e.lastUsed = time.Now()

	return e.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-defaultCleanupInterval))
		}
	}
}

// cleanup drops limiters idle since before cutoff.
func (rl *RateLimiter) cleanup(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0

	for key, e := range rl.limiters {
		if e.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}

	if removed > 0 {
		rl.log.WithField("removed", removed).Debug("Cleaned up idle rate limiters")
	}

	return removed
}

// Close stops the cleanup loop.
func (rl *RateLimiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.stopCh) })

	return nil
}
