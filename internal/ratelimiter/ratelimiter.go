package ratelimiter

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key (the client IP).
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// New returns a limiter allowing r requests per second with the given burst.
// A non-positive r disables limiting.
func New(r rate.Limit, burst int, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		rate:    r,
		burst:   max(burst, 1),
		idleTTL: clientIdleTTL,
		now:     time.Now,
		log:     log,
	}
}

func (rl *RateLimiter) Enabled() bool {
	return rl.rate > 0 && rl.rate != rate.Inf
}

// Allow reports whether key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.Enabled() {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// Prune drops clients idle for longer than the idle TTL and returns how many
// were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0

	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
			removed++
		}
	}

	return removed
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return len(rl.clients)
}

func (rl *RateLimiter) retryAfterSeconds() int {
	if !rl.Enabled() {
		return minRetryAfterSecs
	}

	return max(int(math.Ceil(1/float64(rl.rate))), minRetryAfterSecs)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if rl.Allow(ip) {
				return next(c)
			}

			ctx := c.Request().Context()
			rl.log.WarnContext(ctx, "Request is rate limited",
				"clientIP", ip,
				"path", c.Path(),
				"rate", float64(rl.rate),
				"burst", rl.burst)

			c.Response().Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))

			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": rateLimitedReason})
		}
	}
}
