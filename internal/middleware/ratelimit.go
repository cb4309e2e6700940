package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v3"
)

// KeyFunc derives the bucket a request is counted against.
type KeyFunc func(c fiber.Ctx) string

// Limit is a fixed-window quota.
type Limit struct {
	Max    int
	Window time.Duration
	Key    KeyFunc
}

// Route limits. Wallet-keyed routes fall back to the client IP.
var (
	ReadLimit     = Limit{Max: 100, Window: time.Minute, Key: KeyByIP}
	VoteLimit     = Limit{Max: 10, Window: time.Minute, Key: KeyByWallet}
	ContentLimit  = Limit{Max: 5, Window: time.Minute, Key: KeyByWallet}
	FinalizeLimit = Limit{Max: 10, Window: time.Minute, Key: KeyByIP}
	ClaimLimit    = Limit{Max: 2, Window: time.Minute, Key: KeyByWallet}
)

const sweepInterval = 5 * time.Minute

type bucket struct {
	used  int
	reset time.Time
}

// Decision is the outcome of counting one request.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	limit Limit
	clock clock.Clock

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter and its expired-bucket sweep. A nil clock
// means wall time.
func NewRateLimiter(limit Limit, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	rl := &RateLimiter{
		limit:   limit,
		clock:   clk,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Take counts one request against key.
func (rl *RateLimiter) Take(key string) Decision {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || !now.Before(b.reset) {
		b = &bucket{reset: now.Add(rl.limit.Window)}
		rl.buckets[key] = b
	}
	b.used++
	return Decision{
		Allowed:   b.used <= rl.limit.Max,
		Remaining: max(rl.limit.Max-b.used, 0),
		Reset:     b.reset,
	}
}

// Len reports how many buckets are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stop ends the sweep goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Handler enforces the limit and answers 429 RATE_LIMITED once it is spent.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		d := rl.Take(rl.limit.Key(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if d.Allowed {
			return c.Next()
		}

		retryAfter := int(d.Reset.Sub(rl.clock.Now()).Seconds()) + 1
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": fiber.Map{
				"code":       "RATE_LIMITED",
				"message":    "Too many requests. Try again in " + strconv.Itoa(retryAfter) + " seconds.",
				"retryAfter": retryAfter,
			},
		})
	}
}

func (rl *RateLimiter) sweep() {
	ticker := rl.clock.Ticker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			now := rl.clock.Now()
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if !now.Before(b.reset) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// KeyByIP buckets by client IP.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByWallet buckets by the X-Wallet-Address header, lowercased.
func KeyByWallet(c fiber.Ctx) string {
	if addr := strings.TrimSpace(c.Get("X-Wallet-Address")); addr != "" {
		return "wallet:" + strings.ToLower(addr)
	}
	return KeyByIP(c)
}
