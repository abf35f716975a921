package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/pkg/redis"
	"rigger-connect-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig describes one fixed-window budget.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket for a request; defaults to the client IP.
	KeyFunc   func(*gin.Context) string
	KeyPrefix string
	// FailClosed answers 503 instead of counting in memory when Redis errors.
	FailClosed bool
	// Client overrides the shared Redis client; nil uses redis.Client().
	Client *goredis.Client
}

// windowCounter increments key and reports the count inside the current
// window together with the window's end.
type windowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
}

// INCR with the expiry set on the first hit. Returns {count, ttl}.
var windowScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`)

type redisWindow struct {
	client *goredis.Client
}

func (r redisWindow) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	seconds := int(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	res, err := windowScript.Run(ctx, r.client, []string{key}, seconds).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	ttl := time.Duration(res[1]) * time.Second
	if ttl < 0 {
		ttl = window
	}
	return int(res[0]), time.Now().Add(ttl), nil
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// memoryWindow is the per-process fallback. Expired entries are swept on the
// write path at most once per sweepEvery.
type memoryWindow struct {
	mu         sync.Mutex
	entries    map[string]*windowEntry
	lastSweep  time.Time
	sweepEvery time.Duration
	now        func() time.Time
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{
		entries:    make(map[string]*windowEntry),
		sweepEvery: 5 * time.Minute,
		now:        time.Now,
	}
}

func (m *memoryWindow) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.sweepEvery {
		for k, e := range m.entries {
			if now.After(e.resetAt) {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}

	e, ok := m.entries[key]
	if !ok || now.After(e.resetAt) {
		e = &windowEntry{resetAt: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt, nil
}

func (m *memoryWindow) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func clientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// GlobalRateLimitConfig applies to every route.
func GlobalRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:ip:",
		KeyFunc:   clientIPKey,
	}
}

// SearchRateLimitConfig is the tighter budget for endpoints that hit the
// database or a geocoding provider on every call.
func SearchRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:search:",
		KeyFunc:   clientIPKey,
	}
}

// RateLimitMiddleware counts requests per key in Redis when a client is
// available and in memory otherwise.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = clientIPKey
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	fallback := newMemoryWindow()

	return func(c *gin.Context) {
		key := config.KeyPrefix + config.KeyFunc(c)
		ctx := c.Request.Context()

		var (
			count   int
			resetAt time.Time
			err     error
		)
		client := config.Client
		if client == nil {
			client = redis.Client()
		}
		if client != nil {
			count, resetAt, err = redisWindow{client: client}.Incr(ctx, key, config.Window)
			if err != nil {
				logRateLimitBackendError(c, err)
				if config.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
					c.Abort()
					return
				}
			}
		}
		if client == nil || err != nil {
			count, resetAt, _ = fallback.Incr(ctx, key, config.Window)
		}

		remaining := config.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if count <= config.Limit {
			c.Next()
			return
		}

		retryAfter := int(time.Until(resetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		security.DefaultLogger().LogRateLimitTriggered(ctx, c.ClientIP(), c.GetHeader("User-Agent"), getRequestID(c), c.FullPath())
		response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
		c.Abort()
	}
}

func logRateLimitBackendError(c *gin.Context, err error) {
	security.DefaultLogger().Log(c.Request.Context(), security.SecurityEvent{
		Event:       security.EventRateLimitTriggered,
		SubjectType: "system",
		IP:          c.ClientIP(),
		RequestID:   getRequestID(c),
		Details: map[string]interface{}{
			"error_type": "redis_error",
			"error":      err.Error(),
		},
	})
}
