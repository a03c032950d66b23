package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/drivemini/pkg/configs"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 1024
)

// keyedLimiter 为每个键维护一个令牌桶，空闲超过 limiterIdleTTL 的桶在访问时顺带清理.
type keyedLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	entries map[string]*limiterEntry
	calls   int
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newKeyedLimiter(rps float64, burst int) *keyedLimiter {
	return &keyedLimiter{rps: rate.Limit(rps), burst: burst, entries: map[string]*limiterEntry{}}
}

func (k *keyedLimiter) allow(key string, now time.Time) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.calls++
	if k.calls%limiterSweepEvery == 0 {
		for key, e := range k.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(k.entries, key)
			}
		}
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(k.rps, k.burst)}
		k.entries[key] = e
	}

	e.lastSeen = now

	return e.lim.AllowN(now, 1)
}

// RateLimitMiddleware 令牌桶限流，超限返回 429.
// Key 取值：global 全局共享；ip 按客户端 IP；header:Name 按请求头，头缺失时退回 IP.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode, header := cfg.KeyMode()
	limiter := newKeyedLimiter(cfg.RPS, cfg.Burst)

	keyOf := func(c *gin.Context) string {
		switch mode {
		case configs.RateLimitGlobal:
			return "*"
		case configs.RateLimitHeader:
			if v := c.GetHeader(header); v != "" {
				return v
			}
		}

		return clientIP(c)
	}

	return func(c *gin.Context) {
		if !limiter.allow(keyOf(c), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})

			return
		}

		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}

	if c.Request.RemoteAddr != "" {
		return c.Request.RemoteAddr
	}

	return "unknown"
}
