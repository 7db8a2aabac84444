package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"insights-backend/internal/shared/server/respond"
)

const (
	// DefaultRateLimitGroup applies to every route without a dedicated group.
	DefaultRateLimitGroup = "DEFAULT"
	// UploadRateLimitGroup applies to workflow file uploads.
	UploadRateLimitGroup = "UPLOAD"

	// DefaultLimiterIdleTTL is how long an untouched bucket is kept.
	DefaultLimiterIdleTTL = 10 * time.Minute
)

// RateLimitRule is a token bucket refill rate (per second) and burst size.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per principal and group. Buckets idle
// for longer than IdleTTL are dropped; a dropped bucket comes back full.
type RateLimiter struct {
	IdleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		IdleTTL:   DefaultLimiterIdleTTL,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
		now:       now,
	}
}

// RateLimitKey identifies the caller for rate limiting. Signed-in users are
// keyed by id; guests and anonymous callers by client IP, since the guest id
// header is chosen by the client.
func RateLimitKey(c *gin.Context) string {
	if id := strings.TrimSpace(UserIDFromContext(c)); id != "" && !IsGuest(c) {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = DefaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		allowed, wait := cfg.Limiter.Allow(RateLimitKey(c)+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}
		if wait <= 0 {
			wait = time.Second
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"group":        group,
			"retryAfterMs": wait.Milliseconds(),
		})
	}
}

// Allow takes one token for key, or reports how long until one is available.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	l.evictIdle(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := b.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len reports how many buckets are held.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictIdle runs at most once per IdleTTL; callers hold l.mu.
func (l *RateLimiter) evictIdle(now time.Time) {
	ttl := l.IdleTTL
	if ttl <= 0 || now.Sub(l.lastSweep) < ttl {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= ttl {
			delete(l.buckets, key)
		}
	}
}

// UploadGroup routes workflow file selection and extraction to the upload bucket.
func UploadGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return DefaultRateLimitGroup
	}
	switch path := c.FullPath(); {
	case strings.HasSuffix(path, "/workflow/file"), strings.HasSuffix(path, "/workflow/extraction"):
		return UploadRateLimitGroup
	}
	return DefaultRateLimitGroup
}
