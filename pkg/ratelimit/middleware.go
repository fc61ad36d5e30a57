package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"conduit/pkg/metrics"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
	// KeyHeader, when set, keys limits by this header (for example the
	// tenant header) and falls back to the client IP.
	KeyHeader string
}

func DefaultConfig() Config {
	return Config{
		RPS:             100,
		Burst:           200,
		CleanupInterval: time.Minute,
		MaxAge:          5 * time.Minute,
	}
}

// Limiter holds one token bucket per caller key.
type Limiter struct {
	cfg     Config
	mu      sync.RWMutex
	clients map[string]*client
	now     func() time.Time
}

func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	return &Limiter{cfg: cfg, clients: make(map[string]*client), now: time.Now}
}

// Allow consumes a token for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.RLock()
	c, ok := l.clients[key]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		if c, ok = l.clients[key]; !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
			l.clients[key] = c
		}
		l.mu.Unlock()
	}

	c.mu.Lock()
	c.lastSeen = l.now()
	c.mu.Unlock()
	return c.limiter.Allow()
}

// Cleanup forgets callers idle for longer than MaxAge.
func (l *Limiter) Cleanup() {
	cutoff := l.now().Add(-l.cfg.MaxAge)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		c.mu.Lock()
		idle := c.lastSeen.Before(cutoff)
		c.mu.Unlock()
		if idle {
			delete(l.clients, key)
		}
	}
}

// Run cleans up idle callers every CleanupInterval until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

func (l *Limiter) key(c *gin.Context) string {
	if l.cfg.KeyHeader != "" {
		if v := c.GetHeader(l.cfg.KeyHeader); v != "" {
			return v
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return c.RemoteIP()
}

func (l *Limiter) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(int(l.cfg.RPS))
	return func(c *gin.Context) {
		c.Header("X-RateLimit-Limit", limit)
		if !l.Allow(l.key(c)) {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}
		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
