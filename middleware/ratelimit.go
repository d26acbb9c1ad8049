// Package middleware provides ready-made before/after middleware for
// stratus engines: API key auth, token-bucket rate limiting, request
// IDs, access logging and CORS.
package middleware

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/stratushq/stratus"
)

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(rps int, burst int) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: float64(rps),
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now
}

// Limiter manages token buckets for multiple client keys
type Limiter struct {
	buckets       map[string]*TokenBucket
	defaultRPS    int
	defaultBurst  int
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// LimiterConfig for creating a new Limiter
type LimiterConfig struct {
	DefaultRPS      int
	DefaultBurst    int
	CleanupInterval time.Duration
}

// NewLimiter creates a new keyed rate limiter
func NewLimiter(cfg LimiterConfig) *Limiter {
	l := &Limiter{
		buckets:      make(map[string]*TokenBucket),
		defaultRPS:   cfg.DefaultRPS,
		defaultBurst: cfg.DefaultBurst,
		stopCleanup:  make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
		go l.cleanup()
	}

	return l
}

// Allow checks if a request with the given key is allowed
func (l *Limiter) Allow(key string) bool {
	return l.AllowWithLimits(key, l.defaultRPS, l.defaultBurst)
}

// AllowWithLimits checks if a request is allowed with custom limits
func (l *Limiter) AllowWithLimits(key string, rps, burst int) bool {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		// Double-check after acquiring write lock
		if bucket, exists = l.buckets[key]; !exists {
			bucket = NewTokenBucket(rps, burst)
			l.buckets[key] = bucket
		}
		l.mu.Unlock()
	}

	return bucket.Allow()
}

// SetLimits updates or creates a bucket with specific limits
func (l *Limiter) SetLimits(key string, rps, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = NewTokenBucket(rps, burst)
}

// cleanup removes stale buckets periodically
func (l *Limiter) cleanup() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.mu.Lock()
			now := time.Now()
			for key, bucket := range l.buckets {
				bucket.mu.Lock()
				// Remove buckets that haven't been used in 10 minutes
				if now.Sub(bucket.lastRefill) > 10*time.Minute {
					delete(l.buckets, key)
				}
				bucket.mu.Unlock()
			}
			l.mu.Unlock()
		case <-l.stopCleanup:
			return
		}
	}
}

// Stop stops the limiter cleanup goroutine
func (l *Limiter) Stop() {
	if l.cleanupTicker != nil {
		l.cleanupTicker.Stop()
		close(l.stopCleanup)
	}
}

// Stats returns the remaining tokens per key
func (l *Limiter) Stats() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]float64)
	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		stats[key] = bucket.tokens
		bucket.mu.Unlock()
	}
	return stats
}

// RateLimit returns middleware that short-circuits with a 429 once the
// key produced by keyFn runs out of tokens. A nil keyFn limits per
// client IP.
func RateLimit(limiter *Limiter, keyFn func(*stratus.Context) string) stratus.Middleware {
	if keyFn == nil {
		keyFn = func(ctx *stratus.Context) string {
			return "ip:" + ClientIP(ctx)
		}
	}

	return stratus.BeforeFunc(func(ctx *stratus.Context) stratus.Result {
		if limiter.Allow(keyFn(ctx)) {
			return stratus.Proceed()
		}
		resp := stratus.TooManyRequests("too many requests").WithHeader("Retry-After", "1")
		return stratus.ShortCircuit(resp)
	})
}

// ClientIP resolves the client address, preferring the forwarding
// headers set by upstream proxies.
func ClientIP(ctx *stratus.Context) string {
	if xff := ctx.Header().Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := ctx.Header().Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(ctx.RemoteAddr())
	if err != nil {
		return ctx.RemoteAddr()
	}
	return ip
}
