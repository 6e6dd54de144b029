// Package ratelimit throttles repeated requests from the same client.
//
// authgate uses it on the login endpoint, keyed by client address, so a
// single client cannot hammer password verification:
//
//	limiter := ratelimit.NewKeyedLimiter(30, 5) // 30/min per client, bursts of 5
//	if !limiter.Allow(clientIP) {
//		// 429 with Retry-After: limiter.RetryAfter()
//	}
package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/thejerf/abtime"
	"golang.org/x/time/rate"
)

// ErrRateLimitExceeded is returned when a client is over its limit.
var ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

// Usage describes a limiter's configuration and load.
type Usage struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	Burst             int `json:"burst"`
	TrackedClients    int `json:"tracked_clients"`
}

// KeyedLimiter keeps one token bucket per key. Buckets idle for longer than
// the idle TTL are pruned so the map does not grow with every address seen.
//
// Safe for concurrent use.
type KeyedLimiter struct {
	clock   abtime.AbstractTime
	buckets map[string]*bucket
	rpm     int
	burst   int
	idleTTL time.Duration
	mu      sync.Mutex
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Option configures a KeyedLimiter.
type Option func(*KeyedLimiter)

// WithClock sets the time source.
func WithClock(clock abtime.AbstractTime) Option {
	return func(l *KeyedLimiter) { l.clock = clock }
}

// WithIdleTTL sets how long an unused bucket is kept. Default 10 minutes.
func WithIdleTTL(d time.Duration) Option {
	return func(l *KeyedLimiter) { l.idleTTL = d }
}

// NewKeyedLimiter allows rpm requests per minute per key with the given
// burst. rpm <= 0 disables limiting; burst <= 0 means 1.
func NewKeyedLimiter(rpm, burst int, opts ...Option) *KeyedLimiter {
	l := &KeyedLimiter{
		clock:   abtime.NewRealTime(),
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
	}
	l.rpm, l.burst = normalize(rpm, burst)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func normalize(rpm, burst int) (int, int) {
	if rpm < 0 {
		rpm = 0
	}
	if burst <= 0 {
		burst = 1
	}
	return rpm, burst
}

// Allow reports whether key may make a request now, consuming a token if so.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rpm == 0 {
		return true
	}
	now := l.clock.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit(), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// RetryAfter is how long a rejected client should wait for one token.
func (l *KeyedLimiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rpm == 0 {
		return 0
	}
	return time.Duration(math.Ceil(float64(time.Minute) / float64(l.rpm)))
}

// SetLimit changes the rate for every key. Existing buckets are reset.
func (l *KeyedLimiter) SetLimit(rpm, burst int) {
	rpm, burst = normalize(rpm, burst)

	l.mu.Lock()
	defer l.mu.Unlock()
	if rpm == l.rpm && burst == l.burst {
		return
	}
	l.rpm, l.burst = rpm, burst
	clear(l.buckets)
}

// Prune drops buckets idle longer than the idle TTL and returns how many
// were dropped.
func (l *KeyedLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-l.idleTTL)
	pruned := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			pruned++
		}
	}
	return pruned
}

// StartJanitor prunes idle buckets every interval until ctx is done.
func (l *KeyedLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Prune()
			}
		}
	}()
}

// GetUsage returns the current limits and number of tracked clients.
func (l *KeyedLimiter) GetUsage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Usage{RequestsPerMinute: l.rpm, Burst: l.burst, TrackedClients: len(l.buckets)}
}

// limit converts requests per minute to tokens per second. l.mu must be held.
func (l *KeyedLimiter) limit() rate.Limit {
	return rate.Limit(float64(l.rpm) / 60.0)
}
