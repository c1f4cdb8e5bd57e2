// Package ratelimit provides per-client rate limiting using a token bucket
// algorithm.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket allows a number of requests (tokens) per time window, with
// tokens refilling at a steady rate.
type TokenBucket struct {
	capacity   int        // Maximum tokens (burst capacity)
	refillRate float64    // Tokens per second
	tokens     float64    // Current tokens available
	lastRefill time.Time  // Last time tokens were refilled
	mu         sync.Mutex // Guards the fields above
}

// newTokenBucket creates a full token bucket.
func newTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// refill adds the tokens earned since the last call. Callers hold tb.mu.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
	tb.lastRefill = now
}

// allow consumes a token if one is available.
func (tb *TokenBucket) allow() bool {
	ok, _, _ := tb.take(time.Now())
	return ok
}

// getStatus returns the remaining tokens and when the bucket will be full,
// without consuming a token.
func (tb *TokenBucket) getStatus() (remaining int, resetTime time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.refill(now)
	return int(tb.tokens), tb.fullAt(now)
}

// take refills, tries to consume one token and reports the state afterwards
// under a single lock.
func (tb *TokenBucket) take(now time.Time) (ok bool, remaining int, resetTime time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(now)
	if tb.tokens >= 1 {
		tb.tokens--
		ok = true
	}
	return ok, int(tb.tokens), tb.fullAt(now)
}

// fullAt is when the bucket will be back at capacity. Callers hold tb.mu.
func (tb *TokenBucket) fullAt(now time.Time) time.Time {
	missing := float64(tb.capacity) - tb.tokens
	if missing <= 0 {
		return now
	}
	return now.Add(time.Duration(missing / tb.refillRate * float64(time.Second)))
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

type bucketEntry struct {
	bucket   *TokenBucket
	lastUsed time.Time
}

// Limiter manages rate limiting for multiple clients using token buckets.
type Limiter struct {
	config *Config

	mu      sync.Mutex
	entries map[string]*bucketEntry // client:pattern:method

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// NewLimiter creates a new rate limiter. When enabled with a cleanup
// interval it starts a goroutine that must be ended with Stop.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
			Whitelist:       make(map[string]bool),
			Blacklist:       make(map[string]bool),
		}
	}

	l := &Limiter{
		config:  config,
		entries: make(map[string]*bucketEntry),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(config.CleanupInterval)
		l.cleanupStop = make(chan struct{})
		go l.cleanup()
	}
	return l
}

// policyFor resolves the limit that applies to a request and the bucket key
// it counts against. Requests matching the same endpoint pattern share one
// bucket per client, so every /resumes/{id}/download draws on a single PDF
// budget.
func (l *Limiter) policyFor(clientID, endpoint, method string) (EndpointConfig, string) {
	if ec := MatchEndpoint(endpoint, method, l.config.EndpointConfigs); ec != nil {
		return *ec, clientID + ":" + ec.Path + ":" + method
	}
	return EndpointConfig{
		Limit:  l.config.DefaultLimit,
		Window: l.config.DefaultWindow,
		Burst:  l.config.DefaultLimit,
	}, clientID + ":" + endpoint + ":" + method
}

// Allow checks if a request from the given client is allowed for the
// specified endpoint. A policy with a non-positive limit is unlimited.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	policy, key := l.policyFor(clientID, endpoint, method)
	if policy.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	now := time.Now()
	allowed, remaining, resetTime := l.touch(key, policy, now).take(now)

	info := Info{
		Allowed:   allowed,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}
	if !allowed {
		info.RetryAfter = max(resetTime.Sub(now), 0)
	}
	return allowed, info
}

// touch returns the bucket for key, creating it on first use, and records
// the access for cleanup.
func (l *Limiter) touch(key string, policy EndpointConfig, now time.Time) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		capacity := policy.Burst
		if capacity <= 0 {
			capacity = policy.Limit
		}
		e = &bucketEntry{bucket: newTokenBucket(capacity, float64(policy.Limit)/policy.Window.Seconds())}
		l.entries[key] = e
	}
	e.lastUsed = now
	return e.bucket
}

func (l *Limiter) bucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// cleanup drops buckets idle for an hour until Stop is called.
func (l *Limiter) cleanup() {
	for {
		select {
		case now := <-l.cleanupTicker.C:
			l.cleanupBuckets(now.Add(-time.Hour))
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets last used before cutoff.
func (l *Limiter) cleanupBuckets(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastUsed.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupTicker != nil {
			l.cleanupTicker.Stop()
		}
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
