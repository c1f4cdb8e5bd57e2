package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTokenBucket_Allow(t *testing.T) {
	bucket := newTokenBucket(10, 1.0)

	for i := 0; i < 10; i++ {
		assert.True(t, bucket.allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, bucket.allow(), "11th request should be denied")
}

func TestTokenBucket_Refill(t *testing.T) {
	bucket := newTokenBucket(10, 1.0)
	for i := 0; i < 10; i++ {
		bucket.allow()
	}

	// Pretend 1.5 seconds passed
	bucket.mu.Lock()
	bucket.lastRefill = bucket.lastRefill.Add(-1500 * time.Millisecond)
	bucket.mu.Unlock()

	assert.True(t, bucket.allow(), "refilled token should be available")
	assert.False(t, bucket.allow(), "only one token refilled")
}

func TestTokenBucket_GetStatus(t *testing.T) {
	bucket := newTokenBucket(10, 1.0)
	for i := 0; i < 5; i++ {
		bucket.allow()
	}

	remaining, resetTime := bucket.getStatus()
	assert.Equal(t, 5, remaining)
	assert.True(t, resetTime.After(time.Now()), "reset time should be in the future")
}

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/search", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/search", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, info := limiter.Allow("10.0.0.1", "/search", "GET")
		require.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}

	allowed, _ := limiter.Allow("10.0.0.2", "/search", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false, DefaultLimit: 1})
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/search", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_DownloadsShareOneBudget(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(3),
	})
	defer limiter.Stop()

	// Different résumé IDs drain the same burst of 5
	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow("127.0.0.1", fmt.Sprintf("/resumes/id-%d/download", i), "GET")
		require.True(t, allowed, "download %d", i+1)
		assert.Equal(t, 3, info.Limit)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/resumes/another/download", "GET")
	assert.False(t, allowed)

	// Viewing is not affected
	allowed, _ = limiter.Allow("127.0.0.1", "/resumes/another", "GET")
	assert.True(t, allowed)

	// Another client has its own budget
	allowed, _ = limiter.Allow("127.0.0.2", "/resumes/another/download", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var allowedCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("127.0.0.1", "/search", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 100, allowedCount.Load())
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/search", "GET")
	}
	require.Equal(t, 10, limiter.bucketCount())

	limiter.cleanupBuckets(time.Now().Add(-time.Hour))
	assert.Equal(t, 10, limiter.bucketCount(), "recent buckets survive")

	limiter.cleanupBuckets(time.Now().Add(time.Second))
	assert.Equal(t, 0, limiter.bucketCount(), "stale buckets are removed")
}

func TestLimiter_Burst(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/resumes", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
		},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/resumes", "POST")
		require.True(t, allowed, "burst request %d", i+1)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/resumes", "POST")
	assert.False(t, allowed)
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: time.Millisecond})
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("127.0.0.1", "/search", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(60)

	tests := []struct {
		name     string
		path     string
		method   string
		wantPath string
		wantNil  bool
	}{
		{name: "health unlimited", path: "/health", method: "GET", wantPath: ""},
		{name: "metrics unlimited", path: "/metrics", method: "GET", wantPath: ""},
		{name: "download pattern", path: "/resumes/0b6f/download", method: "GET", wantPath: "/resumes/{id}/download"},
		{name: "create exact", path: "/resumes", method: "POST", wantPath: "/resumes"},
		{name: "edit prefix", path: "/resumes/0b6f/edit", method: "POST", wantPath: "/resumes/"},
		{name: "delete prefix", path: "/resumes/0b6f", method: "DELETE", wantPath: "/resumes/"},
		{name: "skills prefix", path: "/api/skills/add", method: "POST", wantPath: "/api/skills/"},
		{name: "login", path: "/auth/login", method: "POST", wantPath: "/auth/login"},
		{name: "view uses default", path: "/resumes/0b6f", method: "GET", wantNil: true},
		{name: "empty id segment", path: "/resumes//download", method: "GET", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "50")
	t.Setenv("RATE_LIMIT_PDF_PER_HOUR", "7")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)

	download := MatchEndpoint("/resumes/x/download", "GET", cfg.EndpointConfigs)
	require.NotNil(t, download)
	assert.Equal(t, 7, download.Limit)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
