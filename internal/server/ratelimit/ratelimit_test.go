package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsUpToBurst(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, Limit: 3, Window: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-a"), "request %d within burst", i)
	}
	assert.False(t, l.Allow("client-a"))
}

func TestLimiterIsPerClient(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, Limit: 1, Window: time.Minute})
	defer l.Stop()

	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"))
}

func TestLimiterRefills(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, Limit: 10, Window: 100 * time.Millisecond})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("client-a"))
	}
	assert.False(t, l.Allow("client-a"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, l.Allow("client-a"), "tokens refill over time")
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false, Limit: 1, Window: time.Minute})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("client-a"))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WADI_RATE_LIMIT_ENABLED", "")
	t.Setenv("WADI_RATE_LIMIT", "")
	t.Setenv("WADI_RATE_LIMIT_WINDOW_SECONDS", "")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Limit)
	assert.Equal(t, time.Minute, cfg.Window)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("WADI_RATE_LIMIT_ENABLED", "false")
	t.Setenv("WADI_RATE_LIMIT", "120")
	t.Setenv("WADI_RATE_LIMIT_WINDOW_SECONDS", "30")

	cfg := LoadConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 120, cfg.Limit)
	assert.Equal(t, 30*time.Second, cfg.Window)
}
