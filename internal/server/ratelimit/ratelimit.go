// Package ratelimit provides token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// bucket is a token bucket for a single client. Tokens refill at a steady
// rate up to the burst capacity.
type bucket struct {
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newBucket(capacity int, refillRate float64) *bucket {
	return &bucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	b.tokens = min(float64(b.capacity), b.tokens+elapsed.Seconds()*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	Limit   int           // requests per window (also burst capacity)
	Window  time.Duration // refill window
}

// LoadConfig reads rate limit settings from the environment. Defaults:
// enabled, 60 requests per minute.
func LoadConfig() *Config {
	cfg := &Config{Enabled: true, Limit: 60, Window: time.Minute}

	if v := os.Getenv("WADI_RATE_LIMIT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = enabled
		}
	}
	if v := os.Getenv("WADI_RATE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			cfg.Limit = limit
		}
	}
	if v := os.Getenv("WADI_RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Window = time.Duration(secs) * time.Second
		}
	}
	return cfg
}

// Limiter manages per-client token buckets.
type Limiter struct {
	config     *Config
	buckets    map[string]*bucket
	lastAccess map[string]time.Time
	mu         sync.Mutex
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewLimiter creates a limiter and starts its idle-bucket cleanup loop.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = LoadConfig()
	}
	l := &Limiter{
		config:     config,
		buckets:    make(map[string]*bucket),
		lastAccess: make(map[string]time.Time),
		stop:       make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the client may make a request now.
func (l *Limiter) Allow(clientID string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	b, ok := l.buckets[clientID]
	if !ok {
		rate := float64(l.config.Limit) / l.config.Window.Seconds()
		b = newBucket(l.config.Limit, rate)
		l.buckets[clientID] = b
	}
	l.lastAccess[clientID] = time.Now()
	l.mu.Unlock()

	return b.allow()
}

// Stop terminates the cleanup loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for id, last := range l.lastAccess {
				if now.Sub(last) > 10*time.Minute {
					delete(l.buckets, id)
					delete(l.lastAccess, id)
				}
			}
			l.mu.Unlock()
		}
	}
}
