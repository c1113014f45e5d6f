package input

import (
	"sync"
	"time"
)

// RateLimiter throttles commands per input source. A flooding pose bridge
// and a spamming chat user look the same from here.
type RateLimiter struct {
	mu      sync.Mutex
	sources map[string]*sourceLimit
	config  RateLimitConfig
}

type sourceLimit struct {
	count     int
	windowEnd time.Time
	lastCmd   time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	// MaxPerWindow is max commands per window
	MaxPerWindow int
	// WindowDuration is the sliding window size
	WindowDuration time.Duration
	// CooldownDuration is minimum time between commands
	CooldownDuration time.Duration
}

// DefaultRateLimitConfig suits a live pose stream: a human leans a few
// times a second at most, so the cooldown never bites a real player.
var DefaultRateLimitConfig = RateLimitConfig{
	MaxPerWindow:     20,
	WindowDuration:   time.Second,
	CooldownDuration: 100 * time.Millisecond,
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		sources: make(map[string]*sourceLimit),
		config:  cfg,
	}

	go rl.cleanup()

	return rl
}

// Allow checks whether a source may execute a command right now.
func (rl *RateLimiter) Allow(source string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	limit, exists := rl.sources[source]
	if !exists {
		rl.sources[source] = &sourceLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			lastCmd:   now,
		}
		return true
	}

	// Cooldown between consecutive commands
	if now.Sub(limit.lastCmd) < rl.config.CooldownDuration {
		return false
	}

	// Fresh window
	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.lastCmd = now
		return true
	}

	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.lastCmd = now
	return true
}

// cleanup drops sources that have gone quiet
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-5 * time.Minute)
		for key, limit := range rl.sources {
			if limit.lastCmd.Before(cutoff) {
				delete(rl.sources, key)
			}
		}
		rl.mu.Unlock()
	}
}
