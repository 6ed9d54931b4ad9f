package middleware

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wa-ai-bot-go/internal/config"
)

// RateLimiter decides whether a message from an identifier is admitted.
type RateLimiter interface {
	Admit(identifier string, now time.Time) bool
	Reset(identifier string)
}

// SlidingWindowLimiter admits at most maxPerMinute messages per identifier
// within any trailing 60 second window. A denied request is not recorded, so
// a burst cannot lock an identifier out permanently.
type SlidingWindowLimiter struct {
	enabled      bool
	maxPerMinute int
	windows      map[string][]time.Time
	mu           sync.Mutex
	logger       *logrus.Logger
}

const windowSize = 60 * time.Second

// NewRateLimiter creates a rate limiter from config.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *logrus.Logger) RateLimiter {
	if !cfg.Enabled {
		return &SlidingWindowLimiter{enabled: false}
	}

	rl := &SlidingWindowLimiter{
		enabled:      true,
		maxPerMinute: cfg.MaxPerMinute,
		windows:      make(map[string][]time.Time),
		logger:       logger,
	}

	go rl.cleanup()

	return rl
}

// Admit prunes the identifier's window to the trailing 60 seconds, then
// either denies (without recording) or records now and admits. A first-time
// identifier always admits.
func (r *SlidingWindowLimiter) Admit(identifier string, now time.Time) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	window := r.windows[identifier]
	cutoff := now.Add(-windowSize)

	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= r.maxPerMinute {
		r.windows[identifier] = kept
		r.logger.WithFields(logrus.Fields{
			"identifier": identifier,
			"window":     len(kept),
		}).Warn("Rate limit exceeded")
		return false
	}

	r.windows[identifier] = append(kept, now)
	return true
}

// Reset drops the identifier's window.
func (r *SlidingWindowLimiter) Reset(identifier string) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	delete(r.windows, identifier)
	r.mu.Unlock()
}

// cleanup periodically drops windows that have gone fully stale so the map
// does not grow with every identifier ever seen.
func (r *SlidingWindowLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-windowSize)

		r.mu.Lock()
		for id, window := range r.windows {
			if len(window) == 0 || !window[len(window)-1].After(cutoff) {
				delete(r.windows, id)
			}
		}
		r.mu.Unlock()
	}
}
