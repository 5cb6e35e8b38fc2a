package resilience

import (
	"context"
	"sync"
	"time"
)

// LimiterConfig configures a token bucket.
type LimiterConfig struct {
	// Rate is the number of requests allowed per second. Zero disables limiting.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size. Defaults to max(1, Rate).
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// Limiter is a token bucket rate limiter safe for concurrent use.
type Limiter struct {
	rate  float64
	burst float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewLimiter creates a limiter. A nil *Limiter never blocks.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.Rate <= 0 {
		return nil
	}
	burst := float64(cfg.Burst)
	if burst <= 0 {
		burst = max(1, cfg.Rate)
	}
	l := &Limiter{rate: cfg.Rate, burst: burst, tokens: burst, now: time.Now}
	l.lastRefill = l.now()
	return l
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	l.refill()
	l.tokens--
	deficit := -l.tokens
	l.mu.Unlock()

	if deficit <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(deficit / l.rate * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		l.mu.Lock()
		l.tokens++
		l.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.lastRefill = now
	l.tokens = min(l.burst, l.tokens+elapsed*l.rate)
}
