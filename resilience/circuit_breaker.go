package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// BreakerState is the position of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through and counts consecutive failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cool-down elapses.
	BreakerOpen
	// BreakerHalfOpen lets a few trial calls through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the protected function while
// the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// circuit. Zero disables the breaker.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	// Cooldown is how long the circuit stays open before trial calls.
	// Defaults to 30s.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	// HalfOpenCalls is the number of trial calls allowed, and the number of
	// successes needed to close again. Defaults to 1.
	HalfOpenCalls int `yaml:"half_open_calls" mapstructure:"half_open_calls" validate:"gte=0"`
	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(from, to BreakerState) `yaml:"-" mapstructure:"-"`
}

// CircuitBreaker fails fast once a dependency keeps failing. A nil
// *CircuitBreaker lets every call through.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu            sync.Mutex
	state         BreakerState
	failures      int
	successes     int
	halfOpenCalls int
	openedAt      time.Time
	now           func() time.Time
}

// NewCircuitBreaker returns nil when cfg.MaxFailures is zero.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		return nil
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenCalls <= 0 {
		cfg.HalfOpenCalls = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open. Cancellation of the caller's
// context is not held against the dependency.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb == nil {
		return fn()
	}
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	if cb == nil {
		return BreakerClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	if cb == nil {
		return 0
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit and clears the counters.
func (cb *CircuitBreaker) Reset() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.to(BreakerClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.current() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if cb.halfOpenCalls < cb.cfg.HalfOpenCalls {
			cb.halfOpenCalls++
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		// Give the trial slot back; nothing was learned about the dependency.
		if cb.state == BreakerHalfOpen && cb.halfOpenCalls > 0 {
			cb.halfOpenCalls--
		}
		return
	}

	if err == nil {
		switch cb.current() {
		case BreakerClosed:
			cb.failures = 0
		case BreakerHalfOpen:
			cb.successes++
			if cb.successes >= cb.cfg.HalfOpenCalls {
				cb.to(BreakerClosed)
				cb.failures = 0
			}
		}
		return
	}

	cb.failures++
	switch cb.current() {
	case BreakerClosed:
		if cb.failures >= cb.cfg.MaxFailures {
			cb.to(BreakerOpen)
		}
	case BreakerHalfOpen:
		cb.to(BreakerOpen)
	}
}

// current moves an open circuit to half-open once the cool-down is over.
func (cb *CircuitBreaker) current() BreakerState {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		cb.to(BreakerHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) to(next BreakerState) {
	if cb.state == next {
		return
	}
	from := cb.state
	cb.state = next
	cb.successes = 0
	cb.halfOpenCalls = 0
	if next == BreakerOpen {
		cb.openedAt = cb.now()
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, next)
	}
}
