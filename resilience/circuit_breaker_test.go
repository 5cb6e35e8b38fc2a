package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func testBreaker(maxFailures int) (*CircuitBreaker, *time.Time) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(BreakerConfig{MaxFailures: maxFailures, Cooldown: time.Second})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestNewCircuitBreaker_ZeroDisables(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{})
	if cb != nil {
		t.Fatal("expected nil breaker for zero max failures")
	}
	for range 10 {
		if err := cb.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("nil breaker must pass errors through, got %v", err)
		}
	}
	if cb.State() != BreakerClosed || cb.Failures() != 0 {
		t.Error("nil breaker should report closed with no failures")
	}
	cb.Reset()
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := testBreaker(3)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	if cb.Failures() != 0 {
		t.Fatalf("a success must reset the count, got %d", cb.Failures())
	}

	for range 3 {
		_ = cb.Execute(fail)
	}
	if cb.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected fast failure without a call, got %v (called=%v)", err, called)
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	tests := []struct {
		name  string
		trial func() error
		want  BreakerState
	}{
		{"trial succeeds", succeed, BreakerClosed},
		{"trial fails", fail, BreakerOpen},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cb, now := testBreaker(1)
			_ = cb.Execute(fail)

			*now = now.Add(time.Second)
			if cb.State() != BreakerHalfOpen {
				t.Fatalf("expected half-open after cooldown, got %s", cb.State())
			}
			_ = cb.Execute(tc.trial)
			if cb.State() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, cb.State())
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenLimitsTrials(t *testing.T) {
	cb, now := testBreaker(1)
	_ = cb.Execute(fail)
	*now = now.Add(time.Second)

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error { <-release; return nil })
	}()

	// Wait until the trial call holds the only slot.
	deadline := time.Now().Add(2 * time.Second)
	for {
		cb.mu.Lock()
		taken := cb.halfOpenCalls == 1
		cb.mu.Unlock()
		if taken {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("trial call never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second trial to be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected trial error: %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Fatalf("expected closed after successful trial, got %s", cb.State())
	}
}

func TestCircuitBreaker_CancellationNotCounted(t *testing.T) {
	cb, _ := testBreaker(1)
	err := cb.Execute(func() error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation returned, got %v", err)
	}
	if cb.State() != BreakerClosed || cb.Failures() != 0 {
		t.Fatalf("cancellation must not trip the breaker, state=%s failures=%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_StateChangeAndReset(t *testing.T) {
	var changes []string
	cb := NewCircuitBreaker(BreakerConfig{
		MaxFailures: 1,
		OnStateChange: func(from, to BreakerState) {
			changes = append(changes, from.String()+"->"+to.String())
		},
	})
	_ = cb.Execute(fail)
	cb.Reset()

	want := []string{"closed->open", "open->closed"}
	if len(changes) != len(want) || changes[0] != want[0] || changes[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, changes)
	}
	if BreakerState(42).String() != "unknown" {
		t.Error("unexpected name for unknown state")
	}
}
