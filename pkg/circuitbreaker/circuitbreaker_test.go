package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTestError = errors.New("test error")

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker() (*CircuitBreaker, *manualClock) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	cb := New(Config{
		FailureThreshold:    2,
		SuccessThreshold:    2,
		OpenTimeout:         time.Minute,
		MaxRequestsHalfOpen: 1,
		Clock:               clock.Now,
	})
	return cb, clock
}

func fail(ctx context.Context) error    { return errTestError }
func succeed(ctx context.Context) error { return nil }

func TestCircuitBreaker_ClosedState_Success(t *testing.T) {
	cb := New(DefaultConfig())

	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed, got: %v", cb.GetState())
	}
}

func TestCircuitBreaker_ClosedState_FailurePassesErrorThrough(t *testing.T) {
	cb := New(DefaultConfig())

	err := cb.Execute(context.Background(), fail)
	if !errors.Is(err, errTestError) {
		t.Errorf("Expected the function's error, got: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed, got: %v", cb.GetState())
	}
	if stats := cb.GetStats(); stats.FailureCount != 1 {
		t.Errorf("Expected failure count 1, got: %d", stats.FailureCount)
	}
}

func TestCircuitBreaker_OpensAndRejects(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state Open, got: %v", cb.GetState())
	}

	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got: %v", err)
	}
	if called {
		t.Error("function must not run while open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)
	if cb.GetState() != StateClosed {
		t.Errorf("non-consecutive failures must not open the breaker")
	}
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccesses(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Minute)

	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe should run, got: %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected state HalfOpen, got: %v", cb.GetState())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("second probe should run, got: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed, got: %v", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Minute)

	_ = cb.Execute(ctx, fail)
	if cb.GetState() != StateOpen {
		t.Errorf("Expected state Open, got: %v", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrOpen) {
		t.Errorf("Expected second concurrent probe to be rejected, got: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("probe failed: %v", err)
	}
}

func TestCircuitBreaker_CancelledCallDoesNotCount(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	}
	if cb.GetState() != StateClosed {
		t.Errorf("cancellations must not open the breaker")
	}
}

func TestDo_ReturnsResult(t *testing.T) {
	cb := New(DefaultConfig())

	got, err := Do(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("Expected ok, got %q, %v", got, err)
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	var transitions []string
	cb.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Minute)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, succeed)

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed after reset, got: %v", cb.GetState())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Errorf("Expected request to pass after reset, got: %v", err)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := New(Config{FailureThreshold: 1000})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(ctx, succeed)
			} else {
				_ = cb.Execute(ctx, fail)
			}
		}(i)
	}
	wg.Wait()

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed, got: %v", cb.GetState())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	}
	for state, want := range tests {
		if state.String() != want {
			t.Errorf("Expected %s, got %s", want, state.String())
		}
	}
}
