package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var (
	errTestError    = errors.New("test error")
	errNonRetryable = errors.New("non-retryable error")
	errRetryable    = errors.New("retryable error")
)

func fastConfig() Config {
	return Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errTestError
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_MaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), func(ctx context.Context) error {
		attempts++
		return errTestError
	})

	if !errors.Is(err, errTestError) {
		t.Errorf("Expected wrapped test error, got: %v", err)
	}
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got: %d", attempts)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	cfg := fastConfig()
	cfg.NonRetryableErrors = []error{errNonRetryable}

	attempts := 0
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("lookup: %w", errNonRetryable)
	})

	if !errors.Is(err, errNonRetryable) {
		t.Errorf("Expected non-retryable error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetry_RetryableErrorsList(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryableErrors = []error{errRetryable}

	attempts := 0
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errRetryable
		}
		return errTestError
	})

	if !errors.Is(err, errTestError) {
		t.Errorf("Expected test error, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestRetry_PermanentStopsAndUnwraps(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(), func(ctx context.Context) error {
		attempts++
		return Permanent(errTestError)
	})

	if err != errTestError {
		t.Errorf("Expected the unwrapped error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) must be nil")
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	start := time.Now()
	err := Retry(ctx, cfg, func(ctx context.Context) error {
		attempts++
		return errTestError
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Retry did not stop on cancellation")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetry_Disabled(t *testing.T) {
	cfg := fastConfig()
	cfg.Enabled = false

	attempts := 0
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return errTestError
	})

	if err != errTestError {
		t.Errorf("Expected test error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetryWithResult_Success(t *testing.T) {
	attempts := 0
	result, err := RetryWithResult(context.Background(), fastConfig(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errTestError
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got: %s", result)
	}
}

func TestCalculateDelay_Exponential(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for attempt, want := range expected {
		if got := calculateDelay(cfg, attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestCalculateDelay_MaxDelay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Multiplier: 2.0}

	if got := calculateDelay(cfg, 10); got != 500*time.Millisecond {
		t.Errorf("Expected delay capped at 500ms, got: %v", got)
	}
}

func TestCalculateDelay_JitterRange(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0, Jitter: true}

	for i := 0; i < 200; i++ {
		got := calculateDelay(cfg, 0)
		if got < 75*time.Millisecond || got >= 125*time.Millisecond {
			t.Fatalf("jittered delay %v outside [75ms, 125ms)", got)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("Expected MaxAttempts 3, got: %d", cfg.MaxAttempts)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier 2.0, got: %f", cfg.Multiplier)
	}
}
