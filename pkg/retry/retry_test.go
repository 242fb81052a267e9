package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr struct {
	code int
}

func (e statusErr) Error() string     { return fmt.Sprintf("backend returned %d", e.code) }
func (e statusErr) IsRetryable() bool { return e.code >= 500 || e.code == 429 }

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:   retries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("expected InitialDelay=100ms, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay=5s, got %v", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", cfg.Multiplier)
	}
}

func TestDoIfRetryable_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	_, err := DoIfRetryable(context.Background(), fastConfig(3), func() (struct{}, error) {
		callCount++
		if callCount < 3 {
			return struct{}{}, errors.New("connection reset by peer")
		}
		return struct{}{}, nil
	})

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	callCount := 0
	start := time.Now()
	_, err := DoIfRetryable(ctx, cfg, func() (int, error) {
		callCount++
		return 0, statusErr{code: 503}
	})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("expected quick cancellation, took %v", elapsed)
	}
}

func TestDoIfRetryable_MaxDelayRespected(t *testing.T) {
	cfg := &Config{
		MaxRetries:   4,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     80 * time.Millisecond,
		Multiplier:   2.0,
	}

	var callTimes []time.Time
	_, err := DoIfRetryable(context.Background(), cfg, func() (int, error) {
		callTimes = append(callTimes, time.Now())
		return 0, statusErr{code: 502}
	})

	if err == nil {
		t.Error("expected error after exhausting retries")
	}
	if len(callTimes) != 5 {
		t.Errorf("expected 5 calls, got %d", len(callTimes))
	}
	for i := 1; i < len(callTimes); i++ {
		if delay := callTimes[i].Sub(callTimes[i-1]); delay > 130*time.Millisecond {
			t.Errorf("delay %v exceeds MaxDelay (80ms) by too much", delay)
		}
	}
}

func TestDoIfRetryable_MaxRetriesExhausted(t *testing.T) {
	expectedErr := errors.New("read: i/o timeout")
	callCount := 0
	result, err := DoIfRetryable(context.Background(), fastConfig(2), func() (string, error) {
		callCount++
		return "partial", expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if result != "partial" {
		t.Errorf("expected 'partial' result, got %s", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_NilConfig(t *testing.T) {
	result, err := DoIfRetryable(context.Background(), nil, func() (bool, error) {
		return true, nil
	})

	if err != nil {
		t.Errorf("expected no error with nil config, got %v", err)
	}
	if !result {
		t.Error("expected true result")
	}
}

func TestDoIfRetryable_StopsOnPermanentError(t *testing.T) {
	callCount := 0
	_, err := DoIfRetryable(context.Background(), fastConfig(3), func() (int, error) {
		callCount++
		return 0, statusErr{code: 400}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if callCount != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", callCount)
	}
}

func TestDoIfRetryable_RetriesTransientError(t *testing.T) {
	callCount := 0
	got, err := DoIfRetryable(context.Background(), fastConfig(3), func() (string, error) {
		callCount++
		if callCount < 3 {
			return "", statusErr{code: 503}
		}
		return "ok", nil
	})

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"Connection Reset (uppercase)", errors.New("Connection Reset by peer"), true},
		{"no such host", errors.New("lookup api: no such host"), true},
		{"i/o timeout", errors.New("read: i/o timeout"), true},
		{"unexpected eof", errors.New("unexpected EOF"), true},
		{"context canceled", context.Canceled, false},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), false},
		{"status 502", statusErr{code: 502}, true},
		{"status 429", statusErr{code: 429}, true},
		{"status 401", statusErr{code: 401}, false},
		{"wrapped status 503", fmt.Errorf("fetch projects: %w", statusErr{code: 503}), true},
		{"decode error", errors.New("invalid character 'x'"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsRetryable(tt.err); result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestDoIfRetryable_OnRetryReportsEachWait(t *testing.T) {
	cfg := fastConfig(2)
	var attempts []int
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
		if delay <= 0 {
			t.Errorf("attempt %d: expected positive delay, got %v", attempt, delay)
		}
	}

	_, err := DoIfRetryable(context.Background(), cfg, func() (int, error) {
		return 0, errors.New("connection reset by peer")
	})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected OnRetry for attempts [1 2], got %v", attempts)
	}
}
