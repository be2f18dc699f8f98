package httputil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(errFlaky)
	if !IsRetryable(err) {
		t.Error("IsRetryable should be true for wrapped error")
	}
	if !errors.Is(err, errFlaky) {
		t.Error("wrapped error should unwrap to the cause")
	}
	if IsRetryable(errFlaky) {
		t.Error("plain error should not be retryable")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		failures  int
		retryable bool
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"success first try", 0, true, 3, 1, false},
		{"succeeds after retry", 1, true, 3, 2, false},
		{"exhausts attempts", 5, true, 3, 3, true},
		{"non-retryable stops", 5, false, 3, 1, true},
		{"zero attempts runs once", 5, true, 0, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(ctx, tt.attempts, time.Millisecond, func() error {
				calls++
				if calls > tt.failures {
					return nil
				}
				if tt.retryable {
					return Retryable(errFlaky)
				}
				return errFlaky
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error {
		return Retryable(errFlaky)
	})
	if err != context.Canceled {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestRetryHonoursAfter(t *testing.T) {
	start := time.Now()
	calls := 0
	_ = Retry(context.Background(), 2, time.Hour, func() error {
		calls++
		return &RetryableError{Err: errFlaky, After: time.Millisecond}
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if time.Since(start) > time.Minute {
		t.Error("Retry() ignored the server delay")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := RetryAfter(h); got != tt.want {
			t.Errorf("RetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
