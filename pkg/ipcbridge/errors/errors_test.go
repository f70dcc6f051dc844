package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryTransient, "transient"},
		{CategoryPermanent, "permanent"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.category.String(); got != tt.expected {
				t.Errorf("Category(%d).String() = %s, want %s", tt.category, got, tt.expected)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryPermanent},
		{"categorized transient", Transient(errors.New("x"), "publish"), CategoryTransient},
		{"wrapped categorized", fmt.Errorf("outer: %w", Transient(errors.New("x"), "")), CategoryTransient},
		{"canceled", context.Canceled, CategoryPermanent},
		{"deadline", context.DeadlineExceeded, CategoryTransient},
		{"net timeout", timeoutErr{}, CategoryTransient},
		{"unknown", errors.New("boom"), CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.expected {
				t.Errorf("Categorize() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestCategorizedError(t *testing.T) {
	t.Run("error message with context", func(t *testing.T) {
		err := NewCategorized(errors.New("failed"), CategoryTransient, "publish")
		expected := "publish: failed (category: transient, attempts: 0)"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %q, want %q", got, expected)
		}
	})

	t.Run("unwrap", func(t *testing.T) {
		inner := errors.New("inner error")
		err := Permanent(inner, "test")
		if !errors.Is(err, inner) {
			t.Error("Unwrap should return inner error")
		}
	})
}

func TestWithRetryContext(t *testing.T) {
	fast := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, BackoffFactor: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		res := WithRetryContext(context.Background(), fast, func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", Transient(errors.New("not yet"), "")
			}
			return "ok", nil
		})
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Value != "ok" || res.Attempts != 3 {
			t.Errorf("got value=%q attempts=%d", res.Value, res.Attempts)
		}
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		calls := 0
		perm := errors.New("closed")
		res := WithRetryContext(context.Background(), fast, func(context.Context) (int, error) {
			calls++
			return 0, perm
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if !errors.Is(res.Err, perm) {
			t.Errorf("expected wrapped permanent error, got %v", res.Err)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		attempts, err := Retry(context.Background(), fast, func(context.Context) error {
			return Transient(errors.New("again"), "")
		})
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
		var catErr *CategorizedError
		if !errors.As(err, &catErr) || catErr.Context != "max retries exceeded" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("zero attempts runs once", func(t *testing.T) {
		calls := 0
		_, _ = Retry(context.Background(), RetryConfig{}, func(context.Context) error {
			calls++
			return nil
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		attempts, err := Retry(ctx, fast, func(context.Context) error { return nil })
		if attempts != 0 || !errors.Is(err, context.Canceled) {
			t.Errorf("attempts=%d err=%v", attempts, err)
		}
	})
}
