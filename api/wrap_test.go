// Package api_test contains tests for the callable wrappers.
package api_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"learn.callratelimit/api"
	"learn.callratelimit/internal/callwindow"
	"learn.callratelimit/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestWrapFunc_SharedWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, err := api.NewLimiter("greet", 2, time.Minute, callwindow.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	calls := 0
	greet, err := api.WrapFunc(limiter, func(ctx context.Context, name string) (string, error) {
		calls++
		return "Hello, " + name + "!", nil
	})
	if err != nil {
		t.Fatalf("WrapFunc failed: %v", err)
	}
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		got, err := greet(ctx, name)
		if err != nil {
			t.Fatalf("greet(%q) unexpectedly rejected: %v", name, err)
		}
		if got != "Hello, "+name+"!" {
			t.Fatalf("greet(%q) returned %q", name, got)
		}
	}

	// Third call within the same window shares the bucket despite the
	// different argument.
	_, err = greet(ctx, "c")
	var limitErr *types.RateLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("Expected *types.RateLimitError, got %T: %v", err, err)
	}
	if limitErr.Name != "greet" || limitErr.MaxCalls != 2 || limitErr.Window != time.Minute {
		t.Fatalf("Rejection carries wrong details: %+v", limitErr)
	}
	if calls != 2 {
		t.Fatalf("Wrapped callable invoked %d times, expected 2 (rejected calls must not run it)", calls)
	}

	clock.Advance(61 * time.Second)
	if _, err := greet(ctx, "d"); err != nil {
		t.Fatalf("greet after window elapsed unexpectedly rejected: %v", err)
	}
}

func TestWrapSessionFunc_SessionIsolation(t *testing.T) {
	clock := newFakeClock()
	limiter, err := api.NewLimiter("greet", 1, time.Minute, callwindow.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	greet, err := api.WrapSessionFunc(limiter, func(ctx context.Context, name string) (string, error) {
		return "Hello, " + name + "!", nil
	}, func(name string) any { return name })
	if err != nil {
		t.Fatalf("WrapSessionFunc failed: %v", err)
	}
	ctx := context.Background()

	if _, err := greet(ctx, "x"); err != nil {
		t.Fatalf("greet(x) unexpectedly rejected: %v", err)
	}
	if _, err := greet(ctx, "x"); !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("Second greet(x) should be rate limited, got %v", err)
	}
	if _, err := greet(ctx, "y"); err != nil {
		t.Fatalf("greet(y) unexpectedly rejected: %v", err)
	}
}

func TestWrapSessionFunc_NilKeyUsesDefaultBucket(t *testing.T) {
	limiter, err := api.NewLimiter("fetch", 1, time.Minute)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	type request struct{ user any }
	fetch, err := api.WrapSessionFunc(limiter, func(ctx context.Context, r request) (int, error) {
		return 0, nil
	}, func(r request) any { return r.user })
	if err != nil {
		t.Fatalf("WrapSessionFunc failed: %v", err)
	}
	ctx := context.Background()

	if _, err := fetch(ctx, request{user: nil}); err != nil {
		t.Fatalf("First keyless call unexpectedly rejected: %v", err)
	}
	// Both keyless calls land in the shared default bucket.
	if _, err := fetch(ctx, request{user: nil}); !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("Second keyless call should be rate limited, got %v", err)
	}
	if _, err := fetch(ctx, request{user: "u1"}); err != nil {
		t.Fatalf("Keyed call unexpectedly rejected: %v", err)
	}
}

func TestWrap_Validation(t *testing.T) {
	limiter, err := api.NewLimiter("v", 1, time.Minute)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	fn := func(ctx context.Context, s string) (string, error) { return s, nil }

	assertConfigError := func(t *testing.T, err error) {
		t.Helper()
		if err == nil {
			t.Fatal("Expected wrap to fail")
		}
		var cfgErr *types.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("Expected *types.ConfigError, got %T: %v", err, err)
		}
	}

	t.Run("NilLimiter", func(t *testing.T) {
		_, err := api.WrapFunc(nil, fn)
		assertConfigError(t, err)
	})
	t.Run("NilCallable", func(t *testing.T) {
		_, err := api.WrapFunc[string, string](limiter, nil)
		assertConfigError(t, err)
	})
	t.Run("NilSessionAccessor", func(t *testing.T) {
		_, err := api.WrapSessionFunc(limiter, fn, nil)
		assertConfigError(t, err)
	})
}

func TestWrapFunc_ErrorPropagation(t *testing.T) {
	limiter, err := api.NewLimiter("flaky", 2, time.Minute)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}

	errBoom := errors.New("boom")
	flaky, err := api.WrapFunc(limiter, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, errBoom
	})
	if err != nil {
		t.Fatalf("WrapFunc failed: %v", err)
	}
	ctx := context.Background()

	// The callable's own error passes through unmodified.
	if _, err := flaky(ctx, struct{}{}); err != errBoom {
		t.Fatalf("Expected errBoom unmodified, got %v", err)
	}
	// A failed-but-admitted call still counts against the budget.
	if _, err := flaky(ctx, struct{}{}); err != errBoom {
		t.Fatalf("Expected errBoom unmodified, got %v", err)
	}
	if _, err := flaky(ctx, struct{}{}); !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("Third call should be rate limited, got %v", err)
	}
}

func TestDo(t *testing.T) {
	limiter, err := api.NewLimiter("job", 1, time.Minute)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	ctx := context.Background()

	got, err := api.Do(ctx, limiter, "tenant1", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do unexpectedly rejected: %v", err)
	}
	if got != 42 {
		t.Fatalf("Do returned %d, expected 42", got)
	}

	ran := false
	_, err = api.Do(ctx, limiter, "tenant1", func(ctx context.Context) (int, error) {
		ran = true
		return 0, nil
	})
	if !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("Second Do should be rate limited, got %v", err)
	}
	if ran {
		t.Fatal("Rejected Do must not invoke the callable")
	}
}
