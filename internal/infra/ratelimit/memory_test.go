package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiterAllowsFiveThenDenies(t *testing.T) {
	limiter := NewMemoryLimiter(Config{})
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		decision, err := limiter.CheckAndRecord(ctx, "fp-1", start.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
		if decision.Remaining != 4-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i+1, 4-i, decision.Remaining)
		}
	}

	now := start.Add(10 * time.Minute)
	decision, err := limiter.CheckAndRecord(ctx, "fp-1", now)
	if err != nil {
		t.Fatalf("check 6: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected sixth request to be denied")
	}
	if decision.RetryAfter != 50*time.Minute {
		t.Fatalf("expected retry after 50m, got %s", decision.RetryAfter)
	}
	if !decision.ResetAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected reset %s", decision.ResetAt)
	}

	other, err := limiter.CheckAndRecord(ctx, "fp-2", now)
	if err != nil {
		t.Fatalf("check other: %v", err)
	}
	if !other.Allowed {
		t.Fatalf("expected other fingerprint to be allowed")
	}
}

func TestMemoryLimiterAllowsAfterWindow(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Limit: 5, Window: time.Hour})
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := limiter.CheckAndRecord(ctx, "fp", start); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	denied, _ := limiter.CheckAndRecord(ctx, "fp", start.Add(time.Hour-time.Millisecond))
	if denied.Allowed {
		t.Fatalf("expected denial just before the window closes")
	}
	if denied.RetryAfter != time.Second {
		t.Fatalf("expected retry after rounded up to 1s, got %s", denied.RetryAfter)
	}

	allowed, err := limiter.CheckAndRecord(ctx, "fp", start.Add(time.Hour))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !allowed.Allowed {
		t.Fatalf("expected request to be allowed once the window elapsed")
	}
}

func TestMemoryLimiterDeniedRequestsAreNotRecorded(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	limiter.CheckAndRecord(ctx, "fp", start)
	limiter.CheckAndRecord(ctx, "fp", start.Add(10*time.Second))
	for i := 0; i < 10; i++ {
		limiter.CheckAndRecord(ctx, "fp", start.Add(20*time.Second))
	}
	decision, _ := limiter.CheckAndRecord(ctx, "fp", start.Add(time.Minute))
	if !decision.Allowed {
		t.Fatalf("expected slot freed by the first request to be available")
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	limiter := NewMemoryLimiter(Config{})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	limiter.CheckAndRecord(ctx, "old", now.Add(-25*time.Hour))
	limiter.CheckAndRecord(ctx, "fresh", now.Add(-time.Hour))

	removed, err := limiter.Sweep(ctx, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if limiter.size() != 1 {
		t.Fatalf("expected 1 record left, got %d", limiter.size())
	}
}

func TestMemoryLimiterConcurrent(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Limit: 5, Window: time.Hour})
	ctx := context.Background()
	now := time.Now()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.CheckAndRecord(ctx, "shared", now)
			if err != nil {
				t.Errorf("check: %v", err)
				return
			}
			if decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 5 {
		t.Fatalf("expected exactly 5 allowed, got %d", allowed)
	}
}
