package domain

import (
	"context"
	"time"
)

type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// SlidingWindowLimiter counts requests per fingerprint over a trailing window.
type SlidingWindowLimiter interface {
	CheckAndRecord(ctx context.Context, fingerprint string, now time.Time) (RateLimitDecision, error)
	Sweep(ctx context.Context, now time.Time, maxAge time.Duration) (int, error)
}

type RateLimitRecord struct {
	Fingerprint string
	Timestamps  []time.Time
	UpdatedAt   time.Time
}
