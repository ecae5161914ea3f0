package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"moltoverflow/internal/domain"
)

// FailOpen admits the request when the backing limiter errors. Store outages
// then degrade to no limiting instead of blocking signups.
type FailOpen struct {
	Next   domain.SlidingWindowLimiter
	Logger *slog.Logger
}

func (f *FailOpen) CheckAndRecord(ctx context.Context, fingerprint string, now time.Time) (domain.RateLimitDecision, error) {
	decision, err := f.Next.CheckAndRecord(ctx, fingerprint, now)
	if err != nil {
		f.logger().Warn("rate limiter unavailable, admitting request", "err", err)
		return domain.RateLimitDecision{Allowed: true}, nil
	}
	return decision, nil
}

func (f *FailOpen) Sweep(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	return f.Next.Sweep(ctx, now, maxAge)
}

func (f *FailOpen) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
