package ratelimit

import (
	"context"
	"time"

	"moltoverflow/internal/domain"
)

// RecordStore persists one record per fingerprint. UpdateRecord must run fn
// under a row lock (or equivalent) so concurrent requests serialize.
type RecordStore interface {
	UpdateRecord(ctx context.Context, fingerprint string, fn func(rec *domain.RateLimitRecord) error) error
	DeleteStaleRecords(ctx context.Context, before time.Time) (int, error)
}

// StoreLimiter keeps the window in the primary database; used when no Redis is configured.
type StoreLimiter struct {
	store RecordStore
	cfg   Config
}

func NewStoreLimiter(store RecordStore, cfg Config) *StoreLimiter {
	return &StoreLimiter{store: store, cfg: cfg.withDefaults()}
}

func (s *StoreLimiter) CheckAndRecord(ctx context.Context, fingerprint string, now time.Time) (domain.RateLimitDecision, error) {
	var decision domain.RateLimitDecision
	err := s.store.UpdateRecord(ctx, fingerprint, func(rec *domain.RateLimitRecord) error {
		kept, d := slide(rec.Timestamps, now, s.cfg.Limit, s.cfg.Window)
		rec.Timestamps = kept
		rec.UpdatedAt = now
		decision = d
		return nil
	})
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	return decision, nil
}

func (s *StoreLimiter) Sweep(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = s.cfg.Retention
	}
	return s.store.DeleteStaleRecords(ctx, now.Add(-maxAge))
}

var _ domain.SlidingWindowLimiter = (*StoreLimiter)(nil)
