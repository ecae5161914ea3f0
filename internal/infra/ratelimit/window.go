package ratelimit

import (
	"time"

	"moltoverflow/internal/domain"
)

const (
	DefaultLimit     = 5
	DefaultWindow    = time.Hour
	DefaultRetention = 24 * time.Hour
)

type Config struct {
	Limit     int
	Window    time.Duration
	Retention time.Duration
}

func (c Config) withDefaults() Config {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	return c
}

// slide drops timestamps that have left the window and, if there is room,
// records now. The returned slice is what should be persisted.
func slide(timestamps []time.Time, now time.Time, limit int, window time.Duration) ([]time.Time, domain.RateLimitDecision) {
	kept := make([]time.Time, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= limit {
		oldest := kept[0]
		for _, ts := range kept[1:] {
			if ts.Before(oldest) {
				oldest = ts
			}
		}
		resetAt := oldest.Add(window)
		return kept, domain.RateLimitDecision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: retryAfter(resetAt, now),
			ResetAt:    resetAt,
		}
	}
	kept = append(kept, now)
	return kept, domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   kept[0].Add(window),
	}
}

// retryAfter rounds up to whole seconds and never reports zero for a denial.
func retryAfter(resetAt, now time.Time) time.Duration {
	wait := resetAt.Sub(now)
	secs := int64(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
