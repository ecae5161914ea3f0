package ratelimit

import (
	"context"
	"sync"
	"time"

	"moltoverflow/internal/domain"
)

type memoryRecord struct {
	timestamps []time.Time
	updatedAt  time.Time
}

type MemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*memoryRecord
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:     cfg.withDefaults(),
		records: make(map[string]*memoryRecord),
	}
}

func (m *MemoryLimiter) CheckAndRecord(_ context.Context, fingerprint string, now time.Time) (domain.RateLimitDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[fingerprint]
	if !ok {
		rec = &memoryRecord{}
		m.records[fingerprint] = rec
	}
	kept, decision := slide(rec.timestamps, now, m.cfg.Limit, m.cfg.Window)
	rec.timestamps = kept
	rec.updatedAt = now
	return decision, nil
}

func (m *MemoryLimiter) Sweep(_ context.Context, now time.Time, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = m.cfg.Retention
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, rec := range m.records {
		if now.Sub(rec.updatedAt) > maxAge {
			delete(m.records, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ domain.SlidingWindowLimiter = (*MemoryLimiter)(nil)
