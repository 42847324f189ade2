// Package ratelimit bounds how often a key (a class being scanned) may be used
// within a sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Limiter counts one use of key and fails with domain.ErrScanLimitExceeded
// when more than limit uses fall in the current window. limit <= 0 disables it.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) error
}

// DB interface for database operations
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RateLimiter provides PostgreSQL-based rate limiting with sliding window,
// shared by every instance using the database.
type RateLimiter struct {
	db     DB
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(db DB, window time.Duration) *RateLimiter {
	return &RateLimiter{
		db:     db,
		window: window,
		now:    time.Now,
	}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int) error {
	if limit <= 0 {
		return nil
	}

	now := r.now()
	windowStart := now.Add(-r.window)

	// Use ON CONFLICT to atomically increment or insert counter
	query := `
		WITH current_count AS (
			INSERT INTO rate_limit_counters (key, count, window_start, window_end)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (key)
			DO UPDATE SET
				count = CASE
					WHEN rate_limit_counters.window_end < $2 THEN 1
					ELSE rate_limit_counters.count + 1
				END,
				window_start = CASE
					WHEN rate_limit_counters.window_end < $2 THEN $2
					ELSE rate_limit_counters.window_start
				END,
				window_end = $3
			RETURNING count, window_start
		)
		SELECT count FROM current_count
	`

	var count int
	err := r.db.QueryRow(ctx, query, key, windowStart, now).Scan(&count)
	if err != nil {
		return fmt.Errorf("check rate limit: %w", err)
	}

	if count > limit {
		return domain.ErrScanLimitExceeded.WithError(fmt.Errorf("%s: %d/%d requests in window", key, count, limit))
	}

	return nil
}

// CleanupExpired removes counters idle for more than an hour.
func (r *RateLimiter) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM rate_limit_counters WHERE window_end < NOW() - INTERVAL '1 hour'`
	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

type window struct {
	count int
	end   time.Time
}

// Memory is a fixed-window limiter for a single instance.
type Memory struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemory(w time.Duration) *Memory {
	return &Memory{
		window:  w,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (m *Memory) Allow(_ context.Context, key string, limit int) error {
	if limit <= 0 {
		return nil
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.After(w.end) {
		// Drop stale windows while holding the lock anyway.
		for k, old := range m.windows {
			if now.After(old.end) {
				delete(m.windows, k)
			}
		}
		w = &window{end: now.Add(m.window)}
		m.windows[key] = w
	}
	w.count++

	if w.count > limit {
		return domain.ErrScanLimitExceeded.WithError(fmt.Errorf("%s: %d/%d requests in window", key, w.count, limit))
	}
	return nil
}

// Nop never limits.
type Nop struct{}

func (Nop) Allow(context.Context, string, int) error { return nil }

var (
	_ Limiter = (*RateLimiter)(nil)
	_ Limiter = (*Memory)(nil)
	_ Limiter = Nop{}
)
