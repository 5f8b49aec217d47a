// Package budget persists detection cost counters.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/sentinel/internal/db"
)

// store is the consumer interface for budget counters (ISP).
type store interface {
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error
	Counter(ctx context.Context, key string) (int64, error)
}

// Store implements detection.BudgetStore on a db.CounterStore.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// dailyTTL is the TTL for daily keys (recommended: 48h).
// monthTTL is the TTL for monthly keys (recommended: 62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// IncrBy adds val to the counter. The TTL is set once, on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val, s.ttlForKey(key)); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	return nil
}

// Get returns the current counter value, 0 if it does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.store.Counter(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}
	return val, nil
}

// Keys follow budget:{scope}:daily:... or budget:{scope}:monthly:...
func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
