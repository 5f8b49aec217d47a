package db

import (
	"context"
	"fmt"
	"time"
)

// Region names an independently addressable key-value segment.
// Each entity type is bound to exactly one region for the life of the data.
type Region string

// Fixed storage layout. Renaming a region orphans its data.
const (
	RegionImages       Region = "images"
	RegionCrawlResults Region = "crawl_results"
	RegionSubjectTags  Region = "subject_tags"
)

// Regions lists every region of the layout.
func Regions() []Region {
	return []Region{RegionImages, RegionCrawlResults, RegionSubjectTags}
}

// Store is the storage backend facade combining all sub-interfaces.
type Store interface {
	Pinger
	RegionStore
	CounterStore
	Close()
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Entry is one key/value pair returned by Scan.
type Entry struct {
	Key   string
	Value []byte
}

// RegionStore provides ordered byte-level key-value operations per region.
type RegionStore interface {
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, region Region, key string, value []byte) error
	// Get returns ErrKeyNotFound when key is absent.
	Get(ctx context.Context, region Region, key string) ([]byte, error)
	// Delete reports whether a value existed.
	Delete(ctx context.Context, region Region, key string) (bool, error)
	// Scan returns all entries whose key starts with prefix, sorted by key,
	// read from a single consistent snapshot of the region.
	Scan(ctx context.Context, region Region, prefix string) ([]Entry, error)
}

// CounterStore provides expiring integer counters.
type CounterStore interface {
	// IncrBy adds n to key. ttl is applied only if the key has no expiry yet.
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error
	// Counter returns the counter value, ErrKeyNotFound when absent or expired.
	Counter(ctx context.Context, key string) (int64, error)
}

// WaitForReady polls Ping until the store responds or timeout expires.
func WaitForReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := p.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
