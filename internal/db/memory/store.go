// Package memory is an in-process db.Store backed by ordered B-trees.
// Data does not survive a restart; use it for tests and local runs.
package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/kailas-cloud/sentinel/internal/db"
)

var _ db.Store = (*Store)(nil)

const degree = 32

type counter struct {
	value     int64
	expiresAt time.Time // zero means no expiry
}

// Store keeps one B-tree per region.
type Store struct {
	mu       sync.RWMutex
	regions  map[db.Region]*btree.BTreeG[db.Entry]
	counters map[string]counter
	now      func() time.Time
}

// NewStore creates an empty store with every region of the layout.
func NewStore() *Store {
	s := &Store{
		regions:  make(map[db.Region]*btree.BTreeG[db.Entry]),
		counters: make(map[string]counter),
		now:      time.Now,
	}
	for _, r := range db.Regions() {
		s.regions[r] = btree.NewG(degree, lessEntry)
	}
	return s
}

func lessEntry(a, b db.Entry) bool { return a.Key < b.Key }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// Put stores a copy of value.
func (s *Store) Put(_ context.Context, region db.Region, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tree(region)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	t.ReplaceOrInsert(db.Entry{Key: key, Value: bytes.Clone(value)})
	return nil
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, region db.Region, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.tree(region)
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	e, ok := t.Get(db.Entry{Key: key})
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(e.Value), nil
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(_ context.Context, region db.Region, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tree(region)
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	_, ok := t.Delete(db.Entry{Key: key})
	return ok, nil
}

// Scan walks keys from prefix upward while they keep the prefix.
func (s *Store) Scan(_ context.Context, region db.Region, prefix string) ([]db.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.tree(region)
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}

	var out []db.Entry
	t.AscendGreaterOrEqual(db.Entry{Key: prefix}, func(e db.Entry) bool {
		if !strings.HasPrefix(e.Key, prefix) {
			return false
		}
		out = append(out, db.Entry{Key: e.Key, Value: bytes.Clone(e.Value)})
		return true
	})
	return out, nil
}

// IncrBy adds n to a counter, starting expired counters from zero.
func (s *Store) IncrBy(_ context.Context, key string, n int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if ok && c.expired(now) {
		c = counter{}
	}
	c.value += n
	if ttl > 0 && c.expiresAt.IsZero() {
		c.expiresAt = now.Add(ttl)
	}
	s.counters[key] = c
	return nil
}

// Counter returns a live counter value.
func (s *Store) Counter(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counters[key]
	if !ok || c.expired(s.now()) {
		return 0, db.ErrKeyNotFound
	}
	return c.value, nil
}

func (c counter) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && !now.Before(c.expiresAt)
}

func (s *Store) tree(region db.Region) (*btree.BTreeG[db.Entry], error) {
	t, ok := s.regions[region]
	if !ok {
		return nil, db.ErrUnknownRegion
	}
	return t, nil
}
