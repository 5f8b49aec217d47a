// Package record is a typed durable record store over one storage region.
package record

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/kailas-cloud/sentinel/internal/db"
)

// backend is the consumer interface for region storage (ISP).
type backend interface {
	Put(ctx context.Context, region db.Region, key string, value []byte) error
	Get(ctx context.Context, region db.Region, key string) ([]byte, error)
	Delete(ctx context.Context, region db.Region, key string) (bool, error)
	Scan(ctx context.Context, region db.Region, prefix string) ([]db.Entry, error)
}

// Store reads and writes values of type T in a single region.
// T is a plain struct with CBOR tags; schema identifies its layout.
type Store[T any] struct {
	backend backend
	region  db.Region
	schema  uint64
}

// New binds a typed store to region.
func New[T any](b backend, region db.Region, schema uint64) *Store[T] {
	return &Store[T]{backend: b, region: region, schema: schema}
}

// Region returns the bound region.
func (s *Store[T]) Region() db.Region { return s.region }

// Put overwrites the value at key.
func (s *Store[T]) Put(ctx context.Context, key string, v T) error {
	data, err := Encode(s.schema, v)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", s.region, key, err)
	}
	if err := s.backend.Put(ctx, s.region, key, data); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.region, key, err)
	}
	return nil
}

// Get returns the value at key. ok is false when the key is absent.
func (s *Store[T]) Get(ctx context.Context, key string) (v T, ok bool, err error) {
	data, err := s.backend.Get(ctx, s.region, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("get %s/%s: %w", s.region, key, err)
	}
	v, err = Decode[T](s.schema, data)
	if err != nil {
		return v, false, fmt.Errorf("get %s/%s: %w", s.region, key, err)
	}
	return v, true, nil
}

// Delete removes key and reports whether it existed.
func (s *Store[T]) Delete(ctx context.Context, key string) (bool, error) {
	ok, err := s.backend.Delete(ctx, s.region, key)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", s.region, key, err)
	}
	return ok, nil
}

// Scan reads every record whose key starts with prefix from one snapshot.
// All records are decoded before the sequence is returned, so a corrupt
// record fails the call instead of surfacing halfway through iteration.
// Each call to Scan takes a fresh snapshot; the returned sequence may be
// ranged over any number of times.
func (s *Store[T]) Scan(ctx context.Context, prefix string) (iter.Seq2[string, T], error) {
	entries, err := s.backend.Scan(ctx, s.region, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.region, err)
	}

	keys := make([]string, len(entries))
	values := make([]T, len(entries))
	for i, e := range entries {
		v, err := Decode[T](s.schema, e.Value)
		if err != nil {
			return nil, fmt.Errorf("scan %s/%s: %w", s.region, e.Key, err)
		}
		keys[i] = e.Key
		values[i] = v
	}

	return func(yield func(string, T) bool) {
		for i := range keys {
			if !yield(keys[i], values[i]) {
				return
			}
		}
	}, nil
}
