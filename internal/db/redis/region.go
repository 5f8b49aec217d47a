package redis

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/sentinel/internal/db"
)

// Put stores value under key in the region hash (HSET).
func (s *Store) Put(ctx context.Context, region db.Region, key string, value []byte) error {
	cmd := s.b().Hset().Key(s.regionKey(region)).FieldValue().FieldValue(key, rueidis.BinaryString(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

// Get reads one field of the region hash (HGET).
func (s *Store) Get(ctx context.Context, region db.Region, key string) ([]byte, error) {
	cmd := s.b().Hget().Key(s.regionKey(region)).Field(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Delete removes one field of the region hash (HDEL).
func (s *Store) Delete(ctx context.Context, region db.Region, key string) (bool, error) {
	cmd := s.b().Hdel().Key(s.regionKey(region)).Field(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpDelete, Err: err}
	}
	return n > 0, nil
}

// Scan reads the whole region hash in one HGETALL, which is atomic on the
// server, then filters by prefix and sorts by key.
func (s *Store) Scan(ctx context.Context, region db.Region, prefix string) ([]db.Entry, error) {
	cmd := s.b().Hgetall().Key(s.regionKey(region)).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}

	entries := make([]db.Entry, 0, len(m))
	for k, v := range m {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		entries = append(entries, db.Entry{Key: k, Value: []byte(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}
