package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/sentinel/internal/db"
)

// IncrBy atomically increments a counter and sets its TTL if it has none (EXPIRE NX).
func (s *Store) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error {
	k := s.counterKey(key)
	cmd := s.b().Incrby().Key(k).Increment(n).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	if ttl <= 0 {
		return nil
	}

	cmd = s.b().Expire().Key(k).Seconds(int64(ttl.Seconds())).Nx().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

// Counter returns the current counter value.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Get().Key(s.counterKey(key)).Build()
	val, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, db.ErrKeyNotFound
		}
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	return val, nil
}
