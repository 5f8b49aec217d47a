package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/sentinel/internal/db"
)

type mockStore struct {
	incrByFn  func(ctx context.Context, key string, n int64, ttl time.Duration) error
	counterFn func(ctx context.Context, key string) (int64, error)
}

func (m *mockStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error {
	if m.incrByFn != nil {
		return m.incrByFn(ctx, key, n, ttl)
	}
	return nil
}

func (m *mockStore) Counter(ctx context.Context, key string) (int64, error) {
	if m.counterFn != nil {
		return m.counterFn(ctx, key)
	}
	return 0, db.ErrKeyNotFound
}

func TestIncrBy_TTLByKey(t *testing.T) {
	tests := []struct {
		key  string
		want time.Duration
	}{
		{"budget:detector:daily:2026-01-02", 48 * time.Hour},
		{"budget:detector:monthly:2026-01", 62 * 24 * time.Hour},
	}
	for _, tt := range tests {
		var gotTTL time.Duration
		var gotN int64
		s := New(&mockStore{incrByFn: func(_ context.Context, _ string, n int64, ttl time.Duration) error {
			gotN, gotTTL = n, ttl
			return nil
		}}, 48*time.Hour, 62*24*time.Hour)

		if err := s.IncrBy(context.Background(), tt.key, 42); err != nil {
			t.Fatalf("IncrBy: %v", err)
		}
		if gotN != 42 || gotTTL != tt.want {
			t.Errorf("%s: n=%d ttl=%v, want 42 %v", tt.key, gotN, gotTTL, tt.want)
		}
	}
}

func TestIncrBy_Error(t *testing.T) {
	s := New(&mockStore{incrByFn: func(context.Context, string, int64, time.Duration) error {
		return errors.New("boom")
	}}, time.Hour, time.Hour)
	if err := s.IncrBy(context.Background(), "k", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	s := New(&mockStore{}, time.Hour, time.Hour)
	v, err := s.Get(context.Background(), "missing")
	if err != nil || v != 0 {
		t.Fatalf("missing key: %d, %v", v, err)
	}

	s = New(&mockStore{counterFn: func(context.Context, string) (int64, error) { return 7, nil }}, time.Hour, time.Hour)
	if v, _ := s.Get(context.Background(), "k"); v != 7 {
		t.Errorf("expected 7, got %d", v)
	}

	s = New(&mockStore{counterFn: func(context.Context, string) (int64, error) {
		return 0, errors.New("down")
	}}, time.Hour, time.Hour)
	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Error("expected error")
	}
}
