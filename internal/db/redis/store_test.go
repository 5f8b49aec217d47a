package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/sentinel/internal/db"
)

const testPrefix = "sentinel:"

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, testPrefix)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, testPrefix)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

// --- region.go tests ---

func TestPut_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HSET", "sentinel:region:images", "cat.jpg", "\x01\x02")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c, testPrefix)
	if err := s.Put(context.Background(), db.RegionImages, "cat.jpg", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPut_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSET" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, testPrefix)
	err := s.Put(context.Background(), db.RegionImages, "k", []byte("v"))
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %T (%v)", err, err)
	}
}

func TestGet_Found(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGET", "sentinel:region:subject_tags", "s1")).
		Return(mock.Result(mock.RedisString("payload")))

	s := NewStoreForTest(c, testPrefix)
	data, err := s.Get(context.Background(), db.RegionSubjectTags, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("got %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGET", "sentinel:region:images", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, testPrefix)
	_, err := s.Get(context.Background(), db.RegionImages, "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		removed int64
		want    bool
	}{
		{"existed", 1, true},
		{"absent", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.Match("HDEL", "sentinel:region:images", "cat.jpg")).
				Return(mock.Result(mock.RedisInt64(tc.removed)))

			s := NewStoreForTest(c, testPrefix)
			got, err := s.Delete(context.Background(), db.RegionImages, "cat.jpg")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Delete = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScan_FiltersAndSorts(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "sentinel:region:crawl_results")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"alice:b.jpg": mock.RedisString("2"),
			"bob:x.jpg":   mock.RedisString("3"),
			"alice:a.jpg": mock.RedisString("1"),
		})))

	s := NewStoreForTest(c, testPrefix)
	entries, err := s.Scan(context.Background(), db.RegionCrawlResults, "alice:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "alice:a.jpg" || string(entries[0].Value) != "1" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Key != "alice:b.jpg" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestScan_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "sentinel:region:images")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, testPrefix)
	if _, err := s.Scan(context.Background(), db.RegionImages, ""); !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

// --- counter.go tests ---

func TestIncrBy_SetsTTLOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("INCRBY", "sentinel:counter:budget:daily", "500")).
			Return(mock.Result(mock.RedisInt64(500))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("EXPIRE", "sentinel:counter:budget:daily", "172800", "NX")).
			Return(mock.Result(mock.RedisInt64(1))),
	)

	s := NewStoreForTest(c, testPrefix)
	if err := s.IncrBy(context.Background(), "budget:daily", 500, 48*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy_NoTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "sentinel:counter:k", "1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c, testPrefix)
	if err := s.IncrBy(context.Background(), "k", 1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCounter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "sentinel:counter:k")).
		Return(mock.Result(mock.RedisString("42")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "sentinel:counter:missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, testPrefix)
	v, err := s.Counter(context.Background(), "k")
	if err != nil || v != 42 {
		t.Fatalf("Counter = %d, %v", v, err)
	}
	if _, err := s.Counter(context.Background(), "missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
