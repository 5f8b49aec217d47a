package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/sentinel/internal/db"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.db")
	s, err := NewStore(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s, path
}

func TestNewStore_RequiresPath(t *testing.T) {
	if _, err := NewStore(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without path")
	}
}

func TestMigrations_Recorded(t *testing.T) {
	s, _ := newTestStore(t)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d migrations, got %d", len(migrations), count)
	}

	// Re-running is a no-op.
	if err := runMigrations(context.Background(), s.db); err != nil {
		t.Fatalf("second runMigrations: %v", err)
	}
}

func TestRecords_SurviveReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, db.RegionImages, "cat.jpg", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	reopened, err := NewStore(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, db.RegionImages, "cat.jpg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "\x01\x02" {
		t.Errorf("Get = %v", got)
	}
}

func TestPutOverwriteAndDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, db.RegionSubjectTags, "s", []byte("a"))
	_ = s.Put(ctx, db.RegionSubjectTags, "s", []byte("b"))
	got, _ := s.Get(ctx, db.RegionSubjectTags, "s")
	if string(got) != "b" {
		t.Errorf("expected overwrite, got %q", got)
	}

	ok, err := s.Delete(ctx, db.RegionSubjectTags, "s")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if _, err := s.Get(ctx, db.RegionSubjectTags, "s"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if ok, _ := s.Delete(ctx, db.RegionSubjectTags, "s"); ok {
		t.Error("second Delete must report false")
	}
}

func TestScan_Prefix(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"bob:1", "alice:2", "alice:1", "alicia:1"} {
		_ = s.Put(ctx, db.RegionCrawlResults, k, []byte(k))
	}
	_ = s.Put(ctx, db.RegionImages, "alice:9", []byte("other region"))

	entries, err := s.Scan(ctx, db.RegionCrawlResults, "alice:")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "alice:1" || entries[1].Key != "alice:2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestCounters(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.Counter(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	_ = s.IncrBy(ctx, "k", 5, time.Hour)
	_ = s.IncrBy(ctx, "k", 7, 10*time.Hour)
	v, err := s.Counter(ctx, "k")
	if err != nil || v != 12 {
		t.Fatalf("Counter = %d, %v", v, err)
	}

	now = now.Add(time.Hour)
	if _, err := s.Counter(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	_ = s.IncrBy(ctx, "k", 2, time.Hour)
	v, _ = s.Counter(ctx, "k")
	if v != 2 {
		t.Errorf("expired counter must restart, got %d", v)
	}
}
