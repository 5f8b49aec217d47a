package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/sentinel/internal/db"
)

func TestPutGetDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, db.RegionImages, "cat.jpg", []byte{1, 2}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, db.RegionImages, "cat.jpg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "\x01\x02" {
		t.Errorf("Get = %v", got)
	}

	// Regions are independent.
	if _, err := s.Get(ctx, db.RegionSubjectTags, "cat.jpg"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound in other region, got %v", err)
	}

	ok, err := s.Delete(ctx, db.RegionImages, "cat.jpg")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	ok, _ = s.Delete(ctx, db.RegionImages, "cat.jpg")
	if ok {
		t.Error("second Delete must report false")
	}
}

func TestValuesAreCopied(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	v := []byte{1}
	_ = s.Put(ctx, db.RegionImages, "k", v)
	v[0] = 9

	got, _ := s.Get(ctx, db.RegionImages, "k")
	if got[0] != 1 {
		t.Fatal("Put must copy the value")
	}
	got[0] = 7
	again, _ := s.Get(ctx, db.RegionImages, "k")
	if again[0] != 1 {
		t.Fatal("Get must return a copy")
	}
}

func TestScan_PrefixOrdered(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, k := range []string{"b:2", "a:1", "b:1", "c:1", "b"} {
		_ = s.Put(ctx, db.RegionCrawlResults, k, []byte(k))
	}

	entries, err := s.Scan(ctx, db.RegionCrawlResults, "b:")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "b:1" || entries[1].Key != "b:2" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	all, _ := s.Scan(ctx, db.RegionCrawlResults, "")
	if len(all) != 5 {
		t.Errorf("expected 5 entries, got %d", len(all))
	}
}

func TestUnknownRegion(t *testing.T) {
	s := NewStore()
	err := s.Put(context.Background(), db.Region("nope"), "k", nil)
	if !errors.Is(err, db.ErrUnknownRegion) {
		t.Fatalf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestCounters_Expiry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.IncrBy(ctx, "k", 5, time.Hour)
	_ = s.IncrBy(ctx, "k", 5, 10*time.Hour) // TTL already set, not extended

	v, err := s.Counter(ctx, "k")
	if err != nil || v != 10 {
		t.Fatalf("Counter = %d, %v", v, err)
	}

	now = now.Add(time.Hour)
	if _, err := s.Counter(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected expired counter, got %v", err)
	}

	_ = s.IncrBy(ctx, "k", 3, time.Hour)
	v, _ = s.Counter(ctx, "k")
	if v != 3 {
		t.Errorf("expired counter must restart from zero, got %d", v)
	}
}
