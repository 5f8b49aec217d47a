package subject

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/sentinel/internal/db/memory"
	"github.com/kailas-cloud/sentinel/internal/domain"
	domsubj "github.com/kailas-cloud/sentinel/internal/domain/subject"
)

func TestRepo_GetMissing(t *testing.T) {
	_, err := New(memory.NewStore()).Get(context.Background(), "s1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepo_PutGet(t *testing.T) {
	ctx := context.Background()
	r := New(memory.NewStore())

	set := domsubj.Reconstruct(nil)
	set.Add("red")
	set.Add("blue")
	if err := r.Put(ctx, "s1", set); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := r.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !slices.Equal(got.Tags(), []string{"red", "blue"}) {
		t.Errorf("unexpected tags %v", got.Tags())
	}
}
