package subject

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domsubj "github.com/kailas-cloud/sentinel/internal/domain/subject"
)

type mockRepo struct {
	sets   map[string][]string
	getErr error
	putErr error
	puts   int
}

func (m *mockRepo) Get(_ context.Context, id string) (domsubj.TagSet, error) {
	if m.getErr != nil {
		return domsubj.TagSet{}, m.getErr
	}
	tags, ok := m.sets[id]
	if !ok {
		return domsubj.TagSet{}, domain.ErrNotFound
	}
	return domsubj.Reconstruct(slices.Clone(tags)), nil
}

func (m *mockRepo) Put(_ context.Context, id string, set domsubj.TagSet) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.sets[id] = set.Tags()
	return nil
}

func TestAddTag_Idempotent(t *testing.T) {
	repo := &mockRepo{sets: map[string][]string{}}
	svc := New(repo, nil)
	ctx := context.Background()

	for _, tag := range []string{"h1", "h2", "h1"} {
		if err := svc.AddTag(ctx, "s1", tag); err != nil {
			t.Fatalf("AddTag(%s): %v", tag, err)
		}
	}
	tags, err := svc.Tags(ctx, "s1")
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if !slices.Equal(tags, []string{"h1", "h2"}) {
		t.Errorf("unexpected tags %v", tags)
	}
	if repo.puts != 2 {
		t.Errorf("repeated tag must not write, got %d puts", repo.puts)
	}
}

func TestAddTag_Validation(t *testing.T) {
	svc := New(&mockRepo{sets: map[string][]string{}}, nil)
	for _, tc := range [][2]string{{"", "t"}, {"s", ""}} {
		if err := svc.AddTag(context.Background(), tc[0], tc[1]); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("AddTag(%q, %q): expected ErrInvalidInput, got %v", tc[0], tc[1], err)
		}
	}
}

func TestAddTag_StorageError(t *testing.T) {
	svc := New(&mockRepo{sets: map[string][]string{}, getErr: domain.ErrStorageCorruption}, nil)
	err := svc.AddTag(context.Background(), "s1", "t")
	if !errors.Is(err, domain.ErrStorageCorruption) {
		t.Fatalf("expected ErrStorageCorruption, got %v", err)
	}
}

func TestTags_NeverTagged(t *testing.T) {
	svc := New(&mockRepo{sets: map[string][]string{}}, nil)
	if _, err := svc.Tags(context.Background(), "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Tags(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
