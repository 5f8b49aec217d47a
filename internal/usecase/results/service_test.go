package results

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
)

type mockRepo struct {
	res map[string]domcrawl.Result
	err error
}

func (m *mockRepo) ListForOwner(_ context.Context, _ string) (map[string]domcrawl.Result, error) {
	return m.res, m.err
}

func TestForOwner(t *testing.T) {
	svc := New(&mockRepo{res: map[string]domcrawl.Result{"a": {PredictionID: "p"}}}, nil)
	got, err := svc.ForOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ForOwner: %v", err)
	}
	if got["a"].PredictionID != "p" {
		t.Errorf("unexpected results %v", got)
	}
}

func TestForOwner_EmptyIsNotAnError(t *testing.T) {
	got, err := New(&mockRepo{}, nil).ForOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ForOwner: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestForOwner_Errors(t *testing.T) {
	if _, err := New(&mockRepo{}, nil).ForOwner(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	svc := New(&mockRepo{err: domain.ErrStorageCorruption}, nil)
	if _, err := svc.ForOwner(context.Background(), "alice"); !errors.Is(err, domain.ErrStorageCorruption) {
		t.Errorf("expected ErrStorageCorruption, got %v", err)
	}
}
