package subject

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domsubj "github.com/kailas-cloud/sentinel/internal/domain/subject"
	"github.com/kailas-cloud/sentinel/internal/logger"
)

// Service maintains the subject tag index.
type Service struct {
	repo Repository
	lock sync.Locker
}

// New creates a subject service. A nil lock gets a private mutex.
func New(repo Repository, lock sync.Locker) *Service {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Service{repo: repo, lock: lock}
}

// AddTag records tag under subjectID. Adding a tag twice is a no-op.
func (s *Service) AddTag(ctx context.Context, subjectID, tag string) error {
	if err := domsubj.Validate(subjectID, tag); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	set, err := s.repo.Get(ctx, subjectID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get tags: %w", err)
	}
	if !set.Add(tag) {
		return nil
	}
	if err := s.repo.Put(ctx, subjectID, set); err != nil {
		return fmt.Errorf("put tags: %w", err)
	}
	logger.FromContext(ctx).Debug("tag added",
		zap.String("subject_id", subjectID), zap.Int("tags", set.Len()))
	return nil
}

// Tags returns the tags of subjectID in insertion order.
// A subject that was never tagged is domain.ErrNotFound.
func (s *Service) Tags(ctx context.Context, subjectID string) ([]string, error) {
	if subjectID == "" {
		return nil, domain.Invalid("subject ID")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	set, err := s.repo.Get(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	return set.Tags(), nil
}
