package image

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
	"github.com/kailas-cloud/sentinel/internal/logger"
)

// Service handles image storage with ownership checks.
// Every operation runs under lock, so check-then-act sequences are atomic
// relative to every other service sharing the same lock.
type Service struct {
	repo   Repository
	lock   sync.Locker
	policy domimg.Policy
}

// New creates an image service. A nil lock gets a private mutex.
func New(repo Repository, lock sync.Locker, policy domimg.Policy) *Service {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if policy == "" {
		policy = domimg.PolicyReject
	}
	return &Service{repo: repo, lock: lock, policy: policy}
}

// Policy returns the configured duplicate policy.
func (s *Service) Policy() domimg.Policy { return s.policy }

// Store saves an image under name.
// With PolicyReject an existing name fails with domain.ErrAlreadyExists.
// With PolicyOverwrite the caller's own record is replaced; another
// owner's record is never reassigned.
func (s *Service) Store(ctx context.Context, owner, name string, content []byte, predictionID string) error {
	img, err := domimg.New(owner, name, content, predictionID)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	existing, err := s.repo.Get(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("check image %s: %w", name, err)
	case s.policy == domimg.PolicyReject:
		return fmt.Errorf("image %q: %w", name, domain.ErrAlreadyExists)
	case !existing.OwnedBy(owner):
		return fmt.Errorf("image %q: %w", name, domain.ErrAccessDenied)
	}

	if err := s.repo.Put(ctx, img); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	logger.FromContext(ctx).Info("image stored",
		zap.String("name", name), zap.String("owner", owner), zap.Int("bytes", img.Size()))
	return nil
}

// Get returns owner's image. A missing name is domain.ErrNotFound no matter
// who asks; a name owned by someone else is domain.ErrAccessDenied.
func (s *Service) Get(ctx context.Context, owner, name string) (domimg.Image, error) {
	if err := validate(owner, name); err != nil {
		return domimg.Image{}, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.getOwned(ctx, owner, name)
}

// List returns every image owned by owner, ordered by name.
func (s *Service) List(ctx context.Context, owner string) ([]domimg.Image, error) {
	if owner == "" {
		return nil, domain.Invalid("owner")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	imgs, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return imgs, nil
}

// Delete removes owner's image. The ownership check and the removal happen
// under one lock acquisition.
func (s *Service) Delete(ctx context.Context, owner, name string) error {
	if err := validate(owner, name); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.getOwned(ctx, owner, name); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if !ok {
		return fmt.Errorf("image %q: %w", name, domain.ErrNotFound)
	}
	logger.FromContext(ctx).Info("image deleted", zap.String("name", name), zap.String("owner", owner))
	return nil
}

// getOwned must be called with the lock held.
func (s *Service) getOwned(ctx context.Context, owner, name string) (domimg.Image, error) {
	img, err := s.repo.Get(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domimg.Image{}, fmt.Errorf("image %q: %w", name, domain.ErrNotFound)
		}
		return domimg.Image{}, fmt.Errorf("get image: %w", err)
	}
	if !img.OwnedBy(owner) {
		return domimg.Image{}, fmt.Errorf("image %q: %w", name, domain.ErrAccessDenied)
	}
	return img, nil
}

func validate(owner, name string) error {
	if owner == "" {
		return domain.Invalid("owner")
	}
	if name == "" {
		return domain.Invalid("image name")
	}
	return nil
}
