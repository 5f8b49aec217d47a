// Package results reads cached detection results.
package results

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
)

// Repository reads the crawl result cache.
type Repository interface {
	ListForOwner(ctx context.Context, owner string) (map[string]domcrawl.Result, error)
}

// Service lists an owner's cached results.
type Service struct {
	repo Repository
	lock sync.Locker
}

// New creates a results service. A nil lock gets a private mutex.
func New(repo Repository, lock sync.Locker) *Service {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Service{repo: repo, lock: lock}
}

// ForOwner returns owner's results keyed by resource name.
// An owner without results gets an empty map.
func (s *Service) ForOwner(ctx context.Context, owner string) (map[string]domcrawl.Result, error) {
	if owner == "" {
		return nil, domain.Invalid("owner")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.repo.ListForOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if res == nil {
		res = map[string]domcrawl.Result{}
	}
	return res, nil
}
