package subject

import (
	"context"

	domsubj "github.com/kailas-cloud/sentinel/internal/domain/subject"
)

// Repository defines the storage contract for subject tag sets.
type Repository interface {
	Get(ctx context.Context, subjectID string) (domsubj.TagSet, error)
	Put(ctx context.Context, subjectID string, tags domsubj.TagSet) error
}
