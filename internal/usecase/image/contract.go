package image

import (
	"context"

	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
)

// Repository defines the storage contract for images.
type Repository interface {
	Put(ctx context.Context, img domimg.Image) error
	Get(ctx context.Context, name string) (domimg.Image, error)
	ListByOwner(ctx context.Context, owner string) ([]domimg.Image, error)
	Delete(ctx context.Context, name string) (bool, error)
}
