// Package image persists Stored Images in the images region, keyed by name.
package image

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/db"
	"github.com/kailas-cloud/sentinel/internal/domain"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
	"github.com/kailas-cloud/sentinel/internal/logger"
	"github.com/kailas-cloud/sentinel/internal/repository/record"
)

// schemaV1 is the layout of imageRecord. Bump only together with a migration.
const schemaV1 = 1

type imageRecord struct {
	Name         string `cbor:"1,keyasint"`
	Content      []byte `cbor:"2,keyasint"`
	Owner        string `cbor:"3,keyasint"`
	PredictionID string `cbor:"4,keyasint,omitempty"`
}

// store is the consumer interface for region storage (ISP).
type store interface {
	Put(ctx context.Context, region db.Region, key string, value []byte) error
	Get(ctx context.Context, region db.Region, key string) ([]byte, error)
	Delete(ctx context.Context, region db.Region, key string) (bool, error)
	Scan(ctx context.Context, region db.Region, prefix string) ([]db.Entry, error)
}

// Repo implements usecase/image.Repository.
type Repo struct {
	records *record.Store[imageRecord]
}

// New creates an image repository.
func New(s store) *Repo {
	return &Repo{records: record.New[imageRecord](s, db.RegionImages, schemaV1)}
}

// Put writes img under its name, replacing any previous record.
func (r *Repo) Put(ctx context.Context, img domimg.Image) error {
	rec := imageRecord{
		Name:         img.Name(),
		Content:      img.Content(),
		Owner:        img.Owner(),
		PredictionID: img.PredictionID(),
	}
	if err := r.records.Put(ctx, img.Name(), rec); err != nil {
		return fmt.Errorf("put image %s: %w", img.Name(), err)
	}
	logger.FromContext(ctx).Debug("image written",
		zap.String("name", img.Name()), zap.Int("bytes", img.Size()))
	return nil
}

// Get returns the image stored under name or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, name string) (domimg.Image, error) {
	rec, ok, err := r.records.Get(ctx, name)
	if err != nil {
		return domimg.Image{}, fmt.Errorf("get image %s: %w", name, err)
	}
	if !ok {
		return domimg.Image{}, fmt.Errorf("image %s: %w", name, domain.ErrNotFound)
	}
	return toDomain(rec), nil
}

// ListByOwner scans every image and keeps those owned by owner.
func (r *Repo) ListByOwner(ctx context.Context, owner string) ([]domimg.Image, error) {
	seq, err := r.records.Scan(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	var out []domimg.Image
	for _, rec := range seq {
		if rec.Owner == owner {
			out = append(out, toDomain(rec))
		}
	}
	return out, nil
}

// Delete removes the record and reports whether it existed.
func (r *Repo) Delete(ctx context.Context, name string) (bool, error) {
	ok, err := r.records.Delete(ctx, name)
	if err != nil {
		return false, fmt.Errorf("delete image %s: %w", name, err)
	}
	return ok, nil
}

func toDomain(rec imageRecord) domimg.Image {
	return domimg.Reconstruct(rec.Name, rec.Content, rec.Owner, rec.PredictionID)
}
