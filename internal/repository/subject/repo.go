// Package subject persists subject tag sets in the subject_tags region.
package subject

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/sentinel/internal/db"
	"github.com/kailas-cloud/sentinel/internal/domain"
	domsubj "github.com/kailas-cloud/sentinel/internal/domain/subject"
	"github.com/kailas-cloud/sentinel/internal/repository/record"
)

const schemaV1 = 1

type tagsRecord struct {
	Tags []string `cbor:"1,keyasint"`
}

// store is the consumer interface for region storage (ISP).
type store interface {
	Put(ctx context.Context, region db.Region, key string, value []byte) error
	Get(ctx context.Context, region db.Region, key string) ([]byte, error)
	Delete(ctx context.Context, region db.Region, key string) (bool, error)
	Scan(ctx context.Context, region db.Region, prefix string) ([]db.Entry, error)
}

// Repo implements usecase/subject.Repository.
type Repo struct {
	records *record.Store[tagsRecord]
}

// New creates a subject repository.
func New(s store) *Repo {
	return &Repo{records: record.New[tagsRecord](s, db.RegionSubjectTags, schemaV1)}
}

// Get returns the tag set of subjectID or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, subjectID string) (domsubj.TagSet, error) {
	rec, ok, err := r.records.Get(ctx, subjectID)
	if err != nil {
		return domsubj.TagSet{}, fmt.Errorf("get tags %s: %w", subjectID, err)
	}
	if !ok {
		return domsubj.TagSet{}, fmt.Errorf("subject %s: %w", subjectID, domain.ErrNotFound)
	}
	return domsubj.Reconstruct(rec.Tags), nil
}

// Put replaces the tag set of subjectID.
func (r *Repo) Put(ctx context.Context, subjectID string, tags domsubj.TagSet) error {
	if err := r.records.Put(ctx, subjectID, tagsRecord{Tags: tags.Tags()}); err != nil {
		return fmt.Errorf("put tags %s: %w", subjectID, err)
	}
	return nil
}
