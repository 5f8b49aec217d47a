// Package crawl caches detection results in the crawl_results region under
// composite (owner, resource) keys.
package crawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/db"
	"github.com/kailas-cloud/sentinel/internal/domain"
	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
	"github.com/kailas-cloud/sentinel/internal/logger"
	"github.com/kailas-cloud/sentinel/internal/repository/record"
)

const schemaV1 = 1

type resultRecord struct {
	PredictionID            string   `cbor:"1,keyasint"`
	WebEntities             []string `cbor:"2,keyasint"`
	FullMatchingImages      []string `cbor:"3,keyasint"`
	PagesWithMatchingImages []string `cbor:"4,keyasint"`
	VisuallySimilarImages   []string `cbor:"5,keyasint"`
	LastUpdate              int64    `cbor:"6,keyasint"` // unix nanoseconds
}

// store is the consumer interface for region storage (ISP).
type store interface {
	Put(ctx context.Context, region db.Region, key string, value []byte) error
	Get(ctx context.Context, region db.Region, key string) ([]byte, error)
	Delete(ctx context.Context, region db.Region, key string) (bool, error)
	Scan(ctx context.Context, region db.Region, prefix string) ([]db.Entry, error)
}

// Repo implements the crawl result cache.
type Repo struct {
	records *record.Store[resultRecord]
	now     func() time.Time
}

// Option configures a Repo.
type Option func(*Repo)

// WithClock overrides the freshness clock.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) { r.now = now }
}

// New creates a crawl result cache.
func New(s store, opts ...Option) *Repo {
	r := &Repo{
		records: record.New[resultRecord](s, db.RegionCrawlResults, schemaV1),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Put stamps LastUpdate and overwrites the result at key.
// The stored value is returned.
func (r *Repo) Put(ctx context.Context, key domcrawl.Key, res domcrawl.Result) (domcrawl.Result, error) {
	res = res.Clone()
	res.LastUpdate = time.Unix(0, r.now().UnixNano())

	if err := r.records.Put(ctx, key.String(), toRecord(res)); err != nil {
		return domcrawl.Result{}, fmt.Errorf("put result %s: %w", key, err)
	}
	logger.FromContext(ctx).Debug("crawl result written",
		zap.String("owner", key.Owner),
		zap.String("resource", key.Resource),
		zap.String("prediction_id", res.PredictionID))
	return res, nil
}

// ListForOwner returns owner's results keyed by resource.
func (r *Repo) ListForOwner(ctx context.Context, owner string) (map[string]domcrawl.Result, error) {
	seq, err := r.records.Scan(ctx, domcrawl.OwnerPrefix(owner))
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	out := make(map[string]domcrawl.Result)
	for raw, rec := range seq {
		key, err := domcrawl.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("list results: %w: %w", domain.ErrStorageCorruption, err)
		}
		if key.Owner != owner {
			continue
		}
		out[key.Resource] = toDomain(rec)
	}
	return out, nil
}

func toRecord(res domcrawl.Result) resultRecord {
	return resultRecord{
		PredictionID:            res.PredictionID,
		WebEntities:             res.WebEntities,
		FullMatchingImages:      res.FullMatchingImages,
		PagesWithMatchingImages: res.PagesWithMatchingImages,
		VisuallySimilarImages:   res.VisuallySimilarImages,
		LastUpdate:              res.LastUpdate.UnixNano(),
	}
}

func toDomain(rec resultRecord) domcrawl.Result {
	return domcrawl.Result{
		PredictionID:            rec.PredictionID,
		WebEntities:             rec.WebEntities,
		FullMatchingImages:      rec.FullMatchingImages,
		PagesWithMatchingImages: rec.PagesWithMatchingImages,
		VisuallySimilarImages:   rec.VisuallySimilarImages,
		LastUpdate:              time.Unix(0, rec.LastUpdate),
	}
}
