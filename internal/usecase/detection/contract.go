package detection

import (
	"context"

	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
	domdet "github.com/kailas-cloud/sentinel/internal/domain/detection"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
)

// ImageReader reads stored images.
type ImageReader interface {
	Get(ctx context.Context, name string) (domimg.Image, error)
}

// ResultWriter writes through the crawl result cache and returns the stored value.
type ResultWriter interface {
	Put(ctx context.Context, key domcrawl.Key, res domcrawl.Result) (domcrawl.Result, error)
}

// Sender issues the outbound detection request.
// It returns the filtered body of a successful response; any other outcome
// is a *domain.RejectionError.
type Sender interface {
	Send(ctx context.Context, req domdet.Request) ([]byte, error)
}

// BudgetChecker enforces the cost budget.
type BudgetChecker interface {
	Check(ctx context.Context, cost int64) error
	Record(cost int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}
