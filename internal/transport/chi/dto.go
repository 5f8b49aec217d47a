package chi

import (
	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
	domusage "github.com/kailas-cloud/sentinel/internal/domain/usage"
)

// StoredImageResponse acknowledges a stored image.
type StoredImageResponse struct {
	Name         string `json:"name"`
	Size         int    `json:"size"`
	PredictionID string `json:"prediction_id,omitempty"`
}

// ImageListResponse lists the caller's image names.
type ImageListResponse struct {
	Images []string `json:"images"`
}

// AddTagRequest is the body of POST /v1/subjects/{subject}/tags.
type AddTagRequest struct {
	Tag string `json:"tag"`
}

// TagsResponse lists a subject's tags.
type TagsResponse struct {
	SubjectID string   `json:"subject_id"`
	Tags      []string `json:"tags"`
}

// ResultResponse is a stored crawl result. LastUpdate is unix nanoseconds.
type ResultResponse struct {
	PredictionID            string   `json:"prediction_id"`
	WebEntities             []string `json:"web_entities"`
	FullMatchingImages      []string `json:"full_matching_images"`
	PagesWithMatchingImages []string `json:"pages_with_matching_images"`
	VisuallySimilarImages   []string `json:"visually_similar_images"`
	LastUpdate              int64    `json:"last_update"`
}

// UsageResponse reports detection cost for a period. Remaining is -1 and
// Limit is 0 when the period is unlimited.
type UsageResponse struct {
	Period      string `json:"period"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   int64  `json:"period_end"`
	Limit       int64  `json:"limit"`
	Used        int64  `json:"used"`
	Remaining   int64  `json:"remaining"`
	Exhausted   bool   `json:"exhausted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func resultToResponse(r domcrawl.Result) ResultResponse {
	return ResultResponse{
		PredictionID:            r.PredictionID,
		WebEntities:             nonNil(r.WebEntities),
		FullMatchingImages:      nonNil(r.FullMatchingImages),
		PagesWithMatchingImages: nonNil(r.PagesWithMatchingImages),
		VisuallySimilarImages:   nonNil(r.VisuallySimilarImages),
		LastUpdate:              r.LastUpdate.UnixNano(),
	}
}

func usageToResponse(r domusage.Report) UsageResponse {
	return UsageResponse{
		Period:      string(r.Period()),
		PeriodStart: r.PeriodStart(),
		PeriodEnd:   r.PeriodEnd(),
		Limit:       r.Limit(),
		Used:        r.Used(),
		Remaining:   r.Remaining(),
		Exhausted:   r.Exhausted(),
	}
}

func imageNames(imgs []domimg.Image) []string {
	names := make([]string, len(imgs))
	for i, img := range imgs {
		names[i] = img.Name()
	}
	return names
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
