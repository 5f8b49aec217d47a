package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
)

// wireResult is the response shape of the detection endpoint.
// The four lists are required; a missing or null list fails decoding.
type wireResult struct {
	WebEntities             *[]string `json:"web_entities"`
	FullMatchingImages      *[]string `json:"full_matching_images"`
	PagesWithMatchingImages *[]string `json:"pages_with_matching_images"`
	VisuallySimilarImages   *[]string `json:"visually_similar_images"`
}

var errMissingField = errors.New("missing required field")

// parseResult decodes body as UTF-8 and then as a crawl result.
// The remote prediction id and timestamps are discarded.
func parseResult(body []byte) (domcrawl.Result, error) {
	if !utf8.Valid(body) {
		return domcrawl.Result{}, errors.New("response body is not valid UTF-8")
	}

	var w wireResult
	if err := json.Unmarshal(body, &w); err != nil {
		return domcrawl.Result{}, fmt.Errorf("unmarshal crawl result: %w", err)
	}

	required := []struct {
		name string
		v    *[]string
	}{
		{"web_entities", w.WebEntities},
		{"full_matching_images", w.FullMatchingImages},
		{"pages_with_matching_images", w.PagesWithMatchingImages},
		{"visually_similar_images", w.VisuallySimilarImages},
	}
	for _, f := range required {
		if f.v == nil {
			return domcrawl.Result{}, fmt.Errorf("%w: %s", errMissingField, f.name)
		}
	}

	return domcrawl.Result{
		WebEntities:             *w.WebEntities,
		FullMatchingImages:      *w.FullMatchingImages,
		PagesWithMatchingImages: *w.PagesWithMatchingImages,
		VisuallySimilarImages:   *w.VisuallySimilarImages,
	}, nil
}
