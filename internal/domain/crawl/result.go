package crawl

import (
	"slices"
	"time"
)

// Result is the structured outcome of one detection round trip.
type Result struct {
	PredictionID            string
	WebEntities             []string
	FullMatchingImages      []string
	PagesWithMatchingImages []string
	VisuallySimilarImages   []string
	// LastUpdate is assigned by the cache on every write.
	LastUpdate time.Time
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	r.WebEntities = slices.Clone(r.WebEntities)
	r.FullMatchingImages = slices.Clone(r.FullMatchingImages)
	r.PagesWithMatchingImages = slices.Clone(r.PagesWithMatchingImages)
	r.VisuallySimilarImages = slices.Clone(r.VisuallySimilarImages)
	return r
}
