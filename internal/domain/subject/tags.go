package subject

import (
	"slices"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// TagSet is the set of opaque tags recorded for one subject.
// Insertion order is kept; duplicates never appear.
type TagSet struct {
	tags []string
}

// Reconstruct creates a TagSet from stored tags (storage hydration).
func Reconstruct(tags []string) TagSet {
	return TagSet{tags: tags}
}

// Add inserts tag and reports whether the set changed.
func (s *TagSet) Add(tag string) bool {
	if slices.Contains(s.tags, tag) {
		return false
	}
	s.tags = append(s.tags, tag)
	return true
}

// Tags returns a copy of the tags.
func (s TagSet) Tags() []string { return slices.Clone(s.tags) }

// Len returns the number of tags.
func (s TagSet) Len() int { return len(s.tags) }

// Validate checks a subject/tag pair before it touches storage.
func Validate(subjectID, tag string) error {
	if subjectID == "" {
		return domain.Invalid("subject ID")
	}
	if tag == "" {
		return domain.Invalid("tag")
	}
	return nil
}
