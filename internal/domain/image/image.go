package image

import (
	"bytes"
	"fmt"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// Policy decides what storing an existing name does.
type Policy string

const (
	// PolicyReject fails with domain.ErrAlreadyExists (multi-tenant deployments).
	PolicyReject Policy = "reject"
	// PolicyOverwrite replaces the caller's own record (single-tenant deployments).
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy validates a configured duplicate policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyReject, PolicyOverwrite:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Image is a stored image blob attributed to its owner.
type Image struct {
	name         string
	content      []byte
	owner        string
	predictionID string
}

// New validates and creates an Image. The content is copied.
func New(owner, name string, content []byte, predictionID string) (Image, error) {
	if owner == "" {
		return Image{}, domain.Invalid("owner")
	}
	if name == "" {
		return Image{}, domain.Invalid("image name")
	}
	if len(content) == 0 {
		return Image{}, domain.Invalid("image content")
	}
	return Image{
		name:         name,
		content:      bytes.Clone(content),
		owner:        owner,
		predictionID: predictionID,
	}, nil
}

// Reconstruct creates an Image without validation (storage hydration).
func Reconstruct(name string, content []byte, owner, predictionID string) Image {
	return Image{name: name, content: content, owner: owner, predictionID: predictionID}
}

// Name returns the caller-supplied key.
func (i Image) Name() string { return i.name }

// Content returns a copy of the image bytes.
func (i Image) Content() []byte { return bytes.Clone(i.content) }

// Size returns the content length in bytes.
func (i Image) Size() int { return len(i.content) }

// Owner returns the identity recorded at creation.
func (i Image) Owner() string { return i.owner }

// PredictionID returns the optional prediction identifier.
func (i Image) PredictionID() string { return i.predictionID }

// OwnedBy reports whether owner may read, delete or submit the image.
func (i Image) OwnedBy(owner string) bool { return i.owner == owner }
