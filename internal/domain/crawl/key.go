package crawl

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

const (
	separator = ':'
	escape    = '\\'
)

// Key is the composite (owner, resource) key of a cached result.
//
// Both components are escaped before joining, so an owner or resource
// containing the separator cannot collide with another pair and an owner's
// prefix never matches a different owner.
type Key struct {
	Owner    string
	Resource string
}

// NewKey validates both components.
func NewKey(owner, resource string) (Key, error) {
	if owner == "" {
		return Key{}, domain.Invalid("owner")
	}
	if resource == "" {
		return Key{}, domain.Invalid("resource name")
	}
	return Key{Owner: owner, Resource: resource}, nil
}

// String encodes the key as escape(owner) ":" escape(resource).
func (k Key) String() string {
	return OwnerPrefix(k.Owner) + escapeComponent(k.Resource)
}

// OwnerPrefix is the encoded prefix shared by every key of owner.
func OwnerPrefix(owner string) string {
	return escapeComponent(owner) + string(separator)
}

// ParseKey decodes a key produced by Key.String.
func ParseKey(s string) (Key, error) {
	var (
		owner strings.Builder
		cur   strings.Builder
		split bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == escape:
			if i+1 >= len(s) {
				return Key{}, fmt.Errorf("dangling escape in key %q", s)
			}
			i++
			cur.WriteByte(s[i])
		case c == separator && !split:
			owner.WriteString(cur.String())
			cur.Reset()
			split = true
		case c == separator:
			return Key{}, fmt.Errorf("unescaped separator in key %q", s)
		default:
			cur.WriteByte(c)
		}
	}
	if !split {
		return Key{}, fmt.Errorf("missing separator in key %q", s)
	}
	return Key{Owner: owner.String(), Resource: cur.String()}, nil
}

func escapeComponent(s string) string {
	if !strings.ContainsAny(s, `:\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == separator || s[i] == escape {
			b.WriteByte(escape)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
