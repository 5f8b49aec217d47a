// Package transform filters raw detector responses before the detection
// workflow sees them.
package transform

import (
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Header is one response header.
type Header struct {
	Name  string
	Value string
}

// Response is the part of an HTTP response the filter looks at.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
}

// allowedKeys are copied from a successful response body, in this order.
var allowedKeys = []string{
	"created_at",
	"full_matching_images",
	"id",
	"pages_with_matching_images",
	"updated_at",
	"visually_similar_images",
	"web_entities",
}

// AllowedKeys returns the keys kept from a successful response body.
func AllowedKeys() []string {
	return append([]string(nil), allowedKeys...)
}

// SecurityHeaders returns the fixed header set of every filtered response.
func SecurityHeaders() []Header {
	return []Header{
		{Name: "Content-Security-Policy", Value: "default-src 'self'"},
		{Name: "Referrer-Policy", Value: "strict-origin"},
		{Name: "Permissions-Policy", Value: "geolocation=(self)"},
		{Name: "Strict-Transport-Security", Value: "max-age=63072000"},
		{Name: "X-Frame-Options", Value: "DENY"},
		{Name: "X-Content-Type-Options", Value: "nosniff"},
	}
}

// Apply filters raw. It has no side effects and the same input always gives
// the same output.
//
// Headers are always replaced by SecurityHeaders. A 200 response whose body
// is a JSON object gets a new compact body holding only the allowed keys
// present in the source. Any other body is passed through unchanged.
func Apply(raw Response) Response {
	out := Response{
		Status:  raw.Status,
		Headers: SecurityHeaders(),
		Body:    raw.Body,
	}
	if raw.Status != 200 {
		return out
	}
	if filtered, ok := filterObject(raw.Body); ok {
		out.Body = filtered
	}
	return out
}

func filterObject(body []byte) ([]byte, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, false
	}

	// A repeated key keeps its last value.
	found := make(map[string]string, len(allowedKeys))
	doc.ForEach(func(k, v gjson.Result) bool {
		if slices.Contains(allowedKeys, k.String()) {
			found[k.String()] = v.Raw
		}
		return true
	})

	out := []byte("{}")
	for _, key := range allowedKeys {
		raw, ok := found[key]
		if !ok {
			continue
		}
		var err error
		out, err = sjson.SetRawBytes(out, key, pretty.Ugly([]byte(raw)))
		if err != nil {
			return nil, false
		}
	}
	return out, true
}
