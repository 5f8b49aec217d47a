package transform

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// DefaultMaxBodyBytes bounds how much of a response body is read.
const DefaultMaxBodyBytes = 20_000_000

// RoundTripper applies Apply to every response of Base.
type RoundTripper struct {
	Base         http.RoundTripper
	MaxBodyBytes int64
}

// NewRoundTripper wraps base. A nil base uses http.DefaultTransport.
func NewRoundTripper(base http.RoundTripper, maxBodyBytes int64) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &RoundTripper{Base: base, MaxBodyBytes: maxBodyBytes}
}

// RoundTrip implements http.RoundTripper.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err //nolint:wrapcheck // RoundTrippers must not decorate transport errors
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > t.MaxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", t.MaxBodyBytes)
	}

	filtered := Apply(Response{Status: resp.StatusCode, Body: body})

	header := make(http.Header, len(filtered.Headers)+1)
	for _, h := range filtered.Headers {
		header.Set(h.Name, h.Value)
	}
	header.Set("Content-Length", strconv.Itoa(len(filtered.Body)))

	resp.Header = header
	resp.Body = io.NopCloser(bytes.NewReader(filtered.Body))
	resp.ContentLength = int64(len(filtered.Body))
	return resp, nil
}
