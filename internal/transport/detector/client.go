// Package detector is the outbound client of the remote detection endpoint.
package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domdet "github.com/kailas-cloud/sentinel/internal/domain/detection"
	"github.com/kailas-cloud/sentinel/internal/metrics"
	"github.com/kailas-cloud/sentinel/internal/transport/transform"
)

// Config holds the detection endpoint settings.
type Config struct {
	URL          string
	Host         string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Logger       *zap.Logger
	// Transport is the underlying transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client posts multipart detection requests. Every response goes through
// transform.RoundTripper before it is inspected.
type Client struct {
	http      *http.Client
	url       string
	host      string
	userAgent string
	logger    *zap.Logger
}

// NewClient creates a detector client.
func NewClient(cfg *Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &http.Client{
			Transport: transform.NewRoundTripper(cfg.Transport, cfg.MaxBodyBytes),
			Timeout:   cfg.Timeout,
		},
		url:       cfg.URL,
		host:      cfg.Host,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Send posts req and returns the filtered body of a 200 response.
// Network failures are rejections with code 0; other statuses are
// rejections carrying the status and the filtered body.
func (c *Client) Send(ctx context.Context, req domdet.Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}
	if c.host != "" {
		httpReq.Host = c.host
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	httpReq.Header.Set("Content-Type", req.ContentType)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		metrics.DetectionRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Warn("Detection request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, domain.NewRejection(0, networkMessage(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.DetectionRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, domain.NewRejection(0, fmt.Sprintf("read response: %v", err))
	}

	status := strconv.Itoa(resp.StatusCode)
	metrics.DetectionRequestsTotal.WithLabelValues(status).Inc()
	metrics.DetectionRequestDuration.WithLabelValues(status).Observe(duration.Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewRejection(resp.StatusCode, string(body))
	}
	return body, nil
}

// networkMessage unwraps url.Error noise so the caller sees the cause.
func networkMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	var inner interface{ Unwrap() error }
	if errors.As(err, &inner) {
		if cause := inner.Unwrap(); cause != nil {
			return cause.Error()
		}
	}
	return err.Error()
}
