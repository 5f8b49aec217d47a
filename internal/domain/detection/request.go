package detection

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// Boundary is the fixed multipart boundary of detection requests.
const Boundary = "boundary123"

// CostModel estimates the resource cost of one outbound request.
// ExpectedResponseBytes is a conservative upper bound, not the real size.
type CostModel struct {
	Base                  uint64
	PerByteIn             uint64
	PerByteOut            uint64
	ExpectedResponseBytes uint64
}

// DefaultCostModel returns the stock constants.
func DefaultCostModel() CostModel {
	return CostModel{
		Base:                  20_000_000_000,
		PerByteIn:             200,
		PerByteOut:            200,
		ExpectedResponseBytes: 20_000_000,
	}
}

// DefaultInlineCostModel returns the stock constants for content supplied
// with the call. Per-byte rates are double the by-name ones.
func DefaultInlineCostModel() CostModel {
	c := DefaultCostModel()
	c.PerByteIn = 400
	c.PerByteOut = 400
	return c
}

// Estimate returns base + bodyBytes*in + expected*out.
func (c CostModel) Estimate(bodyBytes int) uint64 {
	return c.Base + uint64(bodyBytes)*c.PerByteIn + c.ExpectedResponseBytes*c.PerByteOut
}

// Request is a built, not yet sent, detection request.
type Request struct {
	Name           string
	Body           []byte
	ContentType    string
	IdempotencyKey string
	Cost           uint64
}

// Build frames content as a single-part multipart body (field "image",
// filename = name, type image/jpeg) and prices it with cost.
func Build(name string, content []byte, idempotencyKey string, cost CostModel) (Request, error) {
	if name == "" {
		return Request{}, domain.Invalid("image name")
	}
	if len(content) == 0 {
		return Request{}, domain.Invalid("image content")
	}
	if idempotencyKey == "" {
		return Request{}, domain.Invalid("idempotency key")
	}

	var buf bytes.Buffer
	buf.Grow(len(content) + 256)
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(Boundary); err != nil {
		return Request{}, fmt.Errorf("set boundary: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return Request{}, fmt.Errorf("create part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return Request{}, fmt.Errorf("write part: %w", err)
	}
	if err := w.Close(); err != nil {
		return Request{}, fmt.Errorf("close multipart: %w", err)
	}

	body := buf.Bytes()
	return Request{
		Name:           name,
		Body:           body,
		ContentType:    w.FormDataContentType(),
		IdempotencyKey: idempotencyKey,
		Cost:           cost.Estimate(len(body)),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
