// Package chi exposes the caller-facing HTTP API.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	detectionuc "github.com/kailas-cloud/sentinel/internal/usecase/detection"
	healthuc "github.com/kailas-cloud/sentinel/internal/usecase/health"
	imageuc "github.com/kailas-cloud/sentinel/internal/usecase/image"
	resultsuc "github.com/kailas-cloud/sentinel/internal/usecase/results"
	subjectuc "github.com/kailas-cloud/sentinel/internal/usecase/subject"
	usageuc "github.com/kailas-cloud/sentinel/internal/usecase/usage"
)

// DefaultMaxImageBytes bounds uploaded image bodies.
const DefaultMaxImageBytes = 10 << 20

// Server implements ServerInterface.
type Server struct {
	images        *imageuc.Service
	subjects      *subjectuc.Service
	results       *resultsuc.Service
	detections    *detectionuc.Service
	health        *healthuc.Service
	usage         *usageuc.Service
	identity      Identity
	maxImageBytes int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	images *imageuc.Service,
	subjects *subjectuc.Service,
	results *resultsuc.Service,
	detections *detectionuc.Service,
	health *healthuc.Service,
	usage *usageuc.Service,
	identity Identity,
	logger *zap.Logger,
) *Server {
	return &Server{
		images:        images,
		subjects:      subjects,
		results:       results,
		detections:    detections,
		health:        health,
		usage:         usage,
		identity:      identity,
		maxImageBytes: DefaultMaxImageBytes,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithMaxImageBytes overrides the upload limit.
func (s *Server) WithMaxImageBytes(n int64) *Server {
	if n > 0 {
		s.maxImageBytes = n
	}
	return s
}

// StoreImage handles PUT /v1/images/{name}.
func (s *Server) StoreImage(w http.ResponseWriter, r *http.Request, name string, params OwnerPredictionParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}
	content, ok := s.readImage(w, r)
	if !ok {
		return
	}

	predictionID := deref(params.PredictionID)
	if err := s.images.Store(r.Context(), owner, name, content, predictionID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/images/"+name)
	writeJSON(w, http.StatusCreated, StoredImageResponse{Name: name, Size: len(content), PredictionID: predictionID})
}

// GetImage handles GET /v1/images/{name}. The body is the raw image.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request, name string, params OwnerParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}

	img, err := s.images.Get(r.Context(), owner, name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	content := img.Content()
	w.Header().Set("Content-Type", http.DetectContentType(content))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	if img.PredictionID() != "" {
		w.Header().Set("X-Prediction-Id", img.PredictionID())
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// ListImages handles GET /v1/images.
func (s *Server) ListImages(w http.ResponseWriter, r *http.Request, params OwnerParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}

	imgs, err := s.images.List(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Images: imageNames(imgs)})
}

// DeleteImage handles DELETE /v1/images/{name}.
func (s *Server) DeleteImage(w http.ResponseWriter, r *http.Request, name string, params OwnerParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}

	if err := s.images.Delete(r.Context(), owner, name); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTag handles POST /v1/subjects/{subject}/tags.
func (s *Server) AddTag(w http.ResponseWriter, r *http.Request, subject string) {
	var req AddTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.subjects.AddTag(r.Context(), subject, req.Tag); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTags handles GET /v1/subjects/{subject}/tags.
func (s *Server) GetTags(w http.ResponseWriter, r *http.Request, subject string) {
	tags, err := s.subjects.Tags(r.Context(), subject)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{SubjectID: subject, Tags: nonNil(tags)})
}

// GetResults handles GET /v1/results. The body maps image name to result.
func (s *Server) GetResults(w http.ResponseWriter, r *http.Request, params OwnerParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}

	res, err := s.results.ForOwner(r.Context(), owner)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := make(map[string]ResultResponse, len(res))
	for name, v := range res {
		out[name] = resultToResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

// DetectStoredImage handles POST /v1/images/{name}/detections.
func (s *Server) DetectStoredImage(w http.ResponseWriter, r *http.Request, name string, params OwnerPredictionParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}

	res, err := s.detections.SubmitByName(r.Context(), owner, name, deref(params.PredictionID))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// DetectInlineImage handles POST /v1/detections/{name}.
func (s *Server) DetectInlineImage(w http.ResponseWriter, r *http.Request, name string, params OwnerPredictionParams) {
	owner, ok := s.owner(w, r, params.Owner)
	if !ok {
		return
	}
	content, ok := s.readImage(w, r)
	if !ok {
		return
	}

	res, err := s.detections.SubmitInline(r.Context(), owner, name, content, deref(params.PredictionID))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams) {
	report, err := s.usage.GetReport(r.Context(), deref(params.Period))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageToResponse(report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request, asserted *string) (string, bool) {
	owner, err := s.identity.Owner(r.Context(), asserted)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error())
		return "", false
	}
	return owner, true
}

func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "image exceeds upload limit")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return content, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			if errors.Is(err, domain.ErrStorageCorruption) {
				s.logger.Error("storage corruption", zap.Error(err))
			} else {
				s.logger.Warn("domain error", zap.Error(err))
			}
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
