// Package detection runs the detection workflow: build a multipart request,
// send it to the remote detector, parse the filtered response and write the
// result through the crawl result cache.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domcrawl "github.com/kailas-cloud/sentinel/internal/domain/crawl"
	domdet "github.com/kailas-cloud/sentinel/internal/domain/detection"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
	"github.com/kailas-cloud/sentinel/internal/logger"
	"github.com/kailas-cloud/sentinel/internal/metrics"
)

// Entry variants, used as a metrics label.
const (
	VariantByName = "by_name"
	VariantInline = "inline"
)

// Service runs detection workflows.
//
// The shared lock is held only while reading or writing records. It is
// released for the outbound call, so other operations may change the image
// region meanwhile; the by-name variant re-reads the image after the call
// instead of trusting the earlier read.
type Service struct {
	images     ImageReader
	results    ResultWriter
	sender     Sender
	lock       sync.Locker
	cost       domdet.CostModel
	inlineCost domdet.CostModel
	budget     BudgetChecker
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithBudget enables cost budget enforcement.
func WithBudget(b BudgetChecker) Option {
	return func(s *Service) { s.budget = b }
}

// WithInlineCost prices inline submissions with c instead of the
// by-name cost model.
func WithInlineCost(c domdet.CostModel) Option {
	return func(s *Service) { s.inlineCost = c }
}

// WithIDGenerator overrides prediction id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a detection service. A nil lock gets a private mutex.
func New(
	images ImageReader, results ResultWriter, sender Sender,
	lock sync.Locker, cost domdet.CostModel, opts ...Option,
) *Service {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	s := &Service{
		images:     images,
		results:    results,
		sender:     sender,
		lock:       lock,
		cost:       cost,
		inlineCost: cost,
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SubmitByName runs detection on a stored image owned by owner.
func (s *Service) SubmitByName(ctx context.Context, owner, name, predictionID string) (domcrawl.Result, error) {
	if _, err := domcrawl.NewKey(owner, name); err != nil {
		return domcrawl.Result{}, err
	}

	s.lock.Lock()
	img, err := s.ownedImage(ctx, owner, name)
	s.lock.Unlock()
	if err != nil {
		s.observe(VariantByName, err)
		return domcrawl.Result{}, err
	}

	in := input{owner: owner, name: name, content: img.Content(), predictionID: predictionID, cost: s.cost}
	res, err := s.run(ctx, in, func(ctx context.Context) error {
		_, err := s.ownedImage(ctx, owner, name)
		return err
	})
	s.observe(VariantByName, err)
	return res, err
}

// SubmitInline runs detection on content supplied with the call. Nothing is
// read from the image region, so only the declared owner is used.
func (s *Service) SubmitInline(
	ctx context.Context, owner, name string, content []byte, predictionID string,
) (domcrawl.Result, error) {
	if _, err := domcrawl.NewKey(owner, name); err != nil {
		return domcrawl.Result{}, err
	}
	if len(content) == 0 {
		return domcrawl.Result{}, domain.Invalid("image content")
	}

	in := input{owner: owner, name: name, content: content, predictionID: predictionID, cost: s.inlineCost}
	res, err := s.run(ctx, in, nil)
	s.observe(VariantInline, err)
	return res, err
}

// run drives the state machine from Idle and logs the state it ends in.
// recheck, when set, runs under the lock after the outbound call and before
// the result is written.
func (s *Service) run(
	ctx context.Context, in input, recheck func(ctx context.Context) error,
) (domcrawl.Result, error) {
	if in.predictionID == "" {
		in.predictionID = s.newID()
	}
	ctx, log := logger.With(ctx,
		zap.String("owner", in.owner),
		zap.String("name", in.name),
		zap.String("prediction_id", in.predictionID),
	)

	var m domdet.Machine
	start := time.Now()
	res, err := s.drive(ctx, &m, in, recheck)
	if err != nil {
		log.Warn("detection_failed",
			zap.Stringer("state", m.State()),
			zap.Stringer("failed_at", m.FailedAt()),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return domcrawl.Result{}, err
	}
	log.Info("detection_stored",
		zap.Stringer("state", m.State()),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

// input is one workflow run's arguments.
type input struct {
	owner        string
	name         string
	content      []byte
	predictionID string
	cost         domdet.CostModel
}

// drive walks m through Built, Sent, Parsed and Stored. Every error
// returned leaves m in Failed.
func (s *Service) drive(
	ctx context.Context, m *domdet.Machine, in input, recheck func(ctx context.Context) error,
) (domcrawl.Result, error) {
	log := logger.FromContext(ctx)

	req, err := domdet.Build(in.name, in.content, in.predictionID, in.cost)
	if err != nil {
		return domcrawl.Result{}, m.Fail(err)
	}
	if err := m.Advance(domdet.Built); err != nil {
		return domcrawl.Result{}, m.Fail(err)
	}

	if s.budget != nil {
		if err := s.budget.Check(ctx, int64(req.Cost)); err != nil {
			log.Error("Detection budget exceeded", zap.Uint64("cost", req.Cost), zap.Error(err))
			return domcrawl.Result{}, m.Fail(fmt.Errorf("budget check: %w", err))
		}
	}

	log.Info("detection_started", zap.Int("body_bytes", len(req.Body)), zap.Uint64("estimated_cost", req.Cost))

	if err := m.Advance(domdet.Sent); err != nil {
		return domcrawl.Result{}, m.Fail(err)
	}
	start := time.Now()
	body, err := s.sender.Send(ctx, req)
	s.record(req.Cost)
	if err != nil {
		var rej *domain.RejectionError
		if errors.As(err, &rej) {
			log.Warn("Detection request rejected",
				zap.Int("code", rej.Code), zap.String("message", rej.Message),
				zap.Duration("duration", time.Since(start)))
		}
		return domcrawl.Result{}, m.Fail(fmt.Errorf("send detection request: %w", err))
	}

	parsed, err := parseResult(body)
	if err != nil {
		log.Warn("Failed to parse detection response", zap.Int("body_bytes", len(body)), zap.Error(err))
		return domcrawl.Result{}, m.Fail(domain.ErrDecodeFailure)
	}
	if err := m.Advance(domdet.Parsed); err != nil {
		return domcrawl.Result{}, m.Fail(err)
	}

	parsed.PredictionID = in.predictionID

	stored, err := s.store(ctx, in.owner, in.name, parsed, recheck)
	if err != nil {
		return domcrawl.Result{}, m.Fail(err)
	}
	if err := m.Advance(domdet.Stored); err != nil {
		return domcrawl.Result{}, m.Fail(err)
	}
	return stored, nil
}

func (s *Service) store(
	ctx context.Context, owner, name string, res domcrawl.Result,
	recheck func(ctx context.Context) error,
) (domcrawl.Result, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if recheck != nil {
		if err := recheck(ctx); err != nil {
			return domcrawl.Result{}, fmt.Errorf("after detection: %w", err)
		}
	}

	key, err := domcrawl.NewKey(owner, name)
	if err != nil {
		return domcrawl.Result{}, err
	}
	stored, err := s.results.Put(ctx, key, res)
	if err != nil {
		return domcrawl.Result{}, fmt.Errorf("store detection result: %w", err)
	}
	return stored, nil
}

// ownedImage must be called with the lock held.
func (s *Service) ownedImage(ctx context.Context, owner, name string) (domimg.Image, error) {
	img, err := s.images.Get(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domimg.Image{}, fmt.Errorf("image %q: %w", name, domain.ErrNotFound)
		}
		return domimg.Image{}, fmt.Errorf("get image: %w", err)
	}
	if !img.OwnedBy(owner) {
		return domimg.Image{}, fmt.Errorf("image %q: %w", name, domain.ErrAccessDenied)
	}
	return img, nil
}

func (s *Service) record(cost uint64) {
	metrics.DetectionCostTotal.Add(float64(cost))
	if s.budget == nil {
		return
	}
	s.budget.Record(int64(cost))
	metrics.DetectionBudgetRemaining.WithLabelValues("daily").Set(float64(s.budget.RemainingDaily()))
	metrics.DetectionBudgetRemaining.WithLabelValues("monthly").Set(float64(s.budget.RemainingMonthly()))
}

func (s *Service) observe(variant string, err error) {
	outcome := string(domain.KindOf(err))
	if err == nil {
		outcome = "ok"
	}
	metrics.DetectionWorkflowsTotal.WithLabelValues(variant, outcome).Inc()
}
