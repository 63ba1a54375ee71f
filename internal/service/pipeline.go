package service

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"movieetl/internal/biz"
)

// ErrRunInProgress is returned when a stage is requested while another one is running.
var ErrRunInProgress = errors.Conflict("RUN_IN_PROGRESS", "a pipeline stage is already running")

// PipelineService exposes the pipeline stages to the CLI, the scheduler and
// the ops HTTP server. At most one stage or run executes at a time.
type PipelineService struct {
	mu sync.Mutex

	pipeline  *biz.PipelineUseCase
	collect   *biz.CollectUseCase
	enrich    *biz.EnrichUseCase
	transform *biz.TransformUseCase
	datasets  *biz.DatasetUseCase
	integrate *biz.IntegrateUseCase
	validate  *biz.ValidateUseCase

	log *log.Helper
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(
	pipeline *biz.PipelineUseCase,
	collect *biz.CollectUseCase,
	enrich *biz.EnrichUseCase,
	transform *biz.TransformUseCase,
	datasets *biz.DatasetUseCase,
	integrate *biz.IntegrateUseCase,
	validate *biz.ValidateUseCase,
	logger log.Logger,
) *PipelineService {
	return &PipelineService{
		pipeline:  pipeline,
		collect:   collect,
		enrich:    enrich,
		transform: transform,
		datasets:  datasets,
		integrate: integrate,
		validate:  validate,
		log:       log.NewHelper(logger),
	}
}

// exclusive runs fn unless another stage holds the lock.
func (s *PipelineService) exclusive(fn func() error) error {
	if !s.mu.TryLock() {
		return ErrRunInProgress
	}
	defer s.mu.Unlock()
	return fn()
}

// Collect stages listing pages; zero values fall back to configuration.
func (s *PipelineService) Collect(ctx context.Context, category string, pages int) (res *biz.CollectResult, err error) {
	opts := s.pipeline.Resolve(biz.RunOptions{Category: category, Pages: pages})
	err = s.exclusive(func() error {
		res, err = s.collect.Collect(ctx, opts.Category, opts.Pages)
		return err
	})
	return res, err
}

func (s *PipelineService) Enrich(ctx context.Context) (res *biz.EnrichResult, err error) {
	err = s.exclusive(func() error {
		res, err = s.enrich.Enrich(ctx)
		return err
	})
	return res, err
}

func (s *PipelineService) Transform(ctx context.Context, limit int) (res *biz.TransformResult, err error) {
	opts := s.pipeline.Resolve(biz.RunOptions{TransformLimit: limit})
	err = s.exclusive(func() error {
		res, err = s.transform.Transform(ctx, opts.TransformLimit)
		return err
	})
	return res, err
}

func (s *PipelineService) Datasets(ctx context.Context) (res []*biz.DatasetResult, err error) {
	err = s.exclusive(func() error {
		res, err = s.datasets.LoadAll(ctx)
		return err
	})
	return res, err
}

func (s *PipelineService) Integrate(ctx context.Context) (res *biz.IntegrateResult, err error) {
	err = s.exclusive(func() error {
		res, err = s.integrate.Integrate(ctx)
		return err
	})
	return res, err
}

// Validate reads the consistency report. It does not take the run lock.
func (s *PipelineService) Validate(ctx context.Context) (*biz.ConsistencyReport, error) {
	return s.validate.Report(ctx)
}

// Run executes the whole pipeline and waits for it.
func (s *PipelineService) Run(ctx context.Context, opts biz.RunOptions) (report *biz.RunReport, err error) {
	err = s.exclusive(func() error {
		report, err = s.pipeline.Run(ctx, opts)
		return err
	})
	return report, err
}

// Trigger starts a pipeline run in the background and returns once it holds
// the run lock. The run outlives the caller's context cancellation.
func (s *PipelineService) Trigger(ctx context.Context, opts biz.RunOptions) error {
	if !s.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer s.mu.Unlock()
		if _, err := s.pipeline.Run(context.WithoutCancel(ctx), opts); err != nil {
			s.log.Errorf("triggered run failed: %v", err)
		}
	}()
	return nil
}

// Running reports whether a stage currently holds the run lock.
func (s *PipelineService) Running() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}
