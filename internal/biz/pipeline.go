package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"movieetl/internal/conf"
	"movieetl/internal/metrics"
)

// Stage names, also used as metric labels.
const (
	StageCollect   = "collect"
	StageEnrich    = "enrich"
	StageTransform = "transform"
	StageDatasets  = "datasets"
	StageIntegrate = "integrate"
)

// RunOptions overrides the configured pipeline parameters for one run.
type RunOptions struct {
	Category       string
	Pages          int
	TransformLimit int
	SkipCollect    bool
	SkipDatasets   bool
}

// RunReport aggregates the per-stage results of one pipeline run.
type RunReport struct {
	RunID     string           `json:"run_id"`
	Collect   *CollectResult   `json:"collect,omitempty"`
	Enrich    *EnrichResult    `json:"enrich,omitempty"`
	Transform *TransformResult `json:"transform,omitempty"`
	Datasets  []*DatasetResult `json:"datasets,omitempty"`
	Integrate *IntegrateResult `json:"integrate,omitempty"`
	Elapsed   time.Duration    `json:"elapsed"`
}

// PipelineUseCase runs every stage in order. Stages never overlap.
type PipelineUseCase struct {
	collect   *CollectUseCase
	enrich    *EnrichUseCase
	transform *TransformUseCase
	datasets  *DatasetUseCase
	integrate *IntegrateUseCase
	defaults  *conf.Pipeline
	log       *log.Helper
}

// NewPipelineUseCase creates a new PipelineUseCase instance
func NewPipelineUseCase(
	collect *CollectUseCase,
	enrich *EnrichUseCase,
	transform *TransformUseCase,
	datasets *DatasetUseCase,
	integrate *IntegrateUseCase,
	c *conf.Pipeline,
	logger log.Logger,
) *PipelineUseCase {
	return &PipelineUseCase{
		collect:   collect,
		enrich:    enrich,
		transform: transform,
		datasets:  datasets,
		integrate: integrate,
		defaults:  c,
		log:       log.NewHelper(logger),
	}
}

// Resolve fills unset options from configuration.
func (uc *PipelineUseCase) Resolve(opts RunOptions) RunOptions {
	if opts.Category == "" {
		opts.Category = uc.defaults.Category
	}
	if opts.Pages <= 0 {
		opts.Pages = uc.defaults.Pages
	}
	if opts.TransformLimit <= 0 {
		opts.TransformLimit = uc.defaults.TransformLimit
	}
	return opts
}

func (uc *PipelineUseCase) Run(ctx context.Context, opts RunOptions) (report *RunReport, err error) {
	opts = uc.Resolve(opts)

	// UUID v7: time-ordered, sorts with run start
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}
	report = &RunReport{RunID: runID.String()}
	l := uc.log.WithContext(ctx)

	start := time.Now()
	defer func() {
		report.Elapsed = time.Since(start)
		if err != nil {
			metrics.PipelineRuns.WithLabelValues("failure").Inc()
			l.Errorf("pipeline run %s failed after %s: %v", report.RunID, report.Elapsed, err)
			return
		}
		metrics.PipelineRuns.WithLabelValues("success").Inc()
		l.Infof("pipeline run %s completed in %s", report.RunID, report.Elapsed)
	}()

	l.Infof("pipeline run %s started: category=%s pages=%d", report.RunID, opts.Category, opts.Pages)

	if !opts.SkipCollect {
		if err = observe(StageCollect, func() error {
			report.Collect, err = uc.collect.Collect(ctx, opts.Category, opts.Pages)
			return err
		}); err != nil {
			return report, err
		}
	}
	if err = observe(StageEnrich, func() error {
		report.Enrich, err = uc.enrich.Enrich(ctx)
		return err
	}); err != nil {
		return report, err
	}
	if err = observe(StageTransform, func() error {
		report.Transform, err = uc.transform.Transform(ctx, opts.TransformLimit)
		return err
	}); err != nil {
		return report, err
	}
	if !opts.SkipDatasets {
		if err = observe(StageDatasets, func() error {
			report.Datasets, err = uc.datasets.LoadAll(ctx)
			return err
		}); err != nil {
			return report, err
		}
	}
	if err = observe(StageIntegrate, func() error {
		report.Integrate, err = uc.integrate.Integrate(ctx)
		return err
	}); err != nil {
		return report, err
	}
	return report, nil
}

func observe(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}
