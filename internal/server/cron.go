package server

import (
	"context"
	"fmt"

	"movieetl/internal/biz"
	"movieetl/internal/conf"
	"movieetl/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// CronServer triggers full pipeline runs on a cron schedule. It implements
// kratos transport.Server so the app starts and stops it with the HTTP server.
type CronServer struct {
	cron     *cron.Cron
	schedule string
	svc      *service.PipelineService
	log      *log.Helper
}

// NewCronServer creates the scheduler. An empty schedule disables it.
func NewCronServer(c *conf.Server, svc *service.PipelineService, logger log.Logger) *CronServer {
	l := cronLogger{log.NewHelper(logger)}
	return &CronServer{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		schedule: c.Schedule,
		svc:      svc,
		log:      log.NewHelper(logger),
	}
}

func (s *CronServer) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.log.Info("no pipeline schedule configured")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.Infof("pipeline scheduled: %s", s.schedule)
	return nil
}

func (s *CronServer) run(ctx context.Context) {
	report, err := s.svc.Run(ctx, biz.RunOptions{})
	if err != nil {
		s.log.Errorf("scheduled run failed: %v", err)
		return
	}
	s.log.Infof("scheduled run %s finished in %s", report.RunID, report.Elapsed)
}

// Stop waits for a running job to finish or for ctx to expire.
func (s *CronServer) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("cron stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's logging through kratos.
type cronLogger struct {
	h *log.Helper
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.h.Debugw(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.h.Errorw(append([]interface{}{"msg", msg, "error", err}, keysAndValues...)...)
}
