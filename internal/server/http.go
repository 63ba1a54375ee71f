package server

import (
	"net/http"

	"movieetl/internal/biz"
	"movieetl/internal/conf"
	"movieetl/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runRequest overrides the configured pipeline parameters of a triggered run.
type runRequest struct {
	Category       string `json:"category"`
	Pages          int    `json:"pages"`
	TransformLimit int    `json:"transform_limit"`
	SkipCollect    bool   `json:"skip_collect"`
	SkipDatasets   bool   `json:"skip_datasets"`
}

type healthReply struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// NewHTTPServer new an HTTP server serving health, metrics and run triggers.
func NewHTTPServer(c *conf.Server, svc *service.PipelineService, logger log.Logger) *khttp.Server {
	var opts = []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, khttp.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, khttp.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, khttp.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := khttp.NewServer(opts...)

	srv.Handle("/metrics", promhttp.Handler())

	r := srv.Route("/")
	r.GET("/healthz", func(ctx khttp.Context) error {
		return ctx.Result(http.StatusOK, &healthReply{Status: "ok", Running: svc.Running()})
	})
	r.POST("/v1/runs", func(ctx khttp.Context) error {
		var req runRequest
		if ctx.Request().ContentLength != 0 {
			if err := ctx.Bind(&req); err != nil {
				return err
			}
		}
		err := svc.Trigger(ctx, biz.RunOptions{
			Category:       req.Category,
			Pages:          req.Pages,
			TransformLimit: req.TransformLimit,
			SkipCollect:    req.SkipCollect,
			SkipDatasets:   req.SkipDatasets,
		})
		if err != nil {
			return err
		}
		return ctx.Result(http.StatusAccepted, map[string]string{"status": "started"})
	})
	return srv
}
