//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"movieetl/internal/biz"
	"movieetl/internal/conf"
	"movieetl/internal/data"
	"movieetl/internal/server"
	"movieetl/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(context.Context, *conf.Server, *conf.Data, *conf.Catalog, *conf.Dataset, *conf.Pipeline, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}

// wireService init the pipeline service for one-shot commands.
func wireService(*conf.Data, *conf.Catalog, *conf.Dataset, *conf.Pipeline, log.Logger) (*service.PipelineService, func(), error) {
	panic(wire.Build(data.ProviderSet, biz.ProviderSet, service.ProviderSet))
}
