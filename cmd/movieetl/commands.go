package main

import (
	"context"
	"io"

	"movieetl/internal/biz"
	"movieetl/internal/conf"
	"movieetl/internal/service"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// withService loads configuration, wires the pipeline service and runs fn
// with the command context.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.PipelineService) (interface{}, error)) error {
	bc, err := loadConfig(flagconf)
	if err != nil {
		return err
	}
	logger := newLogger(bc.Log)

	svc, cleanup, err := wireService(bc.Data, bc.Catalog, bc.Dataset, bc.Pipeline, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := fn(cmd.Context(), svc)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func newCollectCommand() *cobra.Command {
	var (
		category string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Page through a catalog listing and stage every movie",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Collect(ctx, category, pages)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "listing category, eg: top_rated")
	cmd.Flags().IntVar(&pages, "pages", 0, "number of listing pages to fetch")
	return cmd
}

func newEnrichCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Fetch details and credits for every staged movie",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Enrich(ctx)
			})
		},
	}
}

func newTransformCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Normalize enriched movies into relational tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Transform(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of movies to transform")
	return cmd
}

func newDatasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "Download and load the bulk rating datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Datasets(ctx)
			})
		},
	}
}

func newIntegrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "integrate",
		Short: "Match catalog movies with external ratings and compute financials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Integrate(ctx)
			})
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Print the consistency report for staging and relational tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Validate(ctx)
			})
		},
	}
}

func newRunCommand() *cobra.Command {
	var opts biz.RunOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.PipelineService) (interface{}, error) {
				return svc.Run(ctx, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Category, "category", "", "listing category, eg: top_rated")
	cmd.Flags().IntVar(&opts.Pages, "pages", 0, "number of listing pages to fetch")
	cmd.Flags().IntVar(&opts.TransformLimit, "limit", 0, "maximum number of movies to transform")
	cmd.Flags().BoolVar(&opts.SkipCollect, "skip-collect", false, "reuse the movies already staged")
	cmd.Flags().BoolVar(&opts.SkipDatasets, "skip-datasets", false, "reuse the bulk tables already loaded")
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health and metrics endpoints and run the pipeline on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := loadConfig(flagconf)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), bc)
		},
	}
}

func serve(ctx context.Context, bc *conf.Bootstrap) error {
	logger := newLogger(bc.Log)
	app, cleanup, err := wireApp(ctx, bc.Server, bc.Data, bc.Catalog, bc.Dataset, bc.Pipeline, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// start and wait for stop signal
	return app.Run()
}
