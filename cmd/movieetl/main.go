package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"movieetl/internal/conf"
	"movieetl/internal/server"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "movieetl"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func newApp(ctx context.Context, logger log.Logger, hs *khttp.Server, cs *server.CronServer) *kratos.App {
	return kratos.New(
		kratos.Context(ctx),
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs, cs),
	)
}

// loadConfig reads the YAML file and overlays MOVIEETL_ prefixed environment
// variables, which also resolve ${...} placeholders in the file.
func loadConfig(path string) (*conf.Bootstrap, error) {
	c := config.New(
		config.WithSource(
			env.NewSource("MOVIEETL_"),
			file.NewSource(path),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	bc.Defaults()
	return &bc, nil
}

func newLogger(c *conf.Log) log.Logger {
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	return log.NewFilter(logger, log.FilterLevel(log.ParseLevel(c.Level)))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           Name,
		Short:         "Movie catalog ETL: collect, enrich, normalize and integrate movie data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: --conf config.yaml")

	root.AddCommand(
		newCollectCommand(),
		newEnrichCommand(),
		newTransformCommand(),
		newDatasetsCommand(),
		newIntegrateCommand(),
		newValidateCommand(),
		newRunCommand(),
		newServeCommand(),
	)
	return root
}
