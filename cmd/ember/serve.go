package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/watt-toolkit/ember/core"
	"github.com/watt-toolkit/ember/middleware"
	"github.com/watt-toolkit/ember/pkg/ember/server"
)

type serveOptions struct {
	addr       string
	root       string
	baseURI    string
	showHidden bool
	logFormat  string
	logLevel   string
	accessLog  bool
	metrics    string
}

func (o *serveOptions) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.addr, "addr", "a", "", "address to listen on (overrides EMBER_ADDR)")
	flags.StringVarP(&o.root, "root", "r", ".", "directory to serve")
	flags.StringVar(&o.baseURI, "base-uri", "/", "URL prefix the directory is served under")
	flags.BoolVar(&o.showHidden, "show-hidden", false, "serve files whose name starts with '.'")
	flags.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level")
	flags.BoolVar(&o.accessLog, "access-log", true, "write one JSON line per request to stdout")
	flags.StringVar(&o.metrics, "metrics-path", "/metrics", "route serving prometheus metrics, empty disables it")
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := server.ConfigFromEnv()
			if err != nil {
				return fmt.Errorf("reading environment: %w", err)
			}
			if opts.addr != "" {
				cfg.Addr = opts.addr
			}

			logger, err := newLogger(opts.logFormat, opts.logLevel)
			if err != nil {
				return err
			}
			cfg.Logger = logger

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			cfg.Metrics = server.NewMetrics(reg)

			app := newApp(opts, afero.NewOsFs(), reg)
			return run(cmd.Context(), cfg, app)
		},
	}
	opts.bind(serveCmd.Flags())
	return serveCmd
}

func newLogger(format, level string) (*logrus.Logger, error) {
	logger := logrus.New()
	switch format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	return logger, nil
}

func newApp(opts *serveOptions, fs afero.Fs, g prometheus.Gatherer) *core.App {
	app := core.New()
	if opts.metrics != "" {
		app.Get(opts.metrics, server.MetricsHandler(g))
	}
	app.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Fs:         fs,
		Root:       opts.root,
		BaseURI:    opts.baseURI,
		ShowHidden: opts.showHidden,
	}))
	if opts.accessLog {
		app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Output:    os.Stdout,
			SkipPaths: []string{opts.metrics},
		}))
	}
	return app
}

// run serves until ctx is done or SIGINT/SIGTERM arrives.
func run(ctx context.Context, cfg server.Config, handler server.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, handler)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.ListenAndServe()
		if errors.Is(err, server.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		cfg.Logger.Info("Shutting down")
		return srv.Close()
	})
	return g.Wait()
}
