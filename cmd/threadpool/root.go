package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/utkarsh5026/threadpool/internal/config"
	"github.com/utkarsh5026/threadpool/internal/logger"
	"github.com/utkarsh5026/threadpool/pool"
)

var version = "dev"

// app is the state shared by every subcommand for one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	v       *viper.Viper
	cfgFile string
	cfg     config.Config

	log      *zap.Logger
	closeLog func() error

	registry *prometheus.Registry
	server   *http.Server
	tracer   trace.Tracer
	shutdown []func(context.Context) error
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "threadpool",
		Short: "Run work on a fixed-size pool of workers",
		Long: `threadpool starts a fixed number of workers that take tasks from a shared
FIFO queue. Each subcommand submits a different workload, waits for every
result and shuts the pool down gracefully.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.cfgFile, "config-file", "", "YAML config file.")
	v, err := config.BindFlags(root.PersistentFlags())
	if err != nil {
		// Only a programming error in the flag table gets here.
		panic(fmt.Errorf("error while binding flags: %w", err))
	}
	a.v = v

	root.AddCommand(
		newDemoCmd(a),
		newSquaresCmd(a),
		newBenchCmd(a),
		newConfigCmd(a),
	)

	// PersistentPostRunE is skipped when a command fails; release the log
	// file and metrics listener on that path too.
	for _, c := range root.Commands() {
		if c.RunE == nil {
			continue
		}
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			if err := run(cmd, args); err != nil {
				_ = a.teardown()
				return err
			}
			return nil
		}
	}
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) (err error) {
	// A failed setup skips both the command and PersistentPostRunE.
	defer func() {
		if err != nil {
			_ = a.teardown()
		}
	}()

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, closeLog, err := logger.New(cfg.Logging, a.errOut)
	if err != nil {
		return err
	}
	a.log, a.closeLog = log, closeLog

	if cfg.Metrics.Addr != "" {
		a.registry = newRegistry()
		srv, addr, err := startMetricsServer(cfg.Metrics.Addr, a.registry, log)
		if err != nil {
			return err
		}
		a.server = srv
		log.Info("serving metrics", zap.String("addr", addr.String()))
	}

	if cfg.Tracing.Enabled {
		tracer, shutdown, err := newTracer(a.errOut)
		if err != nil {
			return fmt.Errorf("error while setting up tracing: %w", err)
		}
		a.tracer = tracer
		a.shutdown = append(a.shutdown, shutdown)
	}

	log.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.Int("workers", cfg.WorkerCount()),
		zap.String("config_file", a.cfgFile))
	return nil
}

func (a *app) teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, fn := range a.shutdown {
		errs = append(errs, fn(ctx))
	}
	a.shutdown = nil
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
		a.server = nil
	}
	if a.closeLog != nil {
		errs = append(errs, a.closeLog())
		a.closeLog = nil
	}
	return errors.Join(errs...)
}

// poolOptions translates the loaded configuration into pool options. extra
// options are applied last and win over the configured ones.
func (a *app) poolOptions(extra ...pool.Option) []pool.Option {
	var reg prometheus.Registerer
	if a.registry != nil {
		reg = a.registry
	}

	opts := a.cfg.PoolOptions(a.log, reg)
	if a.tracer != nil {
		opts = append(opts, pool.WithTracer(a.tracer))
	}
	return append(opts, extra...)
}

func (a *app) newPool(extra ...pool.Option) (*pool.Pool, error) {
	return pool.New(a.cfg.WorkerCount(), a.poolOptions(extra...)...)
}
