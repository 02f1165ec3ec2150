package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hedisam/pipeline/chans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hedisam/brunosync/lib/ipc"
	"github.com/hedisam/brunosync/lib/wal"
	asyncapi "github.com/hedisam/brunosync/server/api/async"
	restapi "github.com/hedisam/brunosync/server/api/rest"
	"github.com/hedisam/brunosync/server/internal/auth"
	"github.com/hedisam/brunosync/server/internal/convert"
	"github.com/hedisam/brunosync/server/internal/diagnostics"
	"github.com/hedisam/brunosync/server/internal/emitter"
	"github.com/hedisam/brunosync/server/internal/interceptors"
	"github.com/hedisam/brunosync/server/internal/lastopened"
	"github.com/hedisam/brunosync/server/internal/sampler"
	"github.com/hedisam/brunosync/server/internal/watch"
	"github.com/hedisam/brunosync/server/internal/workspace"
)

const (
	appName = "brunosyncd"

	emitterSize = 256
)

// Options defines a set of config options.
type Options struct {
	ConfigFile     string
	DataDir        string
	Socket         string
	Journal        string
	Workers        uint
	SampleInterval time.Duration
	DebounceWindow time.Duration
	Verbose        bool
	Trace          bool
}

func bindFlags(flags *pflag.FlagSet, opts *Options) {
	defaults := DefaultConfig()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&opts.DataDir, "data-dir", defaults.DataDir, "Directory holding the socket, session key, journal and preferences")
	flags.StringVar(&opts.Socket, "socket", "", "Unix socket to listen on (default <data-dir>/brunosync.sock)")
	flags.StringVar(&opts.Journal, "journal", "", "Diagnostics journal file (default <data-dir>/journal.jsonl)")
	flags.UintVar(&opts.Workers, "workers", defaults.Workers, "Number of conversion workers")
	flags.DurationVar(&opts.SampleInterval, "sample-interval", defaults.SampleInterval, "How often to sample process resources")
	flags.DurationVar(&opts.DebounceWindow, "debounce-window", defaults.DebounceWindow, "How long a workspace stays loading after work stops")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&opts.Trace, "trace", false, "Print traces to stdout")
}

func main() {
	var opts Options
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Keep collection files and their in-memory model in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(opts.ConfigFile)
			if err != nil {
				return err
			}
			cfg.Override(cmd.Flags(), &opts)
			if err = cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return run(cmd.Context(), cfg, &opts)
		},
	}
	bindFlags(cmd.Flags(), &opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, opts *Options) error {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.AddHook(&interceptors.TraceHook{})

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	shutdown := mustInitTracer(logger, appName, !opts.Trace)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracer")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	journal, err := wal.New(logger, cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	storeMetrics, err := diagnostics.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register diagnostics metrics: %w", err)
	}
	store := diagnostics.NewStore(cfg.Capacities, diagnostics.WithMetrics(storeMetrics))
	dispatcher := diagnostics.NewDispatcher(logger, store, diagnostics.WithJournal(journal))

	var errorChans []<-chan error

	convertMetrics, err := convert.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register conversion metrics: %w", err)
	}
	worker := convert.New(logger, cfg.Workers, convert.WithMetrics(convertMetrics))
	defer worker.Close()
	errorChans = append(errorChans, runAsync(func() error {
		return worker.Run(ctx)
	}))

	e := emitter.New(emitterSize)
	defer e.Close()
	relay := asyncapi.NewRelay(logger, journal)
	go relay.Run(ctx, e.Chan())

	registry := watch.NewRegistry(logger, worker, dispatcher, watch.WithEmitter(e))
	defer registry.StopAll()
	loader := workspace.NewLoader(logger, registry,
		workspace.WithEmitter(e),
		workspace.WithDebounceWindow(cfg.DebounceWindow),
	)
	defer loader.Unmount()

	prefs, err := lastopened.NewFileStorage(ipc.PreferencesPath(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	service := workspace.NewService(logger, lastopened.New(prefs), loader, workspace.StatPicker{})

	resourceSampler := sampler.New(logger, sampler.ProcSource{}, store, cfg.SampleInterval)
	go resourceSampler.Run(ctx)

	authService := auth.New()
	if err = authService.WriteKeyFile(ipc.KeyPath(cfg.DataDir)); err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(ipc.KeyPath(cfg.DataDir))
	}()

	mux := http.NewServeMux()
	restapi.NewWorkspaceServer(logger, service).Register(mux)
	restapi.NewConvertServer(logger, worker).Register(mux)
	restapi.NewCollectionServer(logger, registry).Register(mux)
	restapi.NewDiagnosticsServer(logger, store).Register(mux)
	// Expose the registered metrics via HTTP
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var handler http.Handler = otelhttp.NewHandler(mux, appName)
	handler, err = interceptors.InterceptWithDefaultMetrics(reg, handler)
	if err != nil {
		return err
	}
	handler = authService.Guard(logger, handler)

	listener, err := listenUnix(cfg.Socket)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	errorChans = append(errorChans, runAsync(func() error {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Failed to shutdown server")
		}
	}()

	logger.WithFields(logrus.Fields{
		"socket":   cfg.Socket,
		"data_dir": cfg.DataDir,
		"workers":  cfg.Workers,
	}).Info("Starting daemon")

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		return nil
	case asyncErr := <-chans.FanIn(ctx, errorChans...):
		if asyncErr != nil {
			logger.WithError(asyncErr).Error("Received async error, shutting down...")
		}
		return asyncErr
	}
}

// runAsync runs f in the background and reports its error, if any, on the returned channel.
func runAsync(f func() error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := f(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	// a socket left behind by a daemon that did not shut down cleanly
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return l, nil
}

func mustInitTracer(logger *logrus.Logger, appName string, discard bool) func(context.Context) error {
	exp, err := interceptors.NewSTDOUTExporter(discard)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize STDOUT trace exporter")
	}

	tp, err := interceptors.RegisterTraceProvider(appName, exp)
	if err != nil {
		logger.WithError(err).Fatal("Failed to register trace provider")
	}

	return tp.Shutdown
}
