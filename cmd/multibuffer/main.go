// Command multibuffer composes excerpts of many files into one view.
//
// Excerpts come from the [[excerpts]] entries of a TOML manifest and from
// command line arguments of the form path or path:first-last. The composed
// text is printed to stdout; with -watch it is printed again every time a
// watched file changes on disk.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/multibuffer/internal/config"
	"github.com/dshills/multibuffer/internal/export"
	"github.com/dshills/multibuffer/internal/logging"
	"github.com/dshills/multibuffer/internal/metrics"
	"github.com/dshills/multibuffer/internal/multibuffer"
	"github.com/dshills/multibuffer/internal/watcher"
	"github.com/dshills/multibuffer/internal/workspace"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "multibuffer.toml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	watch       bool
	headers     bool
	jsonOut     bool
	output      string
	logLevel    string
	metricsAddr string
	showVersion bool
	specs       []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("multibuffer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to the manifest (default "+defaultConfigPath+" if present)")
	fs.StringVar(&opts.configPath, "c", "", "Path to the manifest (shorthand)")
	fs.BoolVar(&opts.watch, "watch", false, "Recompose whenever a file changes")
	fs.BoolVar(&opts.headers, "headers", false, "Print a path:lines header before each block")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the excerpt list as JSON instead of the text")
	fs.StringVar(&opts.output, "o", "", "Write the output to a file; .gz, .zst and .lz4 are compressed")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "multibuffer - compose excerpts of many files into one view\n\n")
		fmt.Fprintf(stderr, "Usage: multibuffer [options] [path | path:first-last ...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.specs = fs.Args()
	return opts, nil
}

func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if opts.watch {
		cfg.Watch.Enabled = true
	}
	for _, spec := range opts.specs {
		ec, err := parseSpec(spec)
		if err != nil {
			return nil, err
		}
		cfg.Excerpts = append(cfg.Excerpts, ec)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Excerpts) == 0 {
		return nil, errors.New("nothing to compose: no excerpts in the manifest or on the command line")
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "multibuffer %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = stderr
	logger := logging.New(logCfg)

	wsOpts := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithMaxConcurrentOpens(cfg.Workspace.MaxConcurrentOpens),
	}
	mbOpts := []multibuffer.Option{multibuffer.WithLogger(logger)}
	if cfg.MultiBuffer.CheckInvariants != nil {
		mbOpts = append(mbOpts, multibuffer.WithInvariantChecks(*cfg.MultiBuffer.CheckInvariants))
	}
	if cfg.Metrics.Addr != "" {
		collector := metrics.New(cfg.Metrics.Runtime)
		wsOpts = append(wsOpts, workspace.WithMetrics(collector))
		mbOpts = append(mbOpts, multibuffer.WithMetrics(collector))

		srv := serveMetrics(cfg.Metrics.Addr, collector, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	ws, err := workspace.New(cfg.Workspace.Root, wsOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	mb := multibuffer.New(mbOpts...)

	if err := compose(ctx, ws, mb, cfg.Excerpts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	snap := mb.Snapshot()
	logger.Info("composed", "documents", mb.DocumentCount(), "excerpts", snap.ExcerptCount(), "bytes", snap.Len())
	if err := emit(snap, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if !cfg.Watch.Enabled {
		return 0
	}
	if err := watch(ctx, cfg, ws, mb, logger, func(snap *multibuffer.Snapshot) error {
		return emit(snap, opts, stdout)
	}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// emit writes snap as selected by the output flags.
func emit(snap *multibuffer.Snapshot, opts options, stdout io.Writer) error {
	var buf bytes.Buffer
	if opts.jsonOut {
		if err := export.WriteJSON(&buf, snap); err != nil {
			return err
		}
	} else {
		buf.WriteString(render(snap, opts.headers))
		buf.WriteByte('\n')
	}

	if opts.output != "" {
		return export.WriteFile(opts.output, buf.Bytes())
	}
	_, err := stdout.Write(buf.Bytes())
	return err
}

// watch emits the composition after file changes until ctx is done, at most
// once per second after an initial burst.
func watch(ctx context.Context, cfg *config.Config, ws *workspace.Workspace, mb *multibuffer.MultiBuffer, logger *slog.Logger, out func(*multibuffer.Snapshot) error) error {
	wt, err := watcher.New(
		watcher.WithBufferSize(cfg.Watch.BufferSize),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond),
		watcher.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer wt.Close()

	limiter := rate.NewLimiter(rate.Every(time.Second), 3)
	err = ws.Watch(ctx, wt, func(c workspace.Change) {
		logger.Info("document changed", "doc", c.Doc.ID(), "change", c.Kind, "edits", c.Edits)
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := out(mb.Snapshot()); err != nil {
			logger.Error("failed to write composition", "error", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveMetrics starts the Prometheus endpoint in the background.
func serveMetrics(addr string, c *metrics.Collector, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
