package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/nodeshim/internal/crypto/hashing"
	"github.com/GriffinCanCode/nodeshim/internal/globals"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/config"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/logging"
	"github.com/GriffinCanCode/nodeshim/internal/sandbox"
	"github.com/GriffinCanCode/nodeshim/internal/shims/bundle"
	"github.com/GriffinCanCode/nodeshim/internal/shims/polyfills"
	"github.com/GriffinCanCode/nodeshim/internal/shims/specifier"
)

const usage = `usage: nodeshim <command> [flags] <entry>...

commands:
  build    bundle an entry point with the Node built-in shims
  run      bundle entry points and execute them in pooled sandboxes
  hashes   list supported digest algorithms
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "build":
		err = buildCmd(ctx, args[1:], stdout, stderr)
	case "run":
		err = runCmd(ctx, args[1:], stdout, stderr)
	case "hashes":
		fmt.Fprintln(stdout, strings.Join(hashing.Algorithms(), "\n"))
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "nodeshim: %v\n", err)
		return 1
	}
	return 0
}

// options are the flags shared by build and run, seeded from the environment.
type options struct {
	cfg         *config.Config
	output      string
	showMetrics bool
}

// parseFlags returns the entry points named after the flags. build takes
// exactly one; run takes one or more.
func parseFlags(name string, args []string, stderr io.Writer, withSandbox bool) (*options, []string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	opts := &options{cfg: cfg}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Build.PolyfillDir, "polyfills", cfg.Build.PolyfillDir, "Directory polyfill files are written to (default: temp dir)")
	fs.StringVar(&cfg.Build.Aliases, "aliases", cfg.Build.Aliases, "YAML or TOML file of extra reserved specifiers")
	fs.BoolVar(&cfg.Build.Minify, "minify", cfg.Build.Minify, "Minify the bundle")
	fs.StringVar(&cfg.Build.GlobalName, "global-name", cfg.Build.GlobalName, "Expose the entry point's exports under this global")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging (colored console output)")
	fs.BoolVar(&opts.showMetrics, "metrics", false, "Print metrics to stderr on exit")
	if withSandbox {
		fs.DurationVar(&cfg.Sandbox.Timeout, "timeout", cfg.Sandbox.Timeout, "Script execution timeout")
		fs.BoolVar(&cfg.Sandbox.EnableConsole, "console", cfg.Sandbox.EnableConsole, "Capture console output")
		fs.BoolVar(&cfg.Sandbox.InstallGlobals, "globals", cfg.Sandbox.InstallGlobals, "Define window, global, Buffer and process before running")
		fs.IntVar(&cfg.Sandbox.Workers, "workers", cfg.Sandbox.Workers, "Number of entry points executed concurrently")
	} else {
		fs.StringVar(&opts.output, "o", "", "Output file (default: stdout)")
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	switch {
	case withSandbox && fs.NArg() == 0:
		fs.Usage()
		return nil, nil, fmt.Errorf("%s: expected at least one entry point", name)
	case !withSandbox && fs.NArg() != 1:
		fs.Usage()
		return nil, nil, fmt.Errorf("%s: expected exactly one entry point", name)
	}
	if cfg.Sandbox.Workers < 1 {
		return nil, nil, fmt.Errorf("%s: workers must be at least 1, got %d", name, cfg.Sandbox.Workers)
	}
	return opts, fs.Args(), nil
}

// env holds what a command needs to build.
type env struct {
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	table    *specifier.Table
	set      *polyfills.Set
}

func setup(opts *options) (*env, error) {
	logger, err := logging.New(logging.Config{
		Level:       opts.cfg.Logging.Level,
		Development: opts.cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	table := specifier.Default()
	if opts.cfg.Build.Aliases != "" {
		extra, err := specifier.LoadAliases(opts.cfg.Build.Aliases)
		if err != nil {
			return nil, err
		}
		table = table.With(extra)
		logger.Debug("Loaded specifier aliases",
			zap.String("path", opts.cfg.Build.Aliases),
			zap.Int("count", len(extra)))
	}

	set, err := polyfills.Materialize(opts.cfg.Build.PolyfillDir)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	return &env{
		logger:   logger,
		registry: registry,
		metrics:  monitoring.NewMetrics(registry),
		table:    table,
		set:      set,
	}, nil
}

func (e *env) build(ctx context.Context, opts *options, entry string) (*bundle.Result, error) {
	res, err := bundle.Build(ctx, bundle.Options{
		EntryPoint: entry,
		Table:      e.table,
		Polyfills:  e.set,
		Minify:     opts.cfg.Build.Minify,
		GlobalName: opts.cfg.Build.GlobalName,
		Logger:     e.logger.Logger,
		Metrics:    e.metrics,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		e.logger.ForBuild(res.BuildID).Warn("Build warning", zap.String("message", w))
	}
	return res, nil
}

func (e *env) finish(opts *options, stderr io.Writer) {
	if opts.showMetrics {
		if err := monitoring.WriteText(stderr, e.registry); err != nil {
			e.logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

func buildCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, entries, err := parseFlags("build", args, stderr, false)
	if err != nil {
		return err
	}
	entry := entries[0]
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.finish(opts, stderr)

	res, err := e.build(ctx, opts, entry)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err = stdout.Write(res.Code)
		return err
	}
	if err := os.WriteFile(opts.output, res.Code, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	e.logger.ForBuild(res.BuildID).Info("Bundle written", zap.String("path", opts.output))
	return nil
}

func runCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, entries, err := parseFlags("run", args, stderr, true)
	if err != nil {
		return err
	}
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.finish(opts, stderr)

	bundles := make([]*bundle.Result, len(entries))
	for i, entry := range entries {
		res, err := e.build(ctx, opts, entry)
		if err != nil {
			return fmt.Errorf("%s: %w", entry, err)
		}
		bundles[i] = res
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = opts.cfg.Sandbox.Timeout
	sandboxCfg.EnableConsole = opts.cfg.Sandbox.EnableConsole
	sandboxCfg.InstallGlobals = opts.cfg.Sandbox.InstallGlobals
	sandboxCfg.Window = globals.Default()

	workers := min(opts.cfg.Sandbox.Workers, len(bundles))
	pool, err := sandbox.NewPool(sandboxCfg, workers,
		sandbox.WithLogger(e.logger.Logger),
		sandbox.WithMetrics(e.metrics))
	if err != nil {
		return err
	}
	defer pool.Close()

	// The group limit matches the pool size, so Acquire never waits.
	results := make([]*sandbox.Result, len(bundles))
	failed := make([]bool, len(bundles))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, res := range bundles {
		g.Go(func() error {
			result, err := pool.Execute(ctx, string(res.Code))
			results[i] = result
			if err != nil {
				failed[i] = true
				if len(entries) > 1 {
					return fmt.Errorf("%s: script failed: %w", entries[i], err)
				}
				return fmt.Errorf("script failed: %w", err)
			}
			return nil
		})
	}
	execErr := g.Wait()

	for i, result := range results {
		if len(entries) > 1 {
			fmt.Fprintf(stdout, "# %s\n", entries[i])
		}
		if result == nil {
			continue
		}
		for _, line := range result.Console {
			fmt.Fprintf(stdout, "[%s] %s\n", line.Level, line.Message)
		}
		if !failed[i] && result.Value != nil {
			fmt.Fprintf(stdout, "%v\n", result.Value)
		}
		e.logger.ForBuild(bundles[i].BuildID).Debug("Script finished",
			zap.String("entry", entries[i]),
			zap.Bool("failed", failed[i]),
			zap.Duration("duration", result.Duration.Round(time.Microsecond)))
	}
	e.logger.Debug("Pool drained", zap.Any("stats", pool.Stats()))
	return execErr
}
