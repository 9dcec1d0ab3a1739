// Package bundle builds a single entry point with esbuild and the shim
// plugin, producing a script the goja sandbox can run.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/shims/plugin"
	"github.com/GriffinCanCode/nodeshim/internal/shims/polyfills"
	"github.com/GriffinCanCode/nodeshim/internal/shims/specifier"
)

// ErrBuildFailed wraps every esbuild error report.
var ErrBuildFailed = errors.New("build failed")

// Options configures one build.
type Options struct {
	// EntryPoint is the file to bundle. Ignored when Stdin is set.
	EntryPoint string
	// Stdin bundles source text instead of a file.
	Stdin *api.StdinOptions
	// Table defaults to specifier.Default().
	Table *specifier.Table
	// Polyfills must be materialized before building.
	Polyfills *polyfills.Set
	// Inject lists extra modules to inject before the environment stub.
	Inject []string
	Minify bool
	// GlobalName exposes the entry point's exports as a global.
	GlobalName string

	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Result is the output of a successful build.
type Result struct {
	BuildID  string
	Code     []byte
	Warnings []string
	Duration time.Duration
}

// Build bundles opts.EntryPoint. Cancelling ctx aborts the build.
func Build(ctx context.Context, opts Options) (*Result, error) {
	if opts.Polyfills == nil {
		return nil, errors.New("bundle: polyfills not materialized")
	}
	if opts.EntryPoint == "" && opts.Stdin == nil {
		return nil, errors.New("bundle: no entry point")
	}
	if opts.Table == nil {
		opts.Table = specifier.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	buildID := uuid.NewString()
	logger = logger.With(zap.String("build_id", buildID))
	start := time.Now()

	buildOpts := api.BuildOptions{
		Bundle:            true,
		Write:             false,
		Platform:          api.PlatformBrowser,
		Format:            api.FormatIIFE,
		Target:            api.ES2017,
		GlobalName:        opts.GlobalName,
		Inject:            append([]string(nil), opts.Inject...),
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		LogLevel:          api.LogLevelSilent,
		Stdin:             opts.Stdin,
		Plugins: []api.Plugin{
			plugin.New(opts.Table, opts.Polyfills,
				plugin.WithLogger(logger),
				plugin.WithMetrics(opts.Metrics)),
		},
	}
	if opts.Stdin == nil {
		buildOpts.EntryPoints = []string{opts.EntryPoint}
	}

	result, err := run(ctx, buildOpts)
	duration := time.Since(start)
	if err != nil {
		opts.Metrics.RecordBuild("error", duration)
		logger.Error("Build failed", zap.Error(err), zap.Duration("duration", duration))
		return nil, err
	}
	if len(result.OutputFiles) == 0 {
		opts.Metrics.RecordBuild("error", duration)
		return nil, fmt.Errorf("%w: no output produced", ErrBuildFailed)
	}

	opts.Metrics.RecordBuild("success", duration)
	logger.Info("Build finished",
		zap.Int("bytes", len(result.OutputFiles[0].Contents)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", duration))

	return &Result{
		BuildID:  buildID,
		Code:     result.OutputFiles[0].Contents,
		Warnings: formatMessages(result.Warnings),
		Duration: duration,
	}, nil
}

// run drives an esbuild context so ctx cancellation can stop the build.
func run(ctx context.Context, opts api.BuildOptions) (api.BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return api.BuildResult{}, err
	}

	esbuildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return api.BuildResult{}, fmt.Errorf("%w: %s", ErrBuildFailed, strings.Join(formatMessages(ctxErr.Errors), "; "))
	}
	defer esbuildCtx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			esbuildCtx.Cancel()
		case <-done:
		}
	}()

	result := esbuildCtx.Rebuild()
	if err := ctx.Err(); err != nil {
		return api.BuildResult{}, err
	}
	if len(result.Errors) > 0 {
		return result, fmt.Errorf("%w: %s", ErrBuildFailed, strings.Join(formatMessages(result.Errors), "; "))
	}
	return result, nil
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		out = append(out, m.Text)
	}
	return out
}
