package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/shims/polyfills"
)

const app = `
import { createHash } from "node:crypto";
import { Buffer as B } from "buffer";

export const digest = createHash("sha256").update("abc").digest("hex");
export const ua = window.navigator.userAgent;
export const isBuffer = typeof B.from === "function" && B === Buffer;
`

func materialize(t *testing.T) *polyfills.Set {
	t.Helper()
	set, err := polyfills.Materialize(t.TempDir())
	require.NoError(t, err)
	return set
}

func TestBuildEntryPoint(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte(app), 0o644))

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	res, err := Build(context.Background(), Options{
		EntryPoint: entry,
		Polyfills:  materialize(t),
		GlobalName: "app",
		Metrics:    metrics,
	})
	require.NoError(t, err)

	code := string(res.Code)
	assert.NotEmpty(t, res.BuildID)
	assert.Contains(t, code, `"nodeshim:crypto"`)
	assert.Contains(t, code, `"nodeshim:globals"`)
	assert.Contains(t, code, `"nodeshim:buffer"`)
	assert.Contains(t, code, "var app")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Builds.WithLabelValues("success")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.Resolutions.WithLabelValues("redirected")), 2.0)
}

func TestBuildStdin(t *testing.T) {
	res, err := Build(context.Background(), Options{
		Stdin: &api.StdinOptions{
			Contents:   `import process from "process"; console.log(process.env.HOME);`,
			ResolveDir: t.TempDir(),
			Sourcefile: "stdin.js",
		},
		Polyfills: materialize(t),
		Minify:    true,
	})
	require.NoError(t, err)
	assert.Contains(t, string(res.Code), "nodeshim:process")
}

func TestBuildErrors(t *testing.T) {
	set := materialize(t)

	_, err := Build(context.Background(), Options{
		Stdin: &api.StdinOptions{
			Contents:   `import "./missing.js";`,
			ResolveDir: t.TempDir(),
		},
		Polyfills: set,
	})
	require.ErrorIs(t, err, ErrBuildFailed)
	assert.Contains(t, err.Error(), "missing.js")

	_, err = Build(context.Background(), Options{Polyfills: set})
	assert.Error(t, err)

	_, err = Build(context.Background(), Options{EntryPoint: "index.js"})
	assert.Error(t, err)
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, Options{
		Stdin:     &api.StdinOptions{Contents: "1"},
		Polyfills: materialize(t),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
