package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Build config
	assert.Empty(t, cfg.Build.PolyfillDir)
	assert.Empty(t, cfg.Build.Aliases)
	assert.False(t, cfg.Build.Minify)

	// Sandbox config
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.True(t, cfg.Sandbox.EnableConsole)
	assert.False(t, cfg.Sandbox.InstallGlobals)
	assert.Equal(t, 1, cfg.Sandbox.Workers)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"NODESHIM_POLYFILL_DIR": "/tmp/polyfills",
		"NODESHIM_ALIASES":      "aliases.yaml",
		"NODESHIM_MINIFY":       "true",
		"NODESHIM_GLOBAL_NAME":  "app",
		"NODESHIM_TIMEOUT":      "250ms",
		"NODESHIM_CONSOLE":      "false",
		"NODESHIM_GLOBALS":      "true",
		"NODESHIM_WORKERS":      "3",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BuildConfig{
		PolyfillDir: "/tmp/polyfills",
		Aliases:     "aliases.yaml",
		Minify:      true,
		GlobalName:  "app",
	}, cfg.Build)
	assert.Equal(t, SandboxConfig{
		Timeout:        250 * time.Millisecond,
		EnableConsole:  false,
		InstallGlobals: true,
		Workers:        3,
	}, cfg.Sandbox)
	assert.Equal(t, LogConfig{Level: "debug", Development: true}, cfg.Logging)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("NODESHIM_MINIFY", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Overridden values
	assert.True(t, cfg.Build.Minify)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)
	assert.True(t, cfg.Sandbox.EnableConsole)
	assert.Equal(t, 1, cfg.Sandbox.Workers)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "duration", key: "NODESHIM_TIMEOUT", value: "soon"},
		{name: "bool", key: "NODESHIM_MINIFY", value: "maybe"},
		{name: "int", key: "NODESHIM_WORKERS", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault falls back instead of failing.
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}
