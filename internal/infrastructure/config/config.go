package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Build   BuildConfig
	Sandbox SandboxConfig
	Logging LogConfig
}

// BuildConfig holds bundling configuration.
type BuildConfig struct {
	// PolyfillDir is where polyfill files are written. Empty means a temp dir.
	PolyfillDir string `envconfig:"NODESHIM_POLYFILL_DIR"`
	// Aliases is an optional YAML or TOML file of extra reserved specifiers.
	Aliases    string `envconfig:"NODESHIM_ALIASES"`
	Minify     bool   `envconfig:"NODESHIM_MINIFY" default:"false"`
	GlobalName string `envconfig:"NODESHIM_GLOBAL_NAME"`
}

// SandboxConfig holds goja runtime configuration.
type SandboxConfig struct {
	Timeout        time.Duration `envconfig:"NODESHIM_TIMEOUT" default:"5s"`
	EnableConsole  bool          `envconfig:"NODESHIM_CONSOLE" default:"true"`
	InstallGlobals bool          `envconfig:"NODESHIM_GLOBALS" default:"false"`
	// Workers bounds how many bundles run at once, one pooled runtime each.
	Workers int `envconfig:"NODESHIM_WORKERS" default:"1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Timeout:       5 * time.Second,
			EnableConsole: true,
			Workers:       1,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
