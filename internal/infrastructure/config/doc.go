// Package config provides 12-factor configuration management for nodeshim.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags override environment variables.
//
// Configuration Sections:
//   - Build: polyfill directory, alias file, minification, global name
//   - Sandbox: execution timeout, console capture, global stub installation
//   - Logging: Log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Scripts time out after %s\n", cfg.Sandbox.Timeout)
//
// Environment Variables:
//   - NODESHIM_POLYFILL_DIR, NODESHIM_ALIASES, NODESHIM_MINIFY, NODESHIM_GLOBAL_NAME
//   - NODESHIM_TIMEOUT, NODESHIM_CONSOLE, NODESHIM_GLOBALS
//   - LOG_LEVEL, LOG_DEV
package config
