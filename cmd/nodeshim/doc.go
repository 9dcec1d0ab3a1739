// Package main is the nodeshim command line tool.
//
// nodeshim bundles browser-targeted JavaScript that imports Node built-ins
// (crypto, buffer, process) by redirecting those imports to polyfills, and
// can run the result inside a goja sandbox that serves the polyfills' host
// modules.
//
// Configuration:
//   - Environment variables (12-factor, see package config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Bundle to a file
//	nodeshim build -o dist/app.js -minify src/index.js
//
//	# Bundle and execute, printing console output and the completion value
//	nodeshim run -timeout 2s -metrics src/index.js
//
//	# List digest algorithms createHash accepts
//	nodeshim hashes
//
// Signals:
//   - SIGINT, SIGTERM: cancel the running build or script
package main
