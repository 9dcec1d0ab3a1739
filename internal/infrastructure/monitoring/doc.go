/*
Package monitoring provides Prometheus metrics for the shim.

# Overview

Metrics cover three areas: module resolution decisions made by the esbuild
plugin, polyfill activity (hash creation, digests, random fills by source),
and sandbox executions. Insecure random fills are labelled secure="false" so
a dashboard can alert on the weak fallback being used.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	metrics.RecordResolution("redirected")
	metrics.RecordRandomFill("crypto/rand", true, 16)

	// Dump for a one-shot CLI run
	monitoring.WriteText(os.Stderr, reg)

All Record methods are safe on a nil *Metrics, so components can take an
optional collector without guarding every call.
*/
package monitoring
