/*
Package sandbox runs bundled JavaScript inside goja with the host modules the
shim polyfills bridge to.

# Overview

goja has no Node built-ins. Bundles produced with the shim plugin import
them through host modules, which each Runtime registers on a goja_nodejs
require registry:

  - nodeshim:crypto: createHash, getHashes, randomBytes, randomFillSync,
    getRandomValues, randomUUID
  - nodeshim:buffer: goja_nodejs Buffer
  - nodeshim:process: goja_nodejs process
  - nodeshim:globals: the window stub

# Random sources

Each Runtime probes, in order: an embedder-provided window.crypto.getRandomValues
on the VM's global object, Go's crypto/rand, then an insecure math/rand
fallback. See package random.

Only a global window is probed. The window that globals.js injects into a
bundle is module-local and has no crypto, so embedders must define a global
window.crypto on the VM for that source to be used.

# Limits

  - Execution timeout (interrupts the VM)
  - Context cancellation
  - Call stack depth
  - Timers are no-ops

# Usage Example

	rt, err := sandbox.New(sandbox.DefaultConfig(), sandbox.WithLogger(logger))
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.Execute(ctx, string(bundle.Code))
	if err != nil {
		logger.Error("Execution failed", zap.Error(err))
	}

A Runtime serializes Execute calls. Use a Pool to run bundles from several
goroutines; nodeshim run executes its entry points through one.
*/
package sandbox
