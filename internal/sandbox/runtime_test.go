package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/nodeshim/internal/globals"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/shims/bundle"
	"github.com/GriffinCanCode/nodeshim/internal/shims/polyfills"
)

const sha256ABC = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt, err := New(DefaultConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func run(t *testing.T, rt *Runtime, script string) interface{} {
	t.Helper()
	result, err := rt.Execute(context.Background(), script)
	require.NoError(t, err)
	return result.Value
}

func TestRuntimeExecution(t *testing.T) {
	rt := newRuntime(t)

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{name: "simple return", script: "42", want: int64(42)},
		{name: "console log", script: "console.log('hello'); 'test'", want: "test"},
		{name: "math operations", script: "Math.sqrt(16)", want: int64(4)},
		{name: "string operations", script: "'hello'.toUpperCase()", want: "HELLO"},
		{name: "undefined", script: "undefined", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, rt, tt.script))
		})
	}
}

func TestRuntimeTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 100 * time.Millisecond

	rt, err := New(config)
	require.NoError(t, err)
	defer rt.Close()

	result, err := rt.Execute(context.Background(), `while (true) {}`)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Error(t, result.Error)

	// The interrupt is cleared for the next run.
	assert.Equal(t, int64(1), run(t, rt, "1"))
}

func TestRuntimeContextCancel(t *testing.T) {
	rt := newRuntime(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rt.Execute(ctx, `while (true) {}`)
	assert.Error(t, err)
}

func TestRuntimeConsoleCapture(t *testing.T) {
	rt := newRuntime(t)

	result, err := rt.Execute(context.Background(), `
		console.log('info message');
		console.warn('warning message', 2);
		console.error('error message');
		'done'
	`)
	require.NoError(t, err)
	require.Len(t, result.Console, 3)

	levels := []string{"log", "warn", "error"}
	for i, entry := range result.Console {
		assert.Equal(t, levels[i], entry.Level)
	}
	assert.Equal(t, "warning message 2", result.Console[1].Message)
}

func TestRuntimeClosed(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	_, err = rt.Execute(context.Background(), "1")
	assert.Error(t, err)
}

func TestRuntimeReset(t *testing.T) {
	rt := newRuntime(t)

	run(t, rt, "var leaked = 1")
	require.NoError(t, rt.Reset())
	assert.Equal(t, "undefined", run(t, rt, "typeof leaked"))
}

func TestUnknownModuleIsRejected(t *testing.T) {
	rt := newRuntime(t)

	_, err := rt.Execute(context.Background(), `require("fs")`)
	assert.Error(t, err)
}

func TestCreateHash(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `require("nodeshim:crypto").createHash("sha256").update("abc").digest("hex")`)
	assert.Equal(t, sha256ABC, got)
}

func TestCreateHashUnknownAlgorithm(t *testing.T) {
	rt := newRuntime(t)

	_, err := rt.Execute(context.Background(), `require("nodeshim:crypto").createHash("nope")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest method not supported")
}

func TestHashUpdateShapesAgree(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const c = require("nodeshim:crypto");
		const { Buffer } = require("nodeshim:buffer");
		const hex = (data, enc) => c.createHash("sha256").update(data, enc).digest("hex");
		[
			hex("abc"),
			hex(Buffer.from("abc")),
			hex(new Uint8Array([97, 98, 99])),
			hex(new DataView(new Uint8Array([0, 97, 98, 99]).buffer, 1)),
			hex([97, 98, 99]),
			hex("616263", "hex"),
			hex("YWJj", "base64"),
		]
	`)
	for _, digest := range got.([]interface{}) {
		assert.Equal(t, sha256ABC, digest)
	}
}

func TestHashUpdateChains(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const h = require("nodeshim:crypto").createHash("sha256");
		h.update("a").update("b") === h && h.update("c").digest("hex")
	`)
	assert.Equal(t, sha256ABC, got)
}

func TestHashUpdateRequiresStringWithEncoding(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const { Buffer } = require("nodeshim:buffer");
		const h = require("nodeshim:crypto").createHash("sha256");
		(() => {
			try {
				h.update(Buffer.from("abc"), "utf8");
				return "no error";
			} catch (e) {
				return [e instanceof TypeError, e.message];
			}
		})()
	`)
	assert.Equal(t, []interface{}{true, "Input data must be a string when inputEncoding is specified"}, got)
}

func TestDigestEncodings(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const h = require("nodeshim:crypto").createHash("sha256").update("abc");
		const raw = h.digest();
		[raw instanceof Uint8Array, raw.length, raw[0], h.digest("base64"), h.digest("hex")]
	`)
	assert.Equal(t, []interface{}{
		true, int64(32), int64(0xba),
		"ungWv48Bz+pBQUDeXa4iI7ADYaOWF3qctBD/YfIAFa0=",
		sha256ABC,
	}, got)
}

func TestDigestUnknownEncoding(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		(() => {
			try {
				require("nodeshim:crypto").createHash("sha256").digest("rot13");
				return "no error";
			} catch (e) {
				return [e instanceof TypeError, e.code];
			}
		})()
	`)
	assert.Equal(t, []interface{}{true, "ERR_UNKNOWN_ENCODING"}, got)
}

func TestHashCopySharesState(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const a = require("nodeshim:crypto").createHash("sha256");
		const b = a.copy();
		b.update("abc");
		a.digest("hex")
	`)
	assert.Equal(t, sha256ABC, got)
}

func TestGetHashes(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `require("nodeshim:crypto").getHashes()`)
	assert.Contains(t, got, "sha256")
	assert.Contains(t, got, "md5")
}

func TestRandomBytes(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const c = require("nodeshim:crypto");
		let called = 0, ok = false, size = -1;
		const ret = c.randomBytes(8, (err, buf) => {
			called++;
			ok = err === null;
			size = buf.length;
		});
		[called, ok, size, ret === undefined, c.randomBytes(16).length]
	`)
	assert.Equal(t, []interface{}{int64(1), true, int64(8), true, int64(16)}, got)
}

func TestRandomBytesSizeOutOfRange(t *testing.T) {
	rt := newRuntime(t)

	for _, size := range []string{"-1", "2 ** 31", "2 ** 50"} {
		t.Run(size, func(t *testing.T) {
			var got interface{}
			require.NotPanics(t, func() {
				got = run(t, rt, `
					(() => {
						try {
							require("nodeshim:crypto").randomBytes(`+size+`);
							return "no error";
						} catch (e) {
							return [e instanceof RangeError, e.code];
						}
					})()
				`)
			})
			assert.Equal(t, []interface{}{true, "ERR_OUT_OF_RANGE"}, got)
		})
	}
}

func TestRandomBytesCallbackSizeOutOfRange(t *testing.T) {
	rt := newRuntime(t)

	var got interface{}
	require.NotPanics(t, func() {
		got = run(t, rt, `
			let result;
			require("nodeshim:crypto").randomBytes(2 ** 50, (err, buf) => {
				result = [err instanceof RangeError, err.code, buf === undefined];
			});
			result
		`)
	})
	assert.Equal(t, []interface{}{true, "ERR_OUT_OF_RANGE", true}, got)
}

func TestRandomFillSyncUsesWindowCrypto(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		window = { crypto: { getRandomValues: (a) => { a.fill(7); return a; } } };
		const u = new Uint8Array(8);
		const out = require("nodeshim:crypto").randomFillSync(u, 2, 4);
		[out !== u, out instanceof Uint8Array, out.buffer === u.buffer, out.length, Array.from(u).join(",")]
	`)
	assert.Equal(t, []interface{}{true, true, true, int64(8), "0,0,7,7,7,7,0,0"}, got)
}

func TestRandomFillSyncViewKind(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const u = new Uint32Array(new ArrayBuffer(16), 4, 2);
		const out = require("nodeshim:crypto").randomFillSync(u);
		[out instanceof Uint32Array, out.byteOffset, out.length]
	`)
	assert.Equal(t, []interface{}{true, int64(4), int64(2)}, got)
}

func TestRandomFillSyncFlatReturnsSame(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const c = require("nodeshim:crypto");
		const { Buffer } = require("nodeshim:buffer");
		const b = Buffer.alloc(4);
		const ab = new ArrayBuffer(4);
		[c.randomFillSync(b) === b, c.randomFillSync(ab) === ab]
	`)
	assert.Equal(t, []interface{}{true, true}, got)
}

func TestRandomFillSyncRange(t *testing.T) {
	rt := newRuntime(t)

	tests := []struct {
		name string
		call string
	}{
		{name: "offset past end", call: "randomFillSync(new Uint8Array(4), 5)"},
		{name: "negative size", call: "randomFillSync(new Uint8Array(4), 0, -1)"},
		{name: "size plus offset", call: "randomFillSync(new Uint8Array(4), 2, 3)"},
		{name: "huge size", call: "randomFillSync(new Uint8Array(4), 1, Number.MAX_SAFE_INTEGER)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, rt, `
				(() => {
					try {
						require("nodeshim:crypto").`+tt.call+`;
						return "no error";
					} catch (e) {
						return [e instanceof RangeError, e.code];
					}
				})()
			`)
			assert.Equal(t, []interface{}{true, "ERR_OUT_OF_RANGE"}, got)
		})
	}
}

func TestRandomFillSyncRejectsNonBuffer(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		(() => {
			try {
				require("nodeshim:crypto").randomFillSync("abc");
				return "no error";
			} catch (e) {
				return e instanceof TypeError;
			}
		})()
	`)
	assert.Equal(t, true, got)
}

func TestWindowCryptoRoutingBackFallsThrough(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const c = require("nodeshim:crypto");
		window = { crypto: c };
		c.randomBytes(4).length
	`)
	assert.Equal(t, int64(4), got)
}

func TestThrowingWindowCryptoFallsThrough(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		let calls = 0;
		window = { crypto: { getRandomValues: () => { calls++; throw new Error("no entropy"); } } };
		const c = require("nodeshim:crypto");
		for (let i = 0; i < 10; i++) {
			c.randomBytes(4);
		}
		calls
	`)
	// The breaker stops probing after three straight failures.
	assert.Equal(t, int64(3), got)
}

func TestGetRandomValues(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const c = require("nodeshim:crypto");
		const u = new Uint16Array(4);
		const same = c.getRandomValues(u) === u;
		let quota = false;
		try {
			c.webcrypto.getRandomValues(new Uint8Array(65537));
		} catch (e) {
			quota = e.name === "QuotaExceededError";
		}
		[same, quota]
	`)
	assert.Equal(t, []interface{}{true, true}, got)
}

func TestRandomUUID(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `require("nodeshim:crypto").randomUUID()`)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`), got)
}

func TestGlobalsModule(t *testing.T) {
	rt := newRuntime(t)

	got := run(t, rt, `
		const { window } = require("nodeshim:globals");
		[window.location.href, String(window.location), window.navigator.userAgent]
	`)
	assert.Equal(t, []interface{}{globals.LocalAddress, globals.LocalAddress, globals.UserAgent}, got)
}

func TestInstallGlobals(t *testing.T) {
	config := DefaultConfig()
	config.InstallGlobals = true

	rt, err := New(config)
	require.NoError(t, err)
	defer rt.Close()

	got := run(t, rt, `[global === globalThis, typeof Buffer, typeof process, window.location.origin]`)
	assert.Equal(t, []interface{}{true, "function", "object", "http://localhost"}, got)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	rt := newRuntime(t, WithMetrics(metrics))

	run(t, rt, `require("nodeshim:crypto").createHash("md5").update("x").digest("hex")`)
	_, _ = rt.Execute(context.Background(), `throw new Error("boom")`)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HashesCreated.WithLabelValues("md5")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Digests.WithLabelValues("hex")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues("error")))
}

const app = `
import { createHash, randomBytes } from "node:crypto";
import { Buffer as B } from "buffer";

export const digest = createHash("sha256").update(B.from("abc")).digest("hex");
export const size = randomBytes(12).length;
export const ua = window.navigator.userAgent;
export const sameBuffer = B === Buffer;
`

func TestBundleRunsInSandbox(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(entry, []byte(app), 0o644))

	set, err := polyfills.Materialize(t.TempDir())
	require.NoError(t, err)

	res, err := bundle.Build(context.Background(), bundle.Options{
		EntryPoint: entry,
		Polyfills:  set,
		GlobalName: "app",
	})
	require.NoError(t, err)

	rt := newRuntime(t)
	got := run(t, rt, string(res.Code)+"\n[app.digest, app.size, app.ua, app.sameBuffer]")
	assert.Equal(t, []interface{}{sha256ABC, int64(12), globals.UserAgent, true}, got)
}

func TestPoolAcquireRelease(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 2)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()

	rt, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, PoolStats{Size: 2, Available: 1, InUse: 1}, pool.Stats())

	result, err := rt.Execute(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Value)

	require.NoError(t, pool.Release(rt))
	assert.Equal(t, 2, pool.Stats().Available)
}

func TestPoolExecute(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 2)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := pool.Execute(ctx, `require("nodeshim:crypto").createHash("sha256").update("abc").digest("hex")`)
		require.NoError(t, err)
		assert.Equal(t, sha256ABC, result.Value)
	}
}

func TestPoolAcquireTimeout(t *testing.T) {
	config := DefaultConfig()
	config.AcquireTimeout = 20 * time.Millisecond

	pool, err := NewPool(config, 1)
	require.NoError(t, err)
	defer pool.Close()

	rt, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(rt)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPoolClosed(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 1)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.True(t, pool.Stats().Closed)
}
