package sandbox

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/buffer"
	"github.com/dop251/goja_nodejs/require"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/nodeshim/internal/crypto/hashing"
	"github.com/GriffinCanCode/nodeshim/internal/crypto/random"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/shared/bytebuf"
)

// maxRandomValues is the getRandomValues quota in bytes.
const maxRandomValues = 65536

// cryptoBinding exposes the hash engine and random adapter to one VM.
type cryptoBinding struct {
	vm         *goja.Runtime
	random     *random.Adapter
	metrics    *monitoring.Metrics
	bufferCtor *goja.Object
}

// cryptoModule is the require.ModuleLoader for nodeshim:crypto.
func (r *Runtime) cryptoModule(vm *goja.Runtime, module *goja.Object) {
	c := &cryptoBinding{vm: vm, random: r.random, metrics: r.metrics}

	exports := module.Get("exports").(*goja.Object)
	_ = exports.Set("createHash", c.createHash)
	_ = exports.Set("getHashes", c.getHashes)
	_ = exports.Set("randomBytes", c.randomBytes)
	_ = exports.Set("randomFillSync", c.randomFillSync)
	_ = exports.Set("getRandomValues", c.getRandomValues)
	_ = exports.Set("randomUUID", c.randomUUID)

	webcrypto := vm.NewObject()
	_ = webcrypto.Set("getRandomValues", c.getRandomValues)
	_ = webcrypto.Set("randomUUID", c.randomUUID)
	_ = exports.Set("webcrypto", webcrypto)
}

func (c *cryptoBinding) createHash(call goja.FunctionCall) goja.Value {
	algorithm := call.Argument(0).String()
	h, err := hashing.CreateHash(algorithm, call.Argument(1).Export())
	if err != nil {
		panic(c.newError("Error", err.Error(), "ERR_OSSL_EVP_UNSUPPORTED"))
	}
	c.metrics.RecordHashCreated(algorithm)
	return c.wrapHash(h)
}

func (c *cryptoBinding) wrapHash(h *hashing.Hash) *goja.Object {
	obj := c.vm.NewObject()

	_ = obj.Set("update", func(call goja.FunctionCall) goja.Value {
		if _, err := h.UpdateValue(c.hashData(call.Argument(0)), optionalString(call.Argument(1))); err != nil {
			panic(c.hashError(err))
		}
		return call.This
	})

	_ = obj.Set("digest", func(call goja.FunctionCall) goja.Value {
		d, err := h.Digest(hashing.Encoding(optionalString(call.Argument(0))))
		if err != nil {
			panic(c.hashError(err))
		}
		c.metrics.RecordDigest(string(d.Encoding))
		if d.Encoding == hashing.Binary {
			return buffer.WrapBytes(c.vm, d.Raw)
		}
		return c.vm.ToValue(d.Text)
	})

	_ = obj.Set("copy", func(call goja.FunctionCall) goja.Value {
		return c.wrapHash(h.Copy())
	})

	return obj
}

// hashData converts an update argument into a value hashing.Classify
// understands.
func (c *cryptoBinding) hashData(v goja.Value) any {
	if buf, ok := c.bufferOf(v); ok {
		return buf
	}
	exported := v.Export()
	if items, ok := exported.([]interface{}); ok {
		values := make([]int, len(items))
		for i, item := range items {
			n, ok := item.(int64)
			if !ok {
				return exported
			}
			values[i] = int(n)
		}
		return values
	}
	return exported
}

func (c *cryptoBinding) hashError(err error) *goja.Object {
	switch {
	case errors.Is(err, hashing.ErrInputNotString):
		return c.newError("TypeError", err.Error(), "ERR_INVALID_ARG_TYPE")
	case errors.Is(err, hashing.ErrUnknownEncoding):
		return c.newError("TypeError", err.Error(), "ERR_UNKNOWN_ENCODING")
	case errors.Is(err, hashing.ErrUnsupportedData):
		return c.newError("TypeError", err.Error(), "ERR_INVALID_ARG_TYPE")
	}
	return c.newError("Error", err.Error(), "")
}

func (c *cryptoBinding) getHashes(call goja.FunctionCall) goja.Value {
	names := hashing.Algorithms()
	items := make([]interface{}, len(names))
	for i, name := range names {
		items[i] = name
	}
	return c.vm.NewArray(items...)
}

func (c *cryptoBinding) randomBytes(call goja.FunctionCall) goja.Value {
	size := int(call.Argument(0).ToInteger())

	cb, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		b, err := c.random.RandomBytes(size)
		if err != nil {
			panic(c.rangeError(err))
		}
		return buffer.WrapBytes(c.vm, b)
	}

	var cbErr error
	c.random.RandomBytesFunc(size, func(err error, b []byte) {
		if err != nil {
			_, cbErr = cb(goja.Undefined(), c.rangeError(err))
			return
		}
		_, cbErr = cb(goja.Undefined(), goja.Null(), buffer.WrapBytes(c.vm, b))
	})
	if cbErr != nil {
		panic(cbErr)
	}
	return goja.Undefined()
}

func (c *cryptoBinding) randomFillSync(call goja.FunctionCall) goja.Value {
	target := call.Argument(0)
	buf, ok := c.bufferOf(target)
	if !ok {
		panic(c.newError("TypeError",
			`The "buf" argument must be an instance of ArrayBuffer or ArrayBufferView`,
			"ERR_INVALID_ARG_TYPE"))
	}

	offset := 0
	if v := call.Argument(1); !isAbsent(v) {
		offset = int(v.ToInteger())
	}
	var size []int
	if v := call.Argument(2); !isAbsent(v) {
		size = append(size, int(v.ToInteger()))
	}

	filled, err := c.random.RandomFillSync(buf, offset, size...)
	if err != nil {
		panic(c.rangeError(err))
	}

	view, ok := filled.(bytebuf.View)
	if !ok {
		return target
	}
	return c.newView(target.(*goja.Object), view)
}

func (c *cryptoBinding) getRandomValues(call goja.FunctionCall) goja.Value {
	target := call.Argument(0)
	buf, ok := c.bufferOf(target)
	if !ok {
		panic(c.newError("TypeError",
			`The "typedArray" argument must be an instance of Int8Array, Int16Array, Int32Array, Uint8Array, Uint16Array, Uint32Array or Uint8ClampedArray`,
			"ERR_INVALID_ARG_TYPE"))
	}
	if buf.ByteLength() > maxRandomValues {
		err := c.newError("Error",
			"The ArrayBufferView's byte length exceeds the number of bytes of entropy available via this API (65536)", "")
		_ = err.Set("name", "QuotaExceededError")
		panic(err)
	}
	c.random.GetRandomValues(buf)
	return target
}

func (c *cryptoBinding) randomUUID(call goja.FunctionCall) goja.Value {
	id, err := uuid.NewRandomFromReader(c.random)
	if err != nil {
		panic(c.newError("Error", err.Error(), ""))
	}
	return c.vm.ToValue(id.String())
}

// bufferOf maps an ArrayBuffer, Buffer, typed array or DataView to the bytes
// it covers. ArrayBuffers and Buffers are flat. Other views keep their kind
// and window over the shared storage.
func (c *cryptoBinding) bufferOf(v goja.Value) (bytebuf.Buffer, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	if ab, ok := obj.Export().(goja.ArrayBuffer); ok {
		return bytebuf.Bytes(ab.Bytes()), true
	}

	tag := obj.GetSymbol(goja.SymToStringTag)
	if tag == nil || goja.IsUndefined(tag) {
		return nil, false
	}
	kind, ok := bytebuf.KindByName(tag.String())
	if !ok {
		return nil, false
	}

	if c.isBuffer(obj) {
		var b []byte
		if err := c.vm.ExportTo(obj, &b); err != nil {
			return nil, false
		}
		return bytebuf.Bytes(b), true
	}

	ab, ok := obj.Get("buffer").Export().(goja.ArrayBuffer)
	if !ok {
		return nil, false
	}
	view, err := bytebuf.NewView(kind, ab.Bytes(),
		int(obj.Get("byteOffset").ToInteger()),
		int(obj.Get("byteLength").ToInteger()))
	if err != nil {
		return nil, false
	}
	return view, true
}

func (c *cryptoBinding) isBuffer(obj *goja.Object) bool {
	if c.bufferCtor == nil {
		exports := require.Require(c.vm, BufferModule).ToObject(c.vm)
		ctor, ok := exports.Get("Buffer").(*goja.Object)
		if !ok {
			return false
		}
		c.bufferCtor = ctor
	}
	return c.vm.InstanceOf(obj, c.bufferCtor)
}

// newView constructs a view of v's kind over the ArrayBuffer behind src.
func (c *cryptoBinding) newView(src *goja.Object, v bytebuf.View) goja.Value {
	length := v.Length
	if v.Kind != bytebuf.DataView {
		length /= v.Kind.ElementSize()
	}
	obj, err := c.vm.New(c.vm.Get(v.Kind.String()), src.Get("buffer"),
		c.vm.ToValue(v.ByteOffset), c.vm.ToValue(length))
	if err != nil {
		panic(err)
	}
	return obj
}

func (c *cryptoBinding) rangeError(err error) *goja.Object {
	var rangeErr *random.RangeError
	if errors.As(err, &rangeErr) {
		return c.newError("RangeError", err.Error(), "ERR_OUT_OF_RANGE")
	}
	return c.newError("Error", err.Error(), "")
}

// newError builds a JavaScript error of the named constructor with an
// optional Node-style code property.
func (c *cryptoBinding) newError(ctor, msg, code string) *goja.Object {
	obj, err := c.vm.New(c.vm.Get(ctor), c.vm.ToValue(msg))
	if err != nil {
		return c.vm.NewGoError(errors.New(msg))
	}
	if code != "" {
		_ = obj.Set("code", code)
	}
	return obj
}

// windowCryptoSource probes window.crypto.getRandomValues on vm. It reports
// unavailable while one of its own fills is running, so a window.crypto that
// routes back into this module falls through to the next source.
func windowCryptoSource(vm *goja.Runtime) random.Source {
	var busy bool

	lookup := func() (goja.Callable, goja.Value, bool) {
		win, ok := vm.Get("window").(*goja.Object)
		if !ok {
			return nil, nil, false
		}
		crypto, ok := win.Get("crypto").(*goja.Object)
		if !ok {
			return nil, nil, false
		}
		fn, ok := goja.AssertFunction(crypto.Get("getRandomValues"))
		return fn, crypto, ok
	}

	return random.Source{
		Name:   "window.crypto",
		Secure: true,
		Available: func() bool {
			if busy {
				return false
			}
			_, _, ok := lookup()
			return ok
		},
		Fill: func(p []byte) error {
			fn, this, ok := lookup()
			if !ok {
				return errors.New("window.crypto.getRandomValues is not defined")
			}
			busy = true
			defer func() { busy = false }()

			arr, err := vm.New(vm.Get("Uint8Array"), vm.ToValue(len(p)))
			if err != nil {
				return err
			}
			if _, err := fn(this, arr); err != nil {
				return err
			}
			var out []byte
			if err := vm.ExportTo(arr, &out); err != nil {
				return err
			}
			copy(p, out)
			return nil
		},
	}
}

func optionalString(v goja.Value) string {
	if isAbsent(v) {
		return ""
	}
	return v.String()
}

func isAbsent(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}
