package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/buffer"
	"github.com/dop251/goja_nodejs/process"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/nodeshim/internal/crypto/random"
	"github.com/GriffinCanCode/nodeshim/internal/globals"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/resilience"
)

// Host module names registered on every runtime.
const (
	CryptoModule  = "nodeshim:crypto"
	BufferModule  = "nodeshim:buffer"
	ProcessModule = "nodeshim:process"
	GlobalsModule = globals.ModuleName
)

// Runtime wraps goja VM with the shim host modules
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	random        *random.Adapter
	randomSources []random.Source

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Option configures a Runtime
type Option func(*Runtime)

// WithLogger sets the runtime logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger.Named("sandbox")
		}
	}
}

// WithMetrics records executions and polyfill activity
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// WithRandomSources replaces the sources probed after the VM's own
// window.crypto. Defaults to random.DefaultSources().
func WithRandomSources(sources ...random.Source) Option {
	return func(r *Runtime) {
		r.randomSources = append([]random.Source(nil), sources...)
	}
}

// New creates a new sandboxed runtime
func New(config Config, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		config:        config,
		console:       []LogEntry{},
		randomSources: random.DefaultSources(),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	return r, nil
}

// Execute runs JavaScript code with timeout and resource limits
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, fmt.Errorf("sandbox is closed")
	}

	start := time.Now()
	result := &Result{
		Console: []LogEntry{},
	}

	// Setup timeout
	timeout := r.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// Setup interrupt handler
	vm := r.vm
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	// Clear console
	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	// Execute script
	val, err := vm.RunString(script)

	// Stop interrupt goroutine
	close(done)
	vm.ClearInterrupt()

	result.Duration = time.Since(start)

	// Collect console output
	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		result.Error = err
		r.metrics.RecordExecution("error", result.Duration)
		r.logger.Debug("Script failed", zap.Error(err), zap.Duration("duration", result.Duration))
		return result, err
	}

	// Extract result value
	result.Value = r.exportValue(val)
	r.metrics.RecordExecution("success", result.Duration)

	return result, nil
}

// setupGlobals creates the VM and registers host modules
func (r *Runtime) setupGlobals() error {
	vm := goja.New()
	if r.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}

	sources := append([]random.Source{windowCryptoSource(vm)}, r.randomSources...)
	r.random = random.New(
		random.WithSources(sources...),
		random.WithBreaker(resilience.DefaultSettings()),
		random.WithLogger(r.logger),
		random.WithMetrics(r.metrics),
	)

	registry := require.NewRegistry()
	registry.RegisterNativeModule(CryptoModule, r.cryptoModule)
	registry.RegisterNativeModule(BufferModule, buffer.Require)
	registry.RegisterNativeModule(ProcessModule, process.Require)
	registry.RegisterNativeModule(GlobalsModule, r.config.Window.Loader())
	registry.Enable(vm)

	// Setup console if enabled
	if r.config.EnableConsole {
		console := vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		console.Set("debug", r.makeConsoleFunc("debug"))
		vm.Set("console", console)
	}

	// Setup timers (no-op, there is no event loop)
	vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	if r.config.InstallGlobals {
		globals.Install(vm, r.config.Window)
	}

	r.vm = vm
	return nil
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// exportValue converts goja value to Go value
func (r *Runtime) exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// VM exposes the underlying goja runtime. Callers must not use it while
// Execute is running.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Reset clears the runtime state
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.console = []LogEntry{}
	return r.setupGlobals()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
