// Package plugin redirects imports of Node built-in modules to local
// polyfills during an esbuild build and injects the environment stub into
// every bundle.
package plugin

import (
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/shims/polyfills"
	"github.com/GriffinCanCode/nodeshim/internal/shims/specifier"
)

// Name is the esbuild plugin name.
const Name = "nodeshim"

// HostScheme prefixes the native modules polyfill files load from the host
// runtime. Such imports are left external.
const HostScheme = "nodeshim:"

// Resolver holds the frozen lookup state of one plugin instance.
type Resolver struct {
	table     *specifier.Table
	polyfills *polyfills.Set
	logger    *zap.Logger
	metrics   *monitoring.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolve decisions.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger.Named("resolver")
		}
	}
}

// WithMetrics counts resolve decisions.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a resolver over table and set.
func NewResolver(table *specifier.Table, set *polyfills.Set, opts ...Option) *Resolver {
	r := &Resolver{
		table:     table,
		polyfills: set,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// New returns the esbuild plugin.
func New(table *specifier.Table, set *polyfills.Set, opts ...Option) api.Plugin {
	return NewResolver(table, set, opts...).Plugin()
}

// Plugin wraps r as an esbuild plugin.
func (r *Resolver) Plugin() api.Plugin {
	return api.Plugin{
		Name:  Name,
		Setup: r.Setup,
	}
}

// Setup appends the environment stub to the inject list and registers the
// resolve hooks. The host hook is registered first so polyfill internals
// never reach the catch-all.
func (r *Resolver) Setup(build api.PluginBuild) {
	if stub, ok := r.polyfills.Path(specifier.Globals); ok {
		build.InitialOptions.Inject = AppendInject(build.InitialOptions.Inject, stub)
	}

	build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(HostScheme)}, r.onResolveHost)
	build.OnResolve(api.OnResolveOptions{Filter: ".*"}, r.onResolve)
}

// AppendInject returns inject with stub appended. Existing entries keep their
// order and a stub already present is not added twice.
func AppendInject(inject []string, stub string) []string {
	if slices.Contains(inject, stub) {
		return inject
	}
	out := make([]string, 0, len(inject)+1)
	out = append(out, inject...)
	return append(out, stub)
}

// Resolve returns the polyfill path for spec. ok is false when spec is not
// a reserved specifier, in which case default resolution applies.
func (r *Resolver) Resolve(spec string) (path string, ok bool) {
	id, ok := r.table.Lookup(spec)
	if !ok {
		return "", false
	}
	return r.polyfills.Path(id)
}

func (r *Resolver) onResolve(args api.OnResolveArgs) (api.OnResolveResult, error) {
	path, ok := r.Resolve(args.Path)
	if !ok {
		r.metrics.RecordResolution("declined")
		return api.OnResolveResult{}, nil
	}

	r.logger.Debug("Redirected module",
		zap.String("specifier", args.Path),
		zap.String("importer", args.Importer),
		zap.String("path", path))
	r.metrics.RecordResolution("redirected")
	return api.OnResolveResult{Path: path}, nil
}

func (r *Resolver) onResolveHost(args api.OnResolveArgs) (api.OnResolveResult, error) {
	if !strings.HasPrefix(args.Path, HostScheme) {
		return api.OnResolveResult{}, nil
	}
	r.metrics.RecordResolution("external")
	return api.OnResolveResult{Path: args.Path, External: true}, nil
}
