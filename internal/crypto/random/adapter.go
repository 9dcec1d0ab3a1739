package random

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nodeshim/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/nodeshim/internal/shared/bytebuf"
)

// Adapter serves the random API from an ordered list of sources.
type Adapter struct {
	sources  []Source
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	warnOnce sync.Once

	breakerSettings *resilience.Settings
	breakers        []*resilience.Breaker
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSources replaces the probe list. Order is priority.
func WithSources(sources ...Source) Option {
	return func(a *Adapter) {
		a.sources = append([]Source(nil), sources...)
	}
}

// WithLogger sets the logger used for the insecure-fallback warning.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records fills per source.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithBreaker puts each source behind a circuit breaker. A source that keeps
// failing is skipped until its cooldown elapses.
func WithBreaker(settings resilience.Settings) Option {
	return func(a *Adapter) {
		a.breakerSettings = &settings
	}
}

// New creates an adapter probing DefaultSources unless WithSources is given.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		sources: DefaultSources(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.breakerSettings != nil {
		a.breakers = make([]*resilience.Breaker, len(a.sources))
		for i, s := range a.sources {
			settings := *a.breakerSettings
			notify := settings.OnStateChange
			settings.OnStateChange = func(name string, from, to resilience.State) {
				a.logger.Info("Random source breaker changed state",
					zap.String("source", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to))
				if notify != nil {
					notify(name, from, to)
				}
			}
			a.breakers[i] = resilience.New(s.Name, settings)
		}
	}
	return a
}

// Select returns the source the next fill will use. When no configured source
// is available the built-in insecure source is returned.
func (a *Adapter) Select() Source {
	for i, s := range a.sources {
		if a.ready(i) && s.available() {
			return s
		}
	}
	return InsecureSource()
}

// GetRandomValues overwrites every byte of buf and returns buf.
func (a *Adapter) GetRandomValues(buf bytebuf.Buffer) bytebuf.Buffer {
	a.fill(buf.Data())
	return buf
}

func (a *Adapter) fill(p []byte) {
	for i, s := range a.sources {
		if !a.ready(i) || !s.available() {
			continue
		}
		if err := a.try(i, s, p); err != nil {
			a.logger.Warn("Random source failed, trying next",
				zap.String("source", s.Name),
				zap.Error(err))
			continue
		}
		a.record(s, len(p))
		return
	}

	s := InsecureSource()
	_ = s.Fill(p)
	a.record(s, len(p))
}

func (a *Adapter) ready(i int) bool {
	return a.breakers == nil || a.breakers[i].Ready()
}

func (a *Adapter) try(i int, s Source, p []byte) error {
	if a.breakers == nil {
		return s.Fill(p)
	}
	return a.breakers[i].Do(func() error { return s.Fill(p) })
}

func (a *Adapter) record(s Source, n int) {
	if !s.Secure {
		a.warnOnce.Do(func() {
			a.logger.Warn("No secure random source available, using insecure fallback",
				zap.String("source", s.Name))
		})
	}
	a.metrics.RecordRandomFill(s.Name, s.Secure, n)
}

// RandomBytes returns size fresh random bytes.
func (a *Adapter) RandomBytes(size int) ([]byte, error) {
	if size < 0 || size > MaxSize {
		return nil, &RangeError{Name: "size", Value: size, Min: 0, Max: MaxSize}
	}
	buf := make([]byte, size)
	a.fill(buf)
	return buf, nil
}

// Read fills p from the probe list. It never fails, so the adapter can back
// readers such as uuid.NewRandomFromReader.
func (a *Adapter) Read(p []byte) (int, error) {
	a.fill(p)
	return len(p), nil
}

// RandomBytesFunc generates size bytes and invokes cb exactly once before
// returning. There is no asynchrony; the callback form only serves callers
// written against a completion-handler API.
func (a *Adapter) RandomBytesFunc(size int, cb func(err error, b []byte)) {
	b, err := a.RandomBytes(size)
	cb(err, b)
}

// RandomFillSync overwrites buf[offset:offset+size]. size defaults to the
// bytes remaining after offset. A View returns a new view of the same kind
// over the same storage; a flat buffer is returned as is.
func (a *Adapter) RandomFillSync(buf bytebuf.Buffer, offset int, size ...int) (bytebuf.Buffer, error) {
	n := buf.ByteLength()
	if offset < 0 || offset > n {
		return nil, &RangeError{Name: "offset", Value: offset, Min: 0, Max: n}
	}
	sz := n - offset
	if len(size) > 0 {
		sz = size[0]
	}
	if sz < 0 {
		return nil, &RangeError{Name: "size", Value: sz, Min: 0, Max: n}
	}
	if sz > n-offset {
		end := offset + sz
		if end < 0 {
			end = math.MaxInt
		}
		return nil, &RangeError{Name: "size + offset", Value: end, Min: 0, Max: n}
	}

	a.fill(buf.Data()[offset : offset+sz])

	if v, ok := buf.(bytebuf.View); ok {
		return v.Reslice(), nil
	}
	return buf, nil
}

// MaxSize is the largest buffer RandomBytes allocates, matching Node's
// buffer.constants.MAX_LENGTH on 32-bit platforms.
const MaxSize = 1<<31 - 1
